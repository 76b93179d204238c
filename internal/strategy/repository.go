package strategy

import (
	"errors"

	"gorm.io/gorm"

	"swapdeck/internal/models"
)

// Repository defines strategy persistence operations
type Repository interface {
	Create(strategy *models.Strategy) error
	GetByID(id string) (*models.Strategy, error)
	ListByUser(userID string, limit, offset int) ([]*models.Strategy, error)
	Update(strategy *models.Strategy) error
	Delete(id string) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository creates a gorm-backed strategy repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(strategy *models.Strategy) error {
	if strategy == nil {
		return errors.New("strategy cannot be nil")
	}
	return r.db.Create(strategy).Error
}

func (r *repository) GetByID(id string) (*models.Strategy, error) {
	if id == "" {
		return nil, errors.New("id cannot be empty")
	}

	var strategy models.Strategy
	err := r.db.Where("id = ?", id).First(&strategy).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &strategy, nil
}

func (r *repository) ListByUser(userID string, limit, offset int) ([]*models.Strategy, error) {
	var strategies []*models.Strategy
	err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).Offset(offset).Find(&strategies).Error
	return strategies, err
}

func (r *repository) Update(strategy *models.Strategy) error {
	if strategy == nil {
		return errors.New("strategy cannot be nil")
	}
	return r.db.Save(strategy).Error
}

func (r *repository) Delete(id string) error {
	if id == "" {
		return errors.New("id cannot be empty")
	}
	return r.db.Delete(&models.Strategy{}, "id = ?", id).Error
}
