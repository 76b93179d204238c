package order

import (
	"errors"

	"gorm.io/gorm"

	"swapdeck/internal/models"
)

// Repository defines order persistence operations
type Repository interface {
	CreateCrossChain(order *models.CrossChainOrder) error
	GetCrossChainByID(id string) (*models.CrossChainOrder, error)
	ListCrossChainByUser(userID string, limit, offset int) ([]*models.CrossChainOrder, error)
	UpdateCrossChainStatus(id string, status models.OrderStatus) error

	CreateLimit(order *models.LimitOrder) error
	GetLimitByID(id string) (*models.LimitOrder, error)
	ListLimitByUser(userID string, limit, offset int) ([]*models.LimitOrder, error)
	UpdateLimitStatus(id string, status models.OrderStatus) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository creates a gorm-backed order repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) CreateCrossChain(order *models.CrossChainOrder) error {
	if order == nil {
		return errors.New("order cannot be nil")
	}
	return r.db.Create(order).Error
}

func (r *repository) GetCrossChainByID(id string) (*models.CrossChainOrder, error) {
	if id == "" {
		return nil, errors.New("id cannot be empty")
	}

	var order models.CrossChainOrder
	err := r.db.Where("id = ?", id).First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

func (r *repository) ListCrossChainByUser(userID string, limit, offset int) ([]*models.CrossChainOrder, error) {
	var orders []*models.CrossChainOrder
	err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).Offset(offset).Find(&orders).Error
	return orders, err
}

func (r *repository) UpdateCrossChainStatus(id string, status models.OrderStatus) error {
	if id == "" {
		return errors.New("id cannot be empty")
	}
	return r.db.Model(&models.CrossChainOrder{}).Where("id = ?", id).
		Update("status", status).Error
}

func (r *repository) CreateLimit(order *models.LimitOrder) error {
	if order == nil {
		return errors.New("order cannot be nil")
	}
	return r.db.Create(order).Error
}

func (r *repository) GetLimitByID(id string) (*models.LimitOrder, error) {
	if id == "" {
		return nil, errors.New("id cannot be empty")
	}

	var order models.LimitOrder
	err := r.db.Where("id = ?", id).First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

func (r *repository) ListLimitByUser(userID string, limit, offset int) ([]*models.LimitOrder, error) {
	var orders []*models.LimitOrder
	err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).Offset(offset).Find(&orders).Error
	return orders, err
}

func (r *repository) UpdateLimitStatus(id string, status models.OrderStatus) error {
	if id == "" {
		return errors.New("id cannot be empty")
	}
	return r.db.Model(&models.LimitOrder{}).Where("id = ?", id).
		Update("status", status).Error
}
