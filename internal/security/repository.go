package security

import (
	"errors"

	"gorm.io/gorm"

	"swapdeck/internal/models"
)

// Repository defines security settings and audit log persistence
type Repository interface {
	GetSettings(userID string) (*models.SecuritySettings, error)
	SaveSettings(settings *models.SecuritySettings) error
	AppendAudit(entry *models.AuditLog) error
	ListAudit(userID string, limit, offset int) ([]*models.AuditLog, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository creates a gorm-backed security repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetSettings(userID string) (*models.SecuritySettings, error) {
	if userID == "" {
		return nil, errors.New("user id cannot be empty")
	}

	var settings models.SecuritySettings
	err := r.db.Where("user_id = ?", userID).First(&settings).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &settings, nil
}

func (r *repository) SaveSettings(settings *models.SecuritySettings) error {
	if settings == nil {
		return errors.New("settings cannot be nil")
	}
	return r.db.Save(settings).Error
}

func (r *repository) AppendAudit(entry *models.AuditLog) error {
	if entry == nil {
		return errors.New("entry cannot be nil")
	}
	return r.db.Create(entry).Error
}

func (r *repository) ListAudit(userID string, limit, offset int) ([]*models.AuditLog, error) {
	var entries []*models.AuditLog
	err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).Offset(offset).Find(&entries).Error
	return entries, err
}
