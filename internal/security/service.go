package security

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"swapdeck/internal/models"
)

const (
	defaultAuditLimit = 50
	maxAuditLimit     = 200
)

// UpdateRequest carries the mutable security settings fields. Nil
// pointers leave the stored value untouched.
type UpdateRequest struct {
	WalletAddress    *string          `json:"wallet_address,omitempty"`
	DailyLimit       *decimal.Decimal `json:"daily_limit,omitempty"`
	WhitelistedAddrs []string         `json:"whitelisted_addrs,omitempty"`
	TwoFactorEnabled *bool            `json:"two_factor_enabled,omitempty"`
}

// Service manages per-user security settings and the audit trail.
type Service struct {
	repo   Repository
	logger *logrus.Logger
}

// NewService creates a security service.
func NewService(repo Repository, logger *logrus.Logger) *Service {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Service{repo: repo, logger: logger}
}

// GetSettings returns the user's settings, creating defaults on first access.
func (s *Service) GetSettings(userID string) (*models.SecuritySettings, error) {
	if userID == "" {
		return nil, errors.New("user id required")
	}

	settings, err := s.repo.GetSettings(userID)
	if err != nil {
		return nil, err
	}
	if settings == nil {
		settings = &models.SecuritySettings{
			UserID:           userID,
			DailyLimit:       decimal.NewFromInt(10000),
			TwoFactorEnabled: false,
		}
		if err := s.repo.SaveSettings(settings); err != nil {
			return nil, err
		}
	}
	return settings, nil
}

// UpdateSettings applies the request on top of the stored settings and
// records the change in the audit log.
func (s *Service) UpdateSettings(userID, ip string, req UpdateRequest) (*models.SecuritySettings, error) {
	settings, err := s.GetSettings(userID)
	if err != nil {
		return nil, err
	}

	if req.WalletAddress != nil {
		if !common.IsHexAddress(*req.WalletAddress) {
			return nil, errors.New("invalid wallet address")
		}
		settings.WalletAddress = *req.WalletAddress
	}
	if req.DailyLimit != nil {
		if req.DailyLimit.IsNegative() {
			return nil, errors.New("daily limit cannot be negative")
		}
		settings.DailyLimit = *req.DailyLimit
	}
	if req.WhitelistedAddrs != nil {
		for _, addr := range req.WhitelistedAddrs {
			if !common.IsHexAddress(addr) {
				return nil, errors.New("invalid whitelisted address")
			}
		}
		settings.WhitelistedAddrs = req.WhitelistedAddrs
	}
	if req.TwoFactorEnabled != nil {
		settings.TwoFactorEnabled = *req.TwoFactorEnabled
	}

	if err := s.repo.SaveSettings(settings); err != nil {
		return nil, err
	}

	s.Record(userID, ip, "security_settings_updated", "")
	return settings, nil
}

// Record appends an audit entry. Failures are logged, not returned,
// so auditing never blocks the action being audited.
func (s *Service) Record(userID, ip, action, detail string) {
	entry := &models.AuditLog{
		UserID:    userID,
		Action:    action,
		Detail:    detail,
		IPAddress: ip,
	}
	if err := s.repo.AppendAudit(entry); err != nil {
		s.logger.WithError(err).WithField("action", action).Warn("Failed to append audit log")
	}
}

// ListAudit returns the user's audit trail, newest first.
func (s *Service) ListAudit(userID string, limit, offset int) ([]*models.AuditLog, error) {
	if userID == "" {
		return nil, errors.New("user id required")
	}
	if limit <= 0 {
		limit = defaultAuditLimit
	}
	if limit > maxAuditLimit {
		limit = maxAuditLimit
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListAudit(userID, limit, offset)
}
