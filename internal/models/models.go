package models

import (
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// User represents a dashboard user. Authentication is a plaintext
// username/password demo flow, not a security boundary.
type User struct {
	ID            string         `json:"id" gorm:"primaryKey;size:36"`
	Username      string         `json:"username" gorm:"uniqueIndex;not null;size:64"`
	Password      string         `json:"-" gorm:"not null;size:128"`
	WalletAddress string         `json:"wallet_address" gorm:"size:42;index"`
	Roles         pq.StringArray `json:"roles" gorm:"type:text[]"`
	IsActive      *bool          `json:"is_active" gorm:"default:true"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `json:"deleted_at" gorm:"index"`
}

// TableName returns the table name for User model
func (User) TableName() string {
	return "users"
}

// BeforeCreate hook to set default values
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.Username == "" || u.Password == "" {
		return gorm.ErrInvalidData
	}
	if u.Roles == nil {
		u.Roles = pq.StringArray{"user"}
	}
	return nil
}

// StrategyStatus represents the lifecycle state of a trading strategy
type StrategyStatus string

const (
	StrategyStatusActive  StrategyStatus = "active"
	StrategyStatusPaused  StrategyStatus = "paused"
	StrategyStatusStopped StrategyStatus = "stopped"
)

// Strategy represents a user-configured trading strategy. The trading
// logic itself is not executed; performance fields hold mock data.
type Strategy struct {
	ID          string          `json:"id" gorm:"primaryKey;size:36"`
	UserID      string          `json:"user_id" gorm:"not null;size:36;index"`
	Name        string          `json:"name" gorm:"not null;size:100"`
	Type        string          `json:"type" gorm:"not null;size:32"`
	Status      StrategyStatus  `json:"status" gorm:"not null;size:16;default:'paused'"`
	Pairs       pq.StringArray  `json:"pairs" gorm:"type:text[]"`
	MaxPosition decimal.Decimal `json:"max_position" gorm:"type:decimal(36,18)"`
	StopLoss    decimal.Decimal `json:"stop_loss" gorm:"type:decimal(10,6)"`
	TakeProfit  decimal.Decimal `json:"take_profit" gorm:"type:decimal(10,6)"`
	PnL         decimal.Decimal `json:"pnl" gorm:"type:decimal(36,18)"`
	WinRate     decimal.Decimal `json:"win_rate" gorm:"type:decimal(10,6)"`
	TradeCount  int             `json:"trade_count"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	DeletedAt   gorm.DeletedAt  `json:"deleted_at" gorm:"index"`
}

// TableName returns the table name for Strategy model
func (Strategy) TableName() string {
	return "strategies"
}

// BeforeCreate hook to validate strategy data
func (s *Strategy) BeforeCreate(tx *gorm.DB) error {
	if s.Name == "" || s.UserID == "" {
		return gorm.ErrInvalidData
	}
	return nil
}

// OrderStatus represents the status of a cross-chain or limit order
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusExecuting OrderStatus = "executing"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusCancelled OrderStatus = "cancelled"
	OrderStatusFailed    OrderStatus = "failed"
)

// CrossChainOrder represents an atomic-swap style cross-chain order.
// Hashlock and timelock are randomly generated placeholders and are
// never verified on-chain.
type CrossChainOrder struct {
	ID          string          `json:"id" gorm:"primaryKey;size:36"`
	UserID      string          `json:"user_id" gorm:"not null;size:36;index"`
	FromChainID int             `json:"from_chain_id" gorm:"not null"`
	ToChainID   int             `json:"to_chain_id" gorm:"not null"`
	FromToken   string          `json:"from_token" gorm:"not null;size:42"`
	ToToken     string          `json:"to_token" gorm:"not null;size:42"`
	FromAmount  decimal.Decimal `json:"from_amount" gorm:"type:decimal(36,18);not null"`
	ToAmount    decimal.Decimal `json:"to_amount" gorm:"type:decimal(36,18)"`
	Hashlock    string          `json:"hashlock" gorm:"size:66"`
	Timelock    int64           `json:"timelock"`
	Status      OrderStatus     `json:"status" gorm:"not null;size:16;default:'pending'"`
	TxHash      string          `json:"tx_hash" gorm:"size:66"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	DeletedAt   gorm.DeletedAt  `json:"deleted_at" gorm:"index"`
}

// TableName returns the table name for CrossChainOrder model
func (CrossChainOrder) TableName() string {
	return "cross_chain_orders"
}

// BeforeCreate hook to validate order data
func (o *CrossChainOrder) BeforeCreate(tx *gorm.DB) error {
	if o.FromToken == o.ToToken && o.FromChainID == o.ToChainID {
		return gorm.ErrInvalidData
	}
	if o.FromAmount.IsZero() || o.FromAmount.IsNegative() {
		return gorm.ErrInvalidData
	}
	return nil
}

// LimitOrder represents a resting limit order proxied to the aggregator
type LimitOrder struct {
	ID         string          `json:"id" gorm:"primaryKey;size:36"`
	UserID     string          `json:"user_id" gorm:"not null;size:36;index"`
	ChainID    int             `json:"chain_id" gorm:"not null"`
	MakerToken string          `json:"maker_token" gorm:"not null;size:42"`
	TakerToken string          `json:"taker_token" gorm:"not null;size:42"`
	MakerRate  decimal.Decimal `json:"maker_rate" gorm:"type:decimal(36,18)"`
	Amount     decimal.Decimal `json:"amount" gorm:"type:decimal(36,18);not null"`
	Status     OrderStatus     `json:"status" gorm:"not null;size:16;default:'pending'"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
	DeletedAt  gorm.DeletedAt  `json:"deleted_at" gorm:"index"`
}

// TableName returns the table name for LimitOrder model
func (LimitOrder) TableName() string {
	return "limit_orders"
}

// SecuritySettings represents per-wallet security configuration
type SecuritySettings struct {
	ID               uint            `json:"id" gorm:"primaryKey"`
	UserID           string          `json:"user_id" gorm:"uniqueIndex;not null;size:36"`
	WalletAddress    string          `json:"wallet_address" gorm:"size:42"`
	DailyLimit       decimal.Decimal `json:"daily_limit" gorm:"type:decimal(36,18)"`
	WhitelistedAddrs pq.StringArray  `json:"whitelisted_addrs" gorm:"type:text[]"`
	TwoFactorEnabled bool            `json:"two_factor_enabled" gorm:"default:false"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// TableName returns the table name for SecuritySettings model
func (SecuritySettings) TableName() string {
	return "security_settings"
}

// AuditLog records security-relevant user actions
type AuditLog struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UserID    string    `json:"user_id" gorm:"not null;size:36;index"`
	Action    string    `json:"action" gorm:"not null;size:64"`
	Detail    string    `json:"detail" gorm:"size:512"`
	IPAddress string    `json:"ip_address" gorm:"size:45"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the table name for AuditLog model
func (AuditLog) TableName() string {
	return "audit_logs"
}

// Token represents a tradeable token known to the dashboard
type Token struct {
	ID         uint            `json:"id" gorm:"primaryKey"`
	Address    string          `json:"address" gorm:"uniqueIndex;not null;size:42"`
	ChainID    int             `json:"chain_id" gorm:"not null;index"`
	Symbol     string          `json:"symbol" gorm:"not null;size:20;index"`
	Name       string          `json:"name" gorm:"not null;size:100"`
	Decimals   uint8           `json:"decimals" gorm:"not null"`
	Price      decimal.Decimal `json:"price" gorm:"type:decimal(36,18)"`
	LogoURL    string          `json:"logo_url" gorm:"size:255"`
	IsVerified bool            `json:"is_verified" gorm:"default:false"`
	IsActive   *bool           `json:"is_active" gorm:"default:true"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
	DeletedAt  gorm.DeletedAt  `json:"deleted_at" gorm:"index"`
}

// TableName returns the table name for Token model
func (Token) TableName() string {
	return "tokens"
}

// BeforeCreate hook to validate token data
func (t *Token) BeforeCreate(tx *gorm.DB) error {
	if len(t.Address) != 42 {
		return gorm.ErrInvalidData
	}
	if t.Symbol == "" || t.Name == "" {
		return gorm.ErrInvalidData
	}
	return nil
}
