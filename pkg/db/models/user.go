package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mintfield/coinledger-backend/pkg/enums"
)

// User is the account entity owning the compute-coin balance pools.
type User struct {
	ID             uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Email          string          `gorm:"column:email;type:text;not null;uniqueIndex"`
	Balance        decimal.Decimal `gorm:"column:balance;type:decimal(20,2);not null;default:0"`
	FrozenBalance  decimal.Decimal `gorm:"column:frozen_balance;type:decimal(20,2);not null;default:0"`
	PartnerBalance decimal.Decimal `gorm:"column:partner_balance;type:decimal(20,2);not null;default:0"`
	LevelCode      enums.UserLevel `gorm:"column:level_code;type:user_level_enum;not null;default:'normal'"`
	VIPExpireDate  *time.Time      `gorm:"column:vip_expire_date"`
	DailyQuota     int             `gorm:"column:daily_quota;not null;default:0"`
	AdvancedAgent  bool            `gorm:"column:advanced_agent;not null;default:false"`
	IsActive       bool            `gorm:"column:is_active;not null;default:true"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
