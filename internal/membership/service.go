package membership

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/mintfield/coinledger-backend/internal/auditlog"
	"github.com/mintfield/coinledger-backend/pkg/db"
	"github.com/mintfield/coinledger-backend/pkg/db/models"
	"github.com/mintfield/coinledger-backend/pkg/enums"
	"github.com/mintfield/coinledger-backend/pkg/logger"
)

const downgradeRemark = "membership expired"

// ChangeLevelInput captures an admin-initiated tier change.
type ChangeLevelInput struct {
	AdminUserID   uuid.UUID
	UserID        uuid.UUID
	NewLevel      enums.UserLevel
	VIPExpireDate *time.Time
	DailyQuota    int
	AdvancedAgent bool
	Remark        string
}

// DowngradeResult reports what a downgrade reset.
type DowngradeResult struct {
	UserID           uuid.UUID
	BeforeLevel      enums.UserLevel
	ForfeitedPartner decimal.Decimal
	Applied          bool
}

// Service owns membership tiers: admin level changes and the time-based
// downgrade applied by the expiry sweep.
type Service interface {
	ChangeUserLevel(ctx context.Context, input ChangeLevelInput) error
	HandleUserDowngrade(ctx context.Context, userID uuid.UUID) (*DowngradeResult, error)
	ExpiredMemberships(ctx context.Context, cutoff time.Time, limit int) ([]models.User, error)
}

// ServiceParams configure the membership service.
type ServiceParams struct {
	DB     db.TxRunner
	Repo   Repository
	Audit  auditlog.Service
	Logger *logger.Logger
}

type service struct {
	db    db.TxRunner
	repo  Repository
	audit auditlog.Service
	logg  *logger.Logger
}

// NewService wires a membership service.
func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("membership repository required")
	}
	if params.Audit == nil {
		return nil, fmt.Errorf("audit log service required")
	}
	return &service{db: params.DB, repo: params.Repo, audit: params.Audit, logg: params.Logger}, nil
}

func (s *service) ChangeUserLevel(ctx context.Context, input ChangeLevelInput) error {
	if input.AdminUserID == uuid.Nil {
		return fmt.Errorf("admin user id is required")
	}
	if input.UserID == uuid.Nil {
		return fmt.Errorf("user id is required")
	}
	if !input.NewLevel.IsValid() {
		return fmt.Errorf("invalid user level %q", input.NewLevel)
	}
	if input.NewLevel.IsExpirable() && input.VIPExpireDate == nil {
		return fmt.Errorf("%s requires an expiry date", input.NewLevel)
	}

	return s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		user, err := repo.FindUserForUpdate(ctx, input.UserID)
		if err != nil {
			return err
		}

		updates := map[string]any{
			"level_code":      input.NewLevel,
			"vip_expire_date": input.VIPExpireDate,
			"daily_quota":     input.DailyQuota,
			"advanced_agent":  input.AdvancedAgent,
		}
		if err := repo.UpdateUser(ctx, input.UserID, updates); err != nil {
			return err
		}

		detail := auditlog.ChangeLevelDetail{
			BeforeLevel:             canonicalLevel(user.LevelCode),
			AfterLevel:              input.NewLevel,
			BeforeVIPExpireDate:     user.VIPExpireDate,
			PartnerBalanceForfeited: decimal.Zero,
		}
		_, err = s.audit.CreateLog(ctx, tx, auditlog.CreateLogInput{
			AdminUserID: input.AdminUserID,
			UserID:      input.UserID,
			Detail:      detail,
			Remark:      input.Remark,
		})
		return err
	})
}

// HandleUserDowngrade resets an expired membership to the baseline tier.
// Tier-gated privileges are cleared and the untransferred partner balance is
// forfeited; the spendable balance is untouched, so no ledger entry is
// written. Running it against an already-baseline or still-valid user is a
// no-op.
func (s *service) HandleUserDowngrade(ctx context.Context, userID uuid.UUID) (*DowngradeResult, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("user id is required")
	}

	result := &DowngradeResult{UserID: userID, ForfeitedPartner: decimal.Zero}
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		user, err := repo.FindUserForUpdate(ctx, userID)
		if err != nil {
			return err
		}

		level := canonicalLevel(user.LevelCode)
		result.BeforeLevel = level
		if !level.IsExpirable() {
			return nil
		}
		if user.VIPExpireDate == nil || user.VIPExpireDate.After(time.Now().UTC()) {
			return nil
		}

		updates := map[string]any{
			"level_code":      enums.UserLevelNormal,
			"vip_expire_date": nil,
			"daily_quota":     0,
			"advanced_agent":  false,
			"partner_balance": decimal.Zero,
		}
		if err := repo.UpdateUser(ctx, userID, updates); err != nil {
			return err
		}

		detail := auditlog.ChangeLevelDetail{
			BeforeLevel:             level,
			AfterLevel:              enums.UserLevelNormal,
			BeforeVIPExpireDate:     user.VIPExpireDate,
			PartnerBalanceForfeited: user.PartnerBalance,
		}
		_, err = s.audit.CreateLog(ctx, tx, auditlog.CreateLogInput{
			AdminUserID: auditlog.SystemActorID,
			UserID:      userID,
			Detail:      detail,
			Remark:      downgradeRemark,
		})
		if err != nil {
			return err
		}

		result.ForfeitedPartner = user.PartnerBalance
		result.Applied = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Applied && s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"user_id":      userID.String(),
			"before_level": string(result.BeforeLevel),
		})
		s.logg.Info(logCtx, "membership downgraded")
	}
	return result, nil
}

func (s *service) ExpiredMemberships(ctx context.Context, cutoff time.Time, limit int) ([]models.User, error) {
	return s.repo.FindExpiredBefore(ctx, cutoff, limit)
}

// canonicalLevel resolves legacy tier spellings. The enum column only stores
// canonical values; this is input tolerance for callers handing in aliases.
func canonicalLevel(level enums.UserLevel) enums.UserLevel {
	parsed, err := enums.ParseUserLevel(string(level))
	if err != nil {
		return level
	}
	return parsed
}
