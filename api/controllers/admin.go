package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mintfield/coinledger-backend/api/middleware"
	"github.com/mintfield/coinledger-backend/api/responses"
	"github.com/mintfield/coinledger-backend/api/validators"
	"github.com/mintfield/coinledger-backend/internal/auditlog"
	"github.com/mintfield/coinledger-backend/internal/ledger"
	"github.com/mintfield/coinledger-backend/internal/membership"
	"github.com/mintfield/coinledger-backend/pkg/enums"
	pkgerrors "github.com/mintfield/coinledger-backend/pkg/errors"
	"github.com/mintfield/coinledger-backend/pkg/logger"
	"github.com/mintfield/coinledger-backend/pkg/money"
)

type adjustRequest struct {
	Direction string `json:"direction" validate:"required,oneof=recharge deduct"`
	Amount    string `json:"amount" validate:"required"`
	Remark    string `json:"remark" validate:"required,max=500"`
}

type changeLevelRequest struct {
	Level         string     `json:"level" validate:"required"`
	VIPExpireDate *time.Time `json:"vip_expire_date"`
	DailyQuota    int        `json:"daily_quota" validate:"min=0"`
	AdvancedAgent bool       `json:"advanced_agent"`
	Remark        string     `json:"remark" validate:"max=500"`
}

type auditLogView struct {
	ID          string    `json:"id"`
	AdminUserID string    `json:"admin_user_id"`
	Operation   string    `json:"operation"`
	Detail      any       `json:"detail"`
	Remark      string    `json:"remark,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func targetUserID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid user id")
	}
	return id, nil
}

// AdminAdjustBalance applies a manual balance correction with a full audit
// trail. The adjustment amount is positive for recharge and negated for
// deduct.
func AdminAdjustBalance(ledgerSvc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		userID, err := targetUserID(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		var req adjustRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		amount, err := money.Parse(req.Amount)
		if err != nil {
			responses.WriteError(ctx, logg, w,
				pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid amount"))
			return
		}
		if !amount.IsPositive() {
			responses.WriteError(ctx, logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive"))
			return
		}
		if req.Direction == "deduct" {
			amount = amount.Neg()
		}

		adminID := middleware.UserIDFromContext(ctx)
		entry, err := ledgerSvc.ApplyMutation(ctx, ledger.MutationInput{
			UserID:     userID,
			Type:       enums.LedgerEntryTypeAdjustment,
			Amount:     amount,
			Remark:     req.Remark,
			OperatorID: &adminID,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, newEntryView(*entry))
	}
}

// AdminChangeLevel sets a user's tier and tier-gated privileges.
func AdminChangeLevel(memberSvc membership.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		userID, err := targetUserID(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		var req changeLevelRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		level, err := enums.ParseUserLevel(req.Level)
		if err != nil {
			responses.WriteError(ctx, logg, w,
				pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid level"))
			return
		}

		err = memberSvc.ChangeUserLevel(ctx, membership.ChangeLevelInput{
			AdminUserID:   middleware.UserIDFromContext(ctx),
			UserID:        userID,
			NewLevel:      level,
			VIPExpireDate: req.VIPExpireDate,
			DailyQuota:    req.DailyQuota,
			AdvancedAgent: req.AdvancedAgent,
			Remark:        req.Remark,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "ok"})
	}
}

// AdminListOperationLogs returns the audit trail for one user.
func AdminListOperationLogs(auditSvc auditlog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		userID, err := targetUserID(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		limit, offset := validators.Pagination(r)
		logs, err := auditSvc.ListByUserID(ctx, userID, limit, offset)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		views := make([]auditLogView, 0, len(logs))
		for _, row := range logs {
			view := auditLogView{
				ID:          row.ID.String(),
				AdminUserID: row.AdminUserID.String(),
				Operation:   string(row.OperationType),
				Remark:      row.Remark,
				CreatedAt:   row.CreatedAt,
			}
			if detail, dErr := auditlog.DecodeDetail(row.OperationType, row.OperationDetail); dErr == nil {
				view.Detail = detail
			}
			views = append(views, view)
		}
		responses.WriteSuccess(w, views)
	}
}

// AdminListEntries returns any user's ledger history.
func AdminListEntries(ledgerSvc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		userID, err := targetUserID(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		limit, offset := validators.Pagination(r)
		entries, err := ledgerSvc.EntriesForUser(ctx, userID, limit, offset)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		views := make([]entryView, 0, len(entries))
		for _, entry := range entries {
			views = append(views, newEntryView(entry))
		}
		responses.WriteSuccess(w, views)
	}
}
