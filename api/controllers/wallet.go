package controllers

import (
	"net/http"
	"time"

	"github.com/mintfield/coinledger-backend/api/middleware"
	"github.com/mintfield/coinledger-backend/api/responses"
	"github.com/mintfield/coinledger-backend/api/validators"
	"github.com/mintfield/coinledger-backend/internal/ledger"
	"github.com/mintfield/coinledger-backend/pkg/db/models"
	"github.com/mintfield/coinledger-backend/pkg/enums"
	pkgerrors "github.com/mintfield/coinledger-backend/pkg/errors"
	"github.com/mintfield/coinledger-backend/pkg/logger"
	"github.com/mintfield/coinledger-backend/pkg/money"
)

type walletView struct {
	Balance        string     `json:"balance"`
	FrozenBalance  string     `json:"frozen_balance"`
	PartnerBalance string     `json:"partner_balance"`
	Level          string     `json:"level"`
	VIPExpireDate  *time.Time `json:"vip_expire_date,omitempty"`
}

type entryView struct {
	ID            string    `json:"id"`
	Type          string    `json:"type"`
	Amount        string    `json:"amount"`
	BeforeBalance string    `json:"before_balance"`
	AfterBalance  string    `json:"after_balance"`
	Remark        string    `json:"remark,omitempty"`
	OrderID       *string   `json:"order_id,omitempty"`
	TaskID        *string   `json:"task_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

type spendRequest struct {
	Amount string `json:"amount" validate:"required"`
	Remark string `json:"remark" validate:"max=500"`
	TaskID string `json:"task_id" validate:"max=100"`
}

func newEntryView(entry models.LedgerEntry) entryView {
	view := entryView{
		ID:            entry.ID.String(),
		Type:          string(entry.Type),
		Amount:        money.Format(entry.Amount),
		BeforeBalance: money.Format(entry.BeforeBalance),
		AfterBalance:  money.Format(entry.AfterBalance),
		Remark:        entry.Remark,
		TaskID:        entry.TaskID,
		CreatedAt:     entry.CreatedAt,
	}
	if entry.OrderID != nil {
		id := entry.OrderID.String()
		view.OrderID = &id
	}
	return view
}

// Wallet returns the caller's balance pools and tier.
func Wallet(ledgerSvc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		user, err := ledgerSvc.Account(ctx, middleware.UserIDFromContext(ctx))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, walletView{
			Balance:        money.Format(user.Balance),
			FrozenBalance:  money.Format(user.FrozenBalance),
			PartnerBalance: money.Format(user.PartnerBalance),
			Level:          string(user.LevelCode),
			VIPExpireDate:  user.VIPExpireDate,
		})
	}
}

// WalletEntries lists the caller's ledger history, newest first.
func WalletEntries(ledgerSvc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		limit, offset := validators.Pagination(r)
		entries, err := ledgerSvc.EntriesForUser(ctx, middleware.UserIDFromContext(ctx), limit, offset)
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

// WalletSpend applies a consume, freeze, or unfreeze mutation for the caller.
// The request amount is always positive; the entry type fixes the direction.
func WalletSpend(ledgerSvc ledger.Service, entryType enums.LedgerEntryType, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req spendRequest
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
		if entryType.IsDebit() {
			amount = amount.Neg()
		}

		input := ledger.MutationInput{
			UserID: middleware.UserIDFromContext(ctx),
			Type:   entryType,
			Amount: amount,
			Remark: req.Remark,
		}
		if req.TaskID != "" {
			input.TaskID = &req.TaskID
		}

		entry, err := ledgerSvc.ApplyMutation(ctx, input)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, newEntryView(*entry))
	}
}
