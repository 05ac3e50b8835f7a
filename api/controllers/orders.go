package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mintfield/coinledger-backend/api/middleware"
	"github.com/mintfield/coinledger-backend/api/responses"
	"github.com/mintfield/coinledger-backend/api/validators"
	"github.com/mintfield/coinledger-backend/internal/orders"
	"github.com/mintfield/coinledger-backend/pkg/db/models"
	pkgerrors "github.com/mintfield/coinledger-backend/pkg/errors"
	"github.com/mintfield/coinledger-backend/pkg/logger"
	"github.com/mintfield/coinledger-backend/pkg/money"
)

type orderView struct {
	OrderNo       string     `json:"order_no"`
	Amount        string     `json:"amount"`
	PaymentStatus string     `json:"payment_status"`
	Remark        string     `json:"remark,omitempty"`
	OrderExpireAt *time.Time `json:"order_expire_at,omitempty"`
	PaidAt        *time.Time `json:"paid_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

type createOrderRequest struct {
	Amount string `json:"amount" validate:"required"`
	Remark string `json:"remark" validate:"max=500"`
}

func newOrderView(order *models.RechargeOrder) orderView {
	return orderView{
		OrderNo:       order.OrderNo,
		Amount:        money.Format(order.Amount),
		PaymentStatus: string(order.PaymentStatus),
		Remark:        order.Remark,
		OrderExpireAt: order.OrderExpireAt,
		PaidAt:        order.PaidAt,
		CreatedAt:     order.CreatedAt,
	}
}

// CreateOrder opens a pending recharge order for the caller.
func CreateOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req createOrderRequest
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

		order, err := svc.CreateOrder(ctx, orders.CreateOrderInput{
			UserID: middleware.UserIDFromContext(ctx),
			Amount: amount,
			Remark: req.Remark,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newOrderView(order))
	}
}

// ListOrders returns the caller's orders, newest first.
func ListOrders(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		limit, offset := validators.Pagination(r)
		list, err := svc.ListForUser(ctx, middleware.UserIDFromContext(ctx), limit, offset)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		views := make([]orderView, 0, len(list))
		for i := range list {
			views = append(views, newOrderView(&list[i]))
		}
		responses.WriteSuccess(w, views)
	}
}

// GetOrder returns one of the caller's orders by number.
func GetOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		order, err := svc.GetOrder(ctx, chi.URLParam(r, "orderNo"))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if order.UserID != middleware.UserIDFromContext(ctx) {
			responses.WriteError(ctx, logg, w, orders.ErrOrderNotFound)
			return
		}
		responses.WriteSuccess(w, newOrderView(order))
	}
}

// CancelOrder cancels one of the caller's pending orders.
func CancelOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		orderNo := chi.URLParam(r, "orderNo")

		order, err := svc.GetOrder(ctx, orderNo)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if order.UserID != middleware.UserIDFromContext(ctx) {
			responses.WriteError(ctx, logg, w, orders.ErrOrderNotFound)
			return
		}

		cancelled, err := svc.CancelOrder(ctx, orderNo, "cancelled by user")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderView(cancelled))
	}
}

// PaymentCallback settles an order from the payment gateway. The gateway
// retries until it reads the literal body "success", so the acknowledgement
// is plain text rather than the JSON envelope.
func PaymentCallback(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if err := r.ParseForm(); err != nil {
			responses.WriteError(ctx, logg, w,
				pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid callback form"))
			return
		}
		params := make(map[string]string, len(r.PostForm))
		for key := range r.PostForm {
			params[key] = r.PostForm.Get(key)
		}

		if _, err := svc.ConfirmPayment(ctx, params); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("success"))
	}
}
