package auditlog

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/mintfield/coinledger-backend/pkg/db/models"
	"github.com/mintfield/coinledger-backend/pkg/enums"
)

type fakeRepository struct {
	createFn func(ctx context.Context, log *models.AdminOperationLog) error
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepository) Create(ctx context.Context, log *models.AdminOperationLog) error {
	if f.createFn != nil {
		return f.createFn(ctx, log)
	}
	return nil
}

func (f *fakeRepository) ListByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.AdminOperationLog, error) {
	return nil, nil
}

func TestCreateLogEncodesDetail(t *testing.T) {
	repo := &fakeRepository{}
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	var created *models.AdminOperationLog
	repo.createFn = func(ctx context.Context, log *models.AdminOperationLog) error {
		created = log
		return nil
	}

	admin := uuid.New()
	target := uuid.New()
	detail := DeductDetail{
		Amount:        decimal.RequireFromString("-30.00"),
		BeforeBalance: decimal.RequireFromString("100.00"),
		AfterBalance:  decimal.RequireFromString("70.00"),
	}

	log, err := svc.CreateLog(context.Background(), nil, CreateLogInput{
		AdminUserID: admin,
		UserID:      target,
		Detail:      detail,
		Remark:      "manual correction",
	})
	if err != nil {
		t.Fatalf("CreateLog: %v", err)
	}
	if created == nil || log != created {
		t.Fatal("expected repo create with returned row")
	}
	if created.OperationType != enums.AdminOperationTypeDeduct {
		t.Fatalf("operation type not derived from detail: %s", created.OperationType)
	}

	var decoded DeductDetail
	if err := json.Unmarshal(created.OperationDetail, &decoded); err != nil {
		t.Fatalf("stored detail not json: %v", err)
	}
	if !decoded.AfterBalance.Equal(detail.AfterBalance) {
		t.Fatalf("detail round trip mismatch: %+v", decoded)
	}
}

func TestCreateLogValidation(t *testing.T) {
	svc, err := NewService(&fakeRepository{})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	if _, err := svc.CreateLog(context.Background(), nil, CreateLogInput{
		AdminUserID: uuid.New(),
		Detail:      RechargeDetail{},
	}); err == nil {
		t.Fatal("expected error for missing target user")
	}
	if _, err := svc.CreateLog(context.Background(), nil, CreateLogInput{
		AdminUserID: uuid.New(),
		UserID:      uuid.New(),
	}); err == nil {
		t.Fatal("expected error for missing detail")
	}
}

func TestCreateLogRepoErrorBubbles(t *testing.T) {
	repo := &fakeRepository{}
	svc, _ := NewService(repo)

	boom := errors.New("db down")
	repo.createFn = func(ctx context.Context, log *models.AdminOperationLog) error { return boom }

	if _, err := svc.CreateLog(context.Background(), nil, CreateLogInput{
		AdminUserID: uuid.New(),
		UserID:      uuid.New(),
		Detail:      ResetPasswordDetail{Forced: true},
	}); !errors.Is(err, boom) {
		t.Fatalf("expected repo error, got %v", err)
	}
}

func TestDetailRoundTripAllVariants(t *testing.T) {
	expire := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	variants := []OperationDetail{
		RechargeDetail{Amount: decimal.NewFromInt(10)},
		DeductDetail{Amount: decimal.NewFromInt(-10)},
		ChangeLevelDetail{
			BeforeLevel:             enums.UserLevelSVIP,
			AfterLevel:              enums.UserLevelNormal,
			BeforeVIPExpireDate:     &expire,
			PartnerBalanceForfeited: decimal.RequireFromString("12.50"),
		},
		ChangeStatusDetail{BeforeActive: true, AfterActive: false},
		ResetPasswordDetail{Forced: true},
	}

	for _, variant := range variants {
		raw, err := EncodeDetail(variant)
		if err != nil {
			t.Fatalf("EncodeDetail(%T): %v", variant, err)
		}
		decoded, err := DecodeDetail(variant.OperationType(), raw)
		if err != nil {
			t.Fatalf("DecodeDetail(%T): %v", variant, err)
		}
		if decoded.OperationType() != variant.OperationType() {
			t.Fatalf("operation type lost for %T", variant)
		}
	}
}

func TestDecodeDetailRejectsUnknownType(t *testing.T) {
	if _, err := DecodeDetail(enums.AdminOperationType("purge"), json.RawMessage(`{}`)); err == nil {
		t.Fatal("expected error for unknown operation type")
	}
	if _, err := DecodeDetail(enums.AdminOperationTypeRecharge, nil); err == nil {
		t.Fatal("expected error for empty payload")
	}
}
