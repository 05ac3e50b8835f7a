package sweep

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/mintfield/coinledger-backend/internal/membership"
	"github.com/mintfield/coinledger-backend/pkg/db/models"
	"github.com/mintfield/coinledger-backend/pkg/logger"
)

type fakeMembers struct {
	expired  []models.User
	listErr  error
	failFor  map[uuid.UUID]error
	handled  []uuid.UUID
	baseline map[uuid.UUID]bool
}

func (f *fakeMembers) ExpiredMemberships(ctx context.Context, cutoff time.Time, limit int) ([]models.User, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.expired, nil
}

func (f *fakeMembers) HandleUserDowngrade(ctx context.Context, userID uuid.UUID) (*membership.DowngradeResult, error) {
	if err := f.failFor[userID]; err != nil {
		return nil, err
	}
	f.handled = append(f.handled, userID)
	return &membership.DowngradeResult{UserID: userID, Applied: !f.baseline[userID]}, nil
}

func TestVIPExpiryJobIsolatesFailures(t *testing.T) {
	good := models.User{ID: uuid.New()}
	bad := models.User{ID: uuid.New()}
	alsoGood := models.User{ID: uuid.New()}

	members := &fakeMembers{
		expired: []models.User{good, bad, alsoGood},
		failFor: map[uuid.UUID]error{bad.ID: errors.New("deadlock detected")},
	}
	job := NewVIPExpiryJob(members, logger.New(logger.Options{ServiceName: "sweep-test"}))

	count, err := job.Run(context.Background())
	if err == nil {
		t.Fatal("expected combined error for failed user")
	}
	if count != 2 {
		t.Fatalf("downgraded count = %d, want 2", count)
	}
	if len(members.handled) != 2 {
		t.Fatalf("handled = %v, failure must not stop the batch", members.handled)
	}
}

func TestVIPExpiryJobCountsOnlyAppliedDowngrades(t *testing.T) {
	applied := models.User{ID: uuid.New()}
	raced := models.User{ID: uuid.New()}

	members := &fakeMembers{
		expired:  []models.User{applied, raced},
		baseline: map[uuid.UUID]bool{raced.ID: true},
	}
	job := NewVIPExpiryJob(members, nil)

	count, err := job.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if count != 1 {
		t.Fatalf("downgraded count = %d, want 1", count)
	}
}

func TestVIPExpiryJobListFailure(t *testing.T) {
	members := &fakeMembers{listErr: errors.New("db down")}
	job := NewVIPExpiryJob(members, nil)

	if _, err := job.Run(context.Background()); err == nil {
		t.Fatal("expected list error to surface")
	}
}
