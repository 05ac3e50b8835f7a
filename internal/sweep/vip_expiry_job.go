package sweep

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/mintfield/coinledger-backend/internal/membership"
	"github.com/mintfield/coinledger-backend/pkg/db/models"
	"github.com/mintfield/coinledger-backend/pkg/logger"
)

// memberDowngrader is the slice of the membership service the job depends on.
type memberDowngrader interface {
	ExpiredMemberships(ctx context.Context, cutoff time.Time, limit int) ([]models.User, error)
	HandleUserDowngrade(ctx context.Context, userID uuid.UUID) (*membership.DowngradeResult, error)
}

// VIPExpiryJob downgrades users whose paid tier lapsed. Failures are isolated
// per user so one bad row never blocks the rest of the batch.
type VIPExpiryJob struct {
	members memberDowngrader
	logg    *logger.Logger
	batch   int
	now     func() time.Time
}

// NewVIPExpiryJob builds the membership expiry sweep.
func NewVIPExpiryJob(members memberDowngrader, logg *logger.Logger) *VIPExpiryJob {
	return &VIPExpiryJob{members: members, logg: logg, now: time.Now}
}

func (j *VIPExpiryJob) Name() string { return "vip_expiry" }

func (j *VIPExpiryJob) Run(ctx context.Context) (int, error) {
	expired, err := j.members.ExpiredMemberships(ctx, j.now().UTC(), j.batch)
	if err != nil {
		return 0, err
	}

	var errs error
	downgraded := 0
	for _, user := range expired {
		result, dErr := j.members.HandleUserDowngrade(ctx, user.ID)
		if dErr != nil {
			errs = multierr.Append(errs, fmt.Errorf("user %s: %w", user.ID, dErr))
			if j.logg != nil {
				j.logg.Error(j.logg.WithField(ctx, "user_id", user.ID.String()), "downgrade failed", dErr)
			}
			continue
		}
		if result.Applied {
			downgraded++
		}
	}
	return downgraded, errs
}
