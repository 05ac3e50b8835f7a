package orders

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/mintfield/coinledger-backend/pkg/logger"
)

const (
	sequenceMod = 1000000
	sequenceTTL = 60 * time.Second
)

// sequencer is the slice of the redis client used for order numbering.
type sequencer interface {
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
	OrderSequenceKey(unixSecond int64) string
}

// NumberGenerator produces order numbers of the form
// {prefix}{unix seconds}{6-digit sequence}. The sequence comes from a
// per-second redis counter so concurrent instances never collide; if redis is
// unavailable a random suffix keeps order creation working.
type NumberGenerator struct {
	prefix string
	seq    sequencer
	logg   *logger.Logger
	now    func() time.Time
}

// NewNumberGenerator wires an order number generator.
func NewNumberGenerator(prefix string, seq sequencer, logg *logger.Logger) *NumberGenerator {
	return &NumberGenerator{prefix: prefix, seq: seq, logg: logg, now: time.Now}
}

// Next returns a fresh order number.
func (g *NumberGenerator) Next(ctx context.Context) string {
	ts := g.now().Unix()
	suffix, err := g.nextSequence(ctx, ts)
	if err != nil {
		if g.logg != nil {
			ctx = g.logg.WithField(ctx, "error", err.Error())
			g.logg.Warn(ctx, "order sequence unavailable, using random suffix")
		}
		suffix = randomSuffix()
	}
	return fmt.Sprintf("%s%d%06d", g.prefix, ts, suffix)
}

func (g *NumberGenerator) nextSequence(ctx context.Context, unixSecond int64) (int64, error) {
	if g.seq == nil {
		return 0, fmt.Errorf("no sequence backend configured")
	}
	count, err := g.seq.IncrWithTTL(ctx, g.seq.OrderSequenceKey(unixSecond), sequenceTTL)
	if err != nil {
		return 0, err
	}
	return count % sequenceMod, nil
}

func randomSuffix() int64 {
	n, err := rand.Int(rand.Reader, big.NewInt(sequenceMod))
	if err != nil {
		return time.Now().UnixNano() % sequenceMod
	}
	return n.Int64()
}
