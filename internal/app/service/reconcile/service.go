// Package reconcile holds the scheduled sweeps over the purchase and subscription ledgers.
// Every sweep is idempotent: rows move only through compare-and-swap updates.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/ptamhub/billing/internal/app/service/gateways"
	"github.com/ptamhub/billing/internal/app/service/notification"
	"github.com/ptamhub/billing/internal/app/service/purchase"
	"github.com/ptamhub/billing/internal/app/service/subscription"
	"github.com/ptamhub/billing/internal/platform/redis"
	"github.com/ptamhub/billing/pkg/config"
	"github.com/ptamhub/billing/pkg/logctx"
	"github.com/ptamhub/billing/pkg/metrics"
)

const (
	JobExpirePendingPayments     = "expire-pending-payments"
	JobExpireCredits             = "expire-credits"
	JobCheckSubscriptionExpiry   = "check-subscription-expiry"
	JobRenewExpiredSubscriptions = "renew-expired-subscriptions"
)

// Jobs lists every sweep in the order a full run executes them.
var Jobs = []string{
	JobExpirePendingPayments,
	JobExpireCredits,
	JobCheckSubscriptionExpiry,
	JobRenewExpiredSubscriptions,
}

const lockTTL = 10 * time.Minute

type Service struct {
	cfg       *config.Config
	db        *gorm.DB
	log       *zap.SugaredLogger
	subs      *subscription.Service
	notes     *notification.Service
	purchases *purchase.Service
	gateways  *gateways.Service
	locker    redis.Locker
	metrics   *metrics.Recorder
	now       func() time.Time
}

func NewService(
	cfg *config.Config,
	db *gorm.DB,
	log *zap.SugaredLogger,
	subs *subscription.Service,
	notes *notification.Service,
	purchases *purchase.Service,
	gws *gateways.Service,
	locker redis.Locker,
	rec *metrics.Recorder,
) *Service {
	if locker == nil {
		locker = redis.NoopLocker{}
	}
	return &Service{
		cfg:       cfg,
		db:        db,
		log:       log,
		subs:      subs,
		notes:     notes,
		purchases: purchases,
		gateways:  gws,
		locker:    locker,
		metrics:   rec,
		now:       time.Now,
	}
}

// Report summarizes one sweep run.
type Report struct {
	Job string `json:"job"`
	// Skipped means another run held the lock.
	Skipped   bool     `json:"skipped,omitempty"`
	Processed int      `json:"processed"`
	IDs       []string `json:"ids"`
	Renewed   int      `json:"renewed,omitempty"`
	Expired   int      `json:"expired,omitempty"`
	Failed    int      `json:"failed,omitempty"`
	// Awaiting counts renewals charged but not yet confirmed by the gateway.
	Awaiting int `json:"awaiting,omitempty"`
}

func (r *Report) add(id string) {
	r.Processed++
	r.IDs = append(r.IDs, id)
}

var ErrUnknownJob = errors.New("unknown job")

// Run executes the named sweep.
func (s *Service) Run(ctx context.Context, job string) (*Report, error) {
	switch job {
	case JobExpirePendingPayments:
		return s.ExpirePendingPayments(ctx)
	case JobExpireCredits:
		return s.ExpireCredits(ctx)
	case JobCheckSubscriptionExpiry:
		return s.CheckSubscriptionExpiry(ctx)
	case JobRenewExpiredSubscriptions:
		return s.RenewExpiredSubscriptions(ctx)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownJob, job)
}

// locked runs fn under the job lock and records its metrics.
func (s *Service) locked(ctx context.Context, job string, fn func(ctx context.Context, r *Report) error) (*Report, error) {
	log := logctx.FromCtx(ctx, s.log).With("job", job)
	report := &Report{Job: job, IDs: []string{}}

	release, ok, err := s.locker.Acquire(ctx, "sweep:"+job, lockTTL)
	if err != nil {
		return nil, err
	}
	if !ok {
		log.Infow("sweep already running, skipped")
		report.Skipped = true
		return report, nil
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			log.Warnw("failed to release sweep lock", "error", err)
		}
	}()

	start := time.Now()
	err = fn(ctx, report)
	s.metrics.SweepRows(job, report.Processed)
	log.Infow("sweep finished", "processed", report.Processed, "failed", report.Failed, "took_ms", metrics.MillisecondsSince(start), "error", err)
	if err != nil {
		return nil, err
	}
	return report, nil
}
