package polling

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"
	"go.uber.org/multierr"

	"github.com/rangolink/merchant-bridge/pkg/db/models"
	pkgerrors "github.com/rangolink/merchant-bridge/pkg/errors"
	"github.com/rangolink/merchant-bridge/pkg/logger"
	"github.com/rangolink/merchant-bridge/pkg/metrics"
)

const (
	defaultSweepInterval = time.Minute
	defaultMaxAttempts   = 3
	defaultRetryBackoff  = 2 * time.Second
)

// credentialLister enumerates the tenants to sweep.
type credentialLister interface {
	List(ctx context.Context) ([]models.Company, error)
}

// pollRunner runs one poll cycle for one tenant.
type pollRunner interface {
	Poll(ctx context.Context, tenantID string) (*Summary, error)
}

// WorkerParams configure the sweep worker.
type WorkerParams struct {
	Logger       *logger.Logger
	Credentials  credentialLister
	Poller       pollRunner
	Lock         Lock
	Metrics      *metrics.PollerMetrics
	Interval     time.Duration
	MaxAttempts  int
	RetryBackoff time.Duration
}

// Worker sweeps every registered tenant on a fixed cadence. The Redis lock
// keeps concurrent worker replicas from double-polling; a tenant that fails
// its cycle never blocks the tenants after it.
type Worker struct {
	logg        *logger.Logger
	creds       credentialLister
	poller      pollRunner
	lock        Lock
	metrics     *metrics.PollerMetrics
	interval    time.Duration
	maxAttempts int
	backoff     time.Duration
}

// NewWorker builds a sweep worker.
func NewWorker(params WorkerParams) (*Worker, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Credentials == nil {
		return nil, fmt.Errorf("credential store required")
	}
	if params.Poller == nil {
		return nil, fmt.Errorf("poller required")
	}
	if params.Lock == nil {
		return nil, fmt.Errorf("lock required")
	}
	interval := params.Interval
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	maxAttempts := params.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	backoff := params.RetryBackoff
	if backoff <= 0 {
		backoff = defaultRetryBackoff
	}
	return &Worker{
		logg:        params.Logger,
		creds:       params.Credentials,
		poller:      params.Poller,
		lock:        params.Lock,
		metrics:     params.Metrics,
		interval:    interval,
		maxAttempts: maxAttempts,
		backoff:     backoff,
	}, nil
}

// Run sweeps immediately, then on every tick until the context is canceled.
func (w *Worker) Run(ctx context.Context) error {
	if err := w.Sweep(ctx); err != nil {
		w.logg.Error(ctx, "sweep failed", err)
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logg.Info(ctx, "poll worker context canceled")
			return ctx.Err()
		case <-ticker.C:
			if err := w.Sweep(ctx); err != nil {
				w.logg.Error(ctx, "sweep failed", err)
			}
		}
	}
}

// Sweep polls every tenant once. It returns the combined per-tenant errors;
// a partial sweep is not retried as a whole because each tenant cycle is
// retried on its own.
func (w *Worker) Sweep(ctx context.Context) error {
	locked, err := w.lock.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("lock acquire: %w", err)
	}
	if !locked {
		w.logg.Info(ctx, "another worker instance holds the sweep lock; skipping")
		return nil
	}
	defer func() {
		if relErr := w.lock.Release(ctx); relErr != nil {
			w.logg.Error(ctx, "failed to release sweep lock", relErr)
		}
	}()

	companies, err := w.creds.List(ctx)
	if err != nil {
		return fmt.Errorf("listing tenants: %w", err)
	}

	var combined error
	for _, company := range companies {
		if err := w.sweepTenant(ctx, company.TenantID); err != nil {
			combined = multierr.Append(combined, fmt.Errorf("tenant %s: %w", company.TenantID, err))
		}
	}
	return combined
}

func (w *Worker) sweepTenant(ctx context.Context, tenantID string) error {
	tctx := w.logg.WithTenantID(ctx, tenantID)
	start := time.Now()

	var summary *Summary
	backoff := retry.WithMaxRetries(uint64(w.maxAttempts-1), retry.NewConstant(w.backoff))
	err := retry.Do(tctx, backoff, func(ctx context.Context) error {
		var pollErr error
		summary, pollErr = w.poller.Poll(ctx, tenantID)
		if pollErr == nil {
			return nil
		}
		// Misconfigured or unknown tenants never heal within a sweep.
		if pkgerrors.IsCode(pollErr, pkgerrors.CodeConfig) || pkgerrors.IsCode(pollErr, pkgerrors.CodeNotFound) {
			return pollErr
		}
		return retry.RetryableError(pollErr)
	})

	w.observeDuration(tenantID, time.Since(start))
	if err != nil {
		w.logg.Error(tctx, "tenant poll cycle failed", err)
		w.recordFailure(tenantID)
		return err
	}

	lctx := w.logg.WithFields(tctx, map[string]any{
		"received":     summary.Received,
		"processed":    summary.Processed,
		"acknowledged": summary.Acknowledged,
	})
	if summary.Received == 0 {
		w.logg.Debug(lctx, "tenant poll cycle idle")
	} else {
		w.logg.Info(lctx, "tenant poll cycle complete")
	}
	w.recordSuccess(tenantID, summary.Processed)
	return nil
}

func (w *Worker) observeDuration(tenant string, d time.Duration) {
	if w.metrics == nil {
		return
	}
	w.metrics.ObserveDuration(tenant, d)
}

func (w *Worker) recordSuccess(tenant string, processed int) {
	if w.metrics == nil {
		return
	}
	w.metrics.IncSuccess(tenant)
	if processed > 0 {
		w.metrics.AddEventsProcessed(tenant, processed)
	}
}

func (w *Worker) recordFailure(tenant string) {
	if w.metrics == nil {
		return
	}
	w.metrics.IncFailure(tenant)
}
