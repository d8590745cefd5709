package usage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/verse-app/verse/internal/config"
	"github.com/verse-app/verse/internal/metrics"
)

// ErrQuotaExceeded carries the fields the 429 detail body reports.
type ErrQuotaExceeded struct {
	CurrentUsage int
	Limit        int
	IsPro        bool
}

func (e *ErrQuotaExceeded) Error() string {
	return fmt.Sprintf("daily limit of %d AI interactions reached (%d used)", e.Limit, e.CurrentUsage)
}

// AsQuotaExceeded unwraps err into an ErrQuotaExceeded, if it is one.
func AsQuotaExceeded(err error) (*ErrQuotaExceeded, bool) {
	var qe *ErrQuotaExceeded
	ok := errors.As(err, &qe)
	return qe, ok
}

type Service struct {
	repo Repository
	cfg  config.UsageConfig
	now  func() time.Time
}

func NewService(repo Repository, cfg config.UsageConfig) *Service {
	return &Service{repo: repo, cfg: cfg, now: time.Now}
}

// Reserve claims one metered call for today. Pro accounts always pass
// and never touch the store. A denial returns both the decision and
// ErrQuotaExceeded so callers can render the 429 detail body.
func (s *Service) Reserve(ctx context.Context, userID uuid.UUID, isPro bool) (*Decision, error) {
	if isPro {
		return &Decision{Allowed: true, Limit: 0, Remaining: -1, IsPro: true}, nil
	}

	limit := s.cfg.DailyLimit
	calls, allowed, err := s.repo.ReserveCall(ctx, userID, Day(s.now()), limit)
	if err != nil {
		return nil, err
	}
	if !allowed {
		metrics.QuotaDenialsTotal.Inc()
		dec := &Decision{Allowed: false, CurrentUsage: calls, Limit: limit, Remaining: 0}
		return dec, &ErrQuotaExceeded{CurrentUsage: calls, Limit: limit}
	}

	return &Decision{
		Allowed:      true,
		CurrentUsage: calls,
		Limit:        limit,
		Remaining:    limit - calls,
	}, nil
}

// Release returns a reservation after the metered call failed upstream,
// so the failure does not consume quota. Pro reservations have nothing
// to return. Release errors are logged, not propagated; the caller is
// already on an error path.
func (s *Service) Release(ctx context.Context, userID uuid.UUID, isPro bool) {
	if isPro {
		return
	}
	if err := s.repo.ReleaseCall(ctx, userID, Day(s.now())); err != nil {
		slog.Error("releasing usage reservation", "user_id", userID, "error", err)
	}
}

// Usage reports today's consumption for the usage endpoint.
func (s *Service) Usage(ctx context.Context, userID uuid.UUID, isPro bool) (*Status, error) {
	if isPro {
		return &Status{IsPro: true, DailyLimit: 0, Remaining: -1}, nil
	}

	rec, err := s.repo.GetDay(ctx, userID, Day(s.now()))
	if err != nil {
		return nil, err
	}
	calls := 0
	if rec != nil {
		calls = rec.LLMCalls
	}

	remaining := s.cfg.DailyLimit - calls
	if remaining < 0 {
		remaining = 0
	}
	return &Status{
		DailyLimit: s.cfg.DailyLimit,
		CallsToday: calls,
		Remaining:  remaining,
	}, nil
}

// Cleanup drops counter rows older than the retention window and
// returns how many went. Safe to run repeatedly.
func (s *Service) Cleanup(ctx context.Context) (int64, error) {
	cutoff := Day(s.now()).AddDate(0, 0, -s.cfg.RetentionDays)
	deleted, err := s.repo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		slog.Info("usage cleanup removed stale records", "deleted", deleted, "cutoff", cutoff.Format("2006-01-02"))
	}
	return deleted, nil
}
