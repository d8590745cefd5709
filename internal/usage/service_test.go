package usage

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verse-app/verse/internal/config"
)

// fakeRepository mirrors the store's atomic semantics in memory.
type fakeRepository struct {
	counts       map[string]int
	reserveCalls int
	failWith     error
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{counts: map[string]int{}}
}

func (r *fakeRepository) key(userID uuid.UUID, day time.Time) string {
	return userID.String() + "|" + day.Format("2006-01-02")
}

func (r *fakeRepository) ReserveCall(ctx context.Context, userID uuid.UUID, day time.Time, limit int) (int, bool, error) {
	r.reserveCalls++
	if r.failWith != nil {
		return 0, false, r.failWith
	}
	k := r.key(userID, day)
	if r.counts[k] >= limit {
		return r.counts[k], false, nil
	}
	r.counts[k]++
	return r.counts[k], true, nil
}

func (r *fakeRepository) ReleaseCall(ctx context.Context, userID uuid.UUID, day time.Time) error {
	k := r.key(userID, day)
	if r.counts[k] > 0 {
		r.counts[k]--
	}
	return nil
}

func (r *fakeRepository) GetDay(ctx context.Context, userID uuid.UUID, day time.Time) (*Record, error) {
	if r.failWith != nil {
		return nil, r.failWith
	}
	k := r.key(userID, day)
	if _, ok := r.counts[k]; !ok {
		return nil, nil
	}
	return &Record{UserID: userID, Day: day, LLMCalls: r.counts[k]}, nil
}

func (r *fakeRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	var deleted int64
	for k := range r.counts {
		day, _ := time.Parse("2006-01-02", k[len(k)-10:])
		if day.Before(cutoff) {
			delete(r.counts, k)
			deleted++
		}
	}
	return deleted, nil
}

func newTestService(repo *fakeRepository, limit int) *Service {
	svc := NewService(repo, config.UsageConfig{DailyLimit: limit, RetentionDays: 30})
	return svc
}

func TestReserve_UnderLimit(t *testing.T) {
	repo := newFakeRepository()
	svc := newTestService(repo, 10)
	userID := uuid.New()

	dec, err := svc.Reserve(context.Background(), userID, false)
	require.NoError(t, err)

	assert.True(t, dec.Allowed)
	assert.Equal(t, 1, dec.CurrentUsage)
	assert.Equal(t, 10, dec.Limit)
	assert.Equal(t, 9, dec.Remaining)
}

func TestReserve_DeniedAtLimit(t *testing.T) {
	repo := newFakeRepository()
	svc := newTestService(repo, 3)
	userID := uuid.New()

	for i := 0; i < 3; i++ {
		_, err := svc.Reserve(context.Background(), userID, false)
		require.NoError(t, err)
	}

	dec, err := svc.Reserve(context.Background(), userID, false)
	require.Error(t, err)

	qe, ok := AsQuotaExceeded(err)
	require.True(t, ok)
	assert.Equal(t, 3, qe.CurrentUsage)
	assert.Equal(t, 3, qe.Limit)
	assert.False(t, qe.IsPro)

	assert.False(t, dec.Allowed)
	assert.Equal(t, 0, dec.Remaining)
}

func TestReserve_ProBypassesStore(t *testing.T) {
	repo := newFakeRepository()
	svc := newTestService(repo, 1)
	userID := uuid.New()

	for i := 0; i < 50; i++ {
		dec, err := svc.Reserve(context.Background(), userID, true)
		require.NoError(t, err)
		assert.True(t, dec.Allowed)
		assert.Equal(t, 0, dec.Limit)
		assert.Equal(t, -1, dec.Remaining)
		assert.True(t, dec.IsPro)
	}
	assert.Zero(t, repo.reserveCalls, "pro reservations must not touch the store")
}

func TestReserve_StoreErrorPropagates(t *testing.T) {
	repo := newFakeRepository()
	repo.failWith = assert.AnError
	svc := newTestService(repo, 10)

	_, err := svc.Reserve(context.Background(), uuid.New(), false)
	require.Error(t, err)
	_, isQuota := AsQuotaExceeded(err)
	assert.False(t, isQuota, "store failure must not masquerade as a denial")
}

func TestRelease_ReturnsReservation(t *testing.T) {
	repo := newFakeRepository()
	svc := newTestService(repo, 2)
	userID := uuid.New()

	_, err := svc.Reserve(context.Background(), userID, false)
	require.NoError(t, err)
	_, err = svc.Reserve(context.Background(), userID, false)
	require.NoError(t, err)

	// At the limit now. Releasing one frees one slot.
	svc.Release(context.Background(), userID, false)

	dec, err := svc.Reserve(context.Background(), userID, false)
	require.NoError(t, err)
	assert.True(t, dec.Allowed)
}

func TestRelease_FloorsAtZero(t *testing.T) {
	repo := newFakeRepository()
	svc := newTestService(repo, 2)
	userID := uuid.New()

	svc.Release(context.Background(), userID, false)

	status, err := svc.Usage(context.Background(), userID, false)
	require.NoError(t, err)
	assert.Equal(t, 0, status.CallsToday)
}

func TestUsage_FreeUser(t *testing.T) {
	repo := newFakeRepository()
	svc := newTestService(repo, 10)
	userID := uuid.New()

	for i := 0; i < 4; i++ {
		_, err := svc.Reserve(context.Background(), userID, false)
		require.NoError(t, err)
	}

	status, err := svc.Usage(context.Background(), userID, false)
	require.NoError(t, err)
	assert.Equal(t, &Status{DailyLimit: 10, CallsToday: 4, Remaining: 6}, status)
}

func TestUsage_NoRecordYet(t *testing.T) {
	repo := newFakeRepository()
	svc := newTestService(repo, 10)

	status, err := svc.Usage(context.Background(), uuid.New(), false)
	require.NoError(t, err)
	assert.Equal(t, &Status{DailyLimit: 10, CallsToday: 0, Remaining: 10}, status)
}

func TestUsage_ProSentinel(t *testing.T) {
	repo := newFakeRepository()
	svc := newTestService(repo, 10)

	status, err := svc.Usage(context.Background(), uuid.New(), true)
	require.NoError(t, err)
	assert.Equal(t, &Status{IsPro: true, DailyLimit: 0, CallsToday: 0, Remaining: -1}, status)
}

func TestDayBoundary_CountersResetAtUTCMidnight(t *testing.T) {
	repo := newFakeRepository()
	svc := newTestService(repo, 1)
	userID := uuid.New()

	base := time.Date(2026, 8, 28, 23, 59, 0, 0, time.UTC)
	svc.now = func() time.Time { return base }

	_, err := svc.Reserve(context.Background(), userID, false)
	require.NoError(t, err)
	_, err = svc.Reserve(context.Background(), userID, false)
	require.Error(t, err)

	// Two minutes later it is a new UTC day with a fresh counter.
	svc.now = func() time.Time { return base.Add(2 * time.Minute) }
	dec, err := svc.Reserve(context.Background(), userID, false)
	require.NoError(t, err)
	assert.True(t, dec.Allowed)
}

func TestDay_NormalizesZoneToUTC(t *testing.T) {
	est := time.FixedZone("EST", -5*3600)
	// 23:00 EST on the 27th is 04:00 UTC on the 28th.
	local := time.Date(2026, 8, 27, 23, 0, 0, 0, est)
	assert.Equal(t, time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC), Day(local))
}

func TestCleanup_RemovesOnlyStaleRows(t *testing.T) {
	repo := newFakeRepository()
	svc := newTestService(repo, 10)
	userID := uuid.New()

	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	repo.counts[repo.key(userID, Day(now.AddDate(0, 0, -40)))] = 5
	repo.counts[repo.key(userID, Day(now.AddDate(0, 0, -10)))] = 3
	repo.counts[repo.key(userID, Day(now))] = 1

	deleted, err := svc.Cleanup(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
	assert.Len(t, repo.counts, 2)
}

func TestCleanup_KeepsRowOnTheCutoffDay(t *testing.T) {
	repo := newFakeRepository()
	svc := newTestService(repo, 10)
	userID := uuid.New()

	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	repo.counts[repo.key(userID, Day(now.AddDate(0, 0, -31)))] = 2
	repo.counts[repo.key(userID, Day(now.AddDate(0, 0, -30)))] = 4
	repo.counts[repo.key(userID, Day(now.AddDate(0, 0, -29)))] = 6

	deleted, err := svc.Cleanup(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	// A row exactly RetentionDays old sits on the cutoff and survives.
	_, kept := repo.counts[repo.key(userID, Day(now.AddDate(0, 0, -30)))]
	assert.True(t, kept)
	_, stale := repo.counts[repo.key(userID, Day(now.AddDate(0, 0, -31)))]
	assert.False(t, stale)
}
