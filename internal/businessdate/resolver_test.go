package businessdate

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/faacuromano/control-gastronomicoV2-sub000/pkg/db/models"
)

type stubShiftSource struct {
	shift *models.Shift
	err   error
}

func (s *stubShiftSource) FindOpenShift(ctx context.Context, tenantID uuid.UUID) (*models.Shift, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.shift == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return s.shift, nil
}

func utcTenant(cutoff int) *models.Tenant {
	return &models.Tenant{
		ID:         uuid.New(),
		Timezone:   "UTC",
		CutoffHour: cutoff,
	}
}

func TestResolveWallClockAroundCutoff(t *testing.T) {
	resolver, err := NewResolver(6, nil)
	require.NoError(t, err)
	tenant := utcTenant(6)

	cases := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{
			name: "just before cutoff belongs to previous day",
			now:  time.Date(2026, 3, 15, 5, 59, 0, 0, time.UTC),
			want: time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "at cutoff starts the new day",
			now:  time.Date(2026, 3, 15, 6, 0, 0, 0, time.UTC),
			want: time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "after cutoff stays on the new day",
			now:  time.Date(2026, 3, 15, 6, 1, 0, 0, time.UTC),
			want: time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "midnight belongs to previous day",
			now:  time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
			want: time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := resolver.ResolveWallClock(tenant, tc.now)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestResolveWallClockUsesTenantTimezone(t *testing.T) {
	resolver, err := NewResolver(6, nil)
	require.NoError(t, err)
	tenant := &models.Tenant{
		ID:         uuid.New(),
		Timezone:   "America/Argentina/Buenos_Aires",
		CutoffHour: 6,
	}

	// 07:00 UTC is 04:00 in Buenos Aires (UTC-3), still before cutoff.
	now := time.Date(2026, 3, 15, 7, 0, 0, 0, time.UTC)
	got, err := resolver.ResolveWallClock(tenant, now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC), got)
}

func TestResolveWallClockInvalidTimezone(t *testing.T) {
	resolver, err := NewResolver(6, nil)
	require.NoError(t, err)
	tenant := &models.Tenant{ID: uuid.New(), Timezone: "Neverland/Nowhere", CutoffHour: 6}

	_, err = resolver.ResolveWallClock(tenant, time.Now())
	assert.Error(t, err)
}

func TestResolveOpenShiftPinsDate(t *testing.T) {
	pinned := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	source := &stubShiftSource{shift: &models.Shift{
		ID:           uuid.New(),
		BusinessDate: pinned,
	}}
	resolver, err := NewResolver(6, source)
	require.NoError(t, err)
	tenant := utcTenant(6)

	// Wall clock is well past cutoff on the 15th, but the open shift keeps
	// the 14th alive until it closes.
	now := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	got, err := resolver.Resolve(context.Background(), tenant, now)
	require.NoError(t, err)
	assert.Equal(t, pinned, got)
}

func TestResolveNoOpenShiftFallsBackToCutoffRule(t *testing.T) {
	resolver, err := NewResolver(6, &stubShiftSource{})
	require.NoError(t, err)
	tenant := utcTenant(6)

	now := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	got, err := resolver.Resolve(context.Background(), tenant, now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC), got)
}

func TestTenantCutoffOverridesDefault(t *testing.T) {
	resolver, err := NewResolver(6, nil)
	require.NoError(t, err)

	tenant := utcTenant(3)
	assert.Equal(t, 3, resolver.CutoffHourFor(tenant))

	// 04:00 with a 3 AM cutoff is already the new day.
	got, err := resolver.ResolveWallClock(tenant, time.Date(2026, 3, 15, 4, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC), got)
}

func TestNewResolverRejectsBadCutoff(t *testing.T) {
	_, err := NewResolver(24, nil)
	assert.Error(t, err)
	_, err = NewResolver(-1, nil)
	assert.Error(t, err)
}
