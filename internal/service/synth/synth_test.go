package synth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/davidleathers/dce-fixture-synth/internal/domain/errors"
	"github.com/davidleathers/dce-fixture-synth/internal/domain/fixture"
	"github.com/davidleathers/dce-fixture-synth/internal/domain/values"
)

var testAnchor = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

type MockRecorder struct {
	mock.Mock
}

func (m *MockRecorder) RecordStage(ctx context.Context, stage string, rows int, elapsed time.Duration) {
	m.Called(ctx, stage, rows, elapsed)
}

func (m *MockRecorder) RecordViolations(ctx context.Context, n int) {
	m.Called(ctx, n)
}

func (m *MockRecorder) RecordDNCSize(ctx context.Context, n int) {
	m.Called(ctx, n)
}

func generate(t *testing.T, p Params, opts ...Option) *Dataset {
	t.Helper()
	g, err := NewGenerator(zaptest.NewLogger(t), p, opts...)
	require.NoError(t, err)
	ds, err := g.Generate(context.Background())
	require.NoError(t, err)
	return ds
}

func rows[T interface{ Record() []string }](records []T) [][]string {
	out := make([][]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.Record())
	}
	return out
}

func TestGenerate_Deterministic(t *testing.T) {
	p := DefaultParams(testAnchor)
	first := generate(t, p)
	second := generate(t, p)

	assert.Equal(t, rows(first.Leads), rows(second.Leads))
	assert.Equal(t, rows(first.Attempts), rows(second.Attempts))
	assert.Equal(t, rows(first.Conversions), rows(second.Conversions))
	assert.Equal(t, rows(first.DNC), rows(second.DNC))
	assert.Equal(t, first.RunID, second.RunID)

	t.Run("different seed diverges", func(t *testing.T) {
		other := p
		other.Seed = 7
		ds := generate(t, other)
		assert.NotEqual(t, rows(first.Leads), rows(ds.Leads))
		assert.NotEqual(t, first.RunID, ds.RunID)
	})
}

func TestGenerate_ReferentialIntegrity(t *testing.T) {
	ds := generate(t, DefaultParams(testAnchor))

	leadsByID := make(map[int64]fixture.Lead, len(ds.Leads))
	hashes := make(map[string]bool, len(ds.Leads))
	for i, l := range ds.Leads {
		assert.Equal(t, int64(i+1), l.LeadID)
		assert.Equal(t, values.NewPhoneHashForIndex(l.LeadID), l.PhoneHash)
		leadsByID[l.LeadID] = l
		hashes[l.PhoneHash.String()] = true
	}
	assert.Len(t, hashes, len(ds.Leads), "phone hashes must be distinct")

	for i, a := range ds.Attempts {
		assert.Equal(t, int64(i+1), a.AttemptID)
		_, ok := leadsByID[a.LeadID]
		assert.True(t, ok, "attempt %d references unknown lead %d", a.AttemptID, a.LeadID)
		if i > 0 {
			assert.GreaterOrEqual(t, a.LeadID, ds.Attempts[i-1].LeadID)
		}
	}

	for i, c := range ds.Conversions {
		assert.Equal(t, int64(i+1), c.ConversionID)
		_, ok := leadsByID[c.LeadID]
		assert.True(t, ok)
	}

	seen := make(map[string]bool)
	for _, d := range ds.DNC {
		assert.True(t, hashes[d.PhoneHash.String()])
		assert.False(t, seen[d.PhoneHash.String()], "dnc entries must be distinct")
		seen[d.PhoneHash.String()] = true
	}
}

func TestGenerate_ConsentAndTemporalOrdering(t *testing.T) {
	p := DefaultParams(testAnchor)
	p.Leads = 1000
	ds := generate(t, p)

	created := make(map[int64]time.Time)
	lookback := testAnchor.Add(-time.Duration(p.LookbackDays+1) * 24 * time.Hour)
	for _, l := range ds.Leads {
		created[l.LeadID] = l.CreatedAt
		assert.False(t, l.CreatedAt.After(testAnchor))
		assert.True(t, l.CreatedAt.After(lookback))
		assert.Equal(t, 0, l.CreatedAt.Nanosecond())
		if l.OptOutAt != nil {
			assert.True(t, l.ConsentFlag, "opt-out without consent on lead %d", l.LeadID)
			assert.False(t, l.OptOutAt.Before(l.CreatedAt))
		}
	}
	for _, a := range ds.Attempts {
		assert.False(t, a.AttemptTS.Before(created[a.LeadID]), "attempt %d precedes lead creation", a.AttemptID)
	}
	for _, c := range ds.Conversions {
		assert.False(t, c.ConversionTS.Before(created[c.LeadID]))
		cents := c.Revenue.ToCents()
		assert.GreaterOrEqual(t, cents, int64(5000))
		assert.LessOrEqual(t, cents, int64(35000))
		assert.Regexp(t, `^\d+\.\d{2}$`, c.Revenue.String())
	}

	assert.Equal(t, ds.Stats.OptOuts, countIf(ds.Leads, fixture.Lead.HasOptedOut))
}

func countIf[T any](items []T, fn func(T) bool) int {
	n := 0
	for _, it := range items {
		if fn(it) {
			n++
		}
	}
	return n
}

func TestGenerate_Cardinality(t *testing.T) {
	p := DefaultParams(testAnchor)
	ds := generate(t, p)

	perLead := make(map[int64]int)
	for _, a := range ds.Attempts {
		perLead[a.LeadID]++
	}
	for id, n := range perLead {
		assert.LessOrEqual(t, n, p.MaxAttempts, "lead %d", id)
	}

	converted := make(map[int64]int)
	for _, c := range ds.Conversions {
		converted[c.LeadID]++
	}
	for id, n := range converted {
		assert.Equal(t, 1, n, "lead %d", id)
	}

	assert.Len(t, ds.DNC, 14) // round(0.07 * 200)
	assert.Equal(t, len(ds.Attempts), ds.Stats.Attempts)
}

func TestGenerate_ViolationRate(t *testing.T) {
	if testing.Short() {
		t.Skip("large run")
	}
	p := DefaultParams(testAnchor)
	p.Leads = 10000
	ds := generate(t, p)
	require.NotEmpty(t, ds.Attempts)

	quiet := countIf(ds.Attempts, func(a fixture.ContactAttempt) bool {
		return fixture.IsQuietHour(a.AttemptTS)
	})
	fraction := float64(quiet) / float64(len(ds.Attempts))
	assert.InDelta(t, p.PViolation, fraction, 0.02)
	assert.Equal(t, ds.Stats.Violations, quiet)
}

func TestGenerate_ViolationExtremes(t *testing.T) {
	p := DefaultParams(testAnchor)

	p.PViolation = 0
	ds := generate(t, p)
	for _, a := range ds.Attempts {
		assert.False(t, fixture.IsQuietHour(a.AttemptTS))
	}

	p.PViolation = 1
	ds = generate(t, p)
	for _, a := range ds.Attempts {
		assert.True(t, fixture.IsQuietHour(a.AttemptTS))
	}
	assert.Equal(t, len(ds.Attempts), ds.Stats.Violations)
}

func TestGenerate_AttemptLagBound(t *testing.T) {
	tests := []struct {
		name       string
		windowDays int
		pViolation float64
		maxLag     time.Duration
	}{
		{"shift only, same-day window", 0, 0, 23*time.Hour + 59*time.Minute + 5*time.Hour},
		{"every attempt forced, same-day window", 0, 1, 48*time.Hour + 59*time.Minute},
		{"every attempt forced, six-day window", 6, 1, 6*24*time.Hour + 48*time.Hour + 59*time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultParams(testAnchor)
			p.Leads = 2000
			p.AttemptWindowDays = tt.windowDays
			p.PViolation = tt.pViolation
			ds := generate(t, p)
			require.NotEmpty(t, ds.Attempts)

			created := make(map[int64]time.Time, len(ds.Leads))
			for _, l := range ds.Leads {
				created[l.LeadID] = l.CreatedAt
			}
			var longest time.Duration
			for _, a := range ds.Attempts {
				lag := a.AttemptTS.Sub(created[a.LeadID])
				assert.GreaterOrEqual(t, lag, time.Duration(0))
				longest = max(longest, lag)
			}
			assert.LessOrEqual(t, longest, tt.maxLag)
			// Forced quiet hours routinely land past the nominal window.
			if tt.pViolation == 1 {
				assert.Greater(t, longest, time.Duration(tt.windowDays)*24*time.Hour+24*time.Hour)
			}
		})
	}
}

func TestGenerate_FiveLeadScenario(t *testing.T) {
	p := DefaultParams(testAnchor)
	p.Leads = 5
	p.PConsent = 1
	p.POptOut = 0
	p.PViolation = 0
	p.MaxAttempts = 0
	p.PConvert = 0

	ds := generate(t, p)

	require.Len(t, ds.Leads, 5)
	for _, l := range ds.Leads {
		rec := l.Record()
		assert.Equal(t, "true", rec[6])
		assert.Equal(t, "", rec[7])
	}
	assert.Empty(t, ds.Attempts)
	assert.Empty(t, ds.Conversions)
	assert.Len(t, ds.DNC, 1)
	assert.Equal(t, 5, ds.Stats.Leads)
	assert.Equal(t, "0.00", ds.Stats.TotalRevenue.String())
}

func TestGenerate_ZeroLeads(t *testing.T) {
	p := DefaultParams(testAnchor)
	p.Leads = 0
	ds := generate(t, p)

	assert.Empty(t, ds.Leads)
	assert.Empty(t, ds.Attempts)
	assert.Empty(t, ds.Conversions)
	assert.Empty(t, ds.DNC)
}

func TestGenerate_RecordsStages(t *testing.T) {
	rec := &MockRecorder{}
	for _, stage := range []string{errors.StageLeads, errors.StageAttempts, errors.StageConversions, errors.StageDNC} {
		rec.On("RecordStage", mock.Anything, stage, mock.AnythingOfType("int"), mock.AnythingOfType("time.Duration")).Once()
	}
	rec.On("RecordViolations", mock.Anything, mock.AnythingOfType("int")).Once()
	rec.On("RecordDNCSize", mock.Anything, 14).Once()

	generate(t, DefaultParams(testAnchor), WithRecorder(rec))
	rec.AssertExpectations(t)
}

func TestGenerate_Cancelled(t *testing.T) {
	g, err := NewGenerator(zaptest.NewLogger(t), DefaultParams(testAnchor))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = g.Generate(ctx)
	require.Error(t, err)
	assert.Equal(t, errors.StageLeads, errors.StageOf(err))
}

func TestDNCSize(t *testing.T) {
	tests := []struct {
		f    float64
		n    int
		want int
	}{
		{0.07, 5, 1},
		{0.07, 200, 14},
		{0.07, 0, 0},
		{0, 10, 1},
		{1, 10, 10},
		{0.5, 3, 2}, // 1.5 rounds up either way
		{0.5, 5, 3}, // 2.5 rounds away from zero, not to even
		{0.5, 9, 5}, // 4.5
		{0.07, 10000, 700},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DNCSize(tt.f, tt.n), "f=%v n=%d", tt.f, tt.n)
	}
}

func TestParams_Validate(t *testing.T) {
	t.Run("defaults are valid", func(t *testing.T) {
		assert.NoError(t, DefaultParams(testAnchor).Validate())
	})

	tests := []struct {
		name   string
		mutate func(*Params)
		want   string
	}{
		{"negative leads", func(p *Params) { p.Leads = -1 }, "leads must be >= 0"},
		{"negative attempts", func(p *Params) { p.MaxAttempts = -2 }, "max_attempts must be >= 0"},
		{"probability above one", func(p *Params) { p.PConsent = 1.5 }, "p_consent must be within [0,1]"},
		{"negative fraction", func(p *Params) { p.FDNC = -0.1 }, "f_dnc must be within [0,1]"},
		{"inverted revenue", func(p *Params) { p.RevenueMin = 400 }, "revenue range"},
		{"missing anchor", func(p *Params) { p.Anchor = time.Time{} }, "anchor must be set"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultParams(testAnchor)
			tt.mutate(&p)
			err := p.Validate()
			require.Error(t, err)
			assert.True(t, errors.IsType(err, errors.ErrorTypeConfiguration))
			assert.Contains(t, err.Error(), tt.want)

			_, genErr := NewGenerator(zaptest.NewLogger(t), p)
			assert.Error(t, genErr)
		})
	}
}

func TestSampleDNC_IsolatedStage(t *testing.T) {
	p := DefaultParams(testAnchor)
	p.Leads = 50
	leads := GenerateLeads(NewSource(1), p)

	a := SampleDNC(NewSource(99), 0.2, leads)
	b := SampleDNC(NewSource(99), 0.2, leads)
	assert.Equal(t, a, b)
	assert.Len(t, a, 10)
}
