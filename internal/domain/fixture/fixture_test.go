package fixture

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidleathers/dce-fixture-synth/internal/domain/values"
	"github.com/davidleathers/dce-fixture-synth/internal/testutil"
)

func ts(s string) time.Time {
	t, err := ParseTimestamp(s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestLead_Record(t *testing.T) {
	lead := Lead{
		LeadID:      1,
		PhoneHash:   values.NewPhoneHashForIndex(1),
		State:       StateCA,
		Timezone:    TimezonePST,
		Source:      SourceGoogle,
		CreatedAt:   ts("2024-03-04T10:15:00"),
		ConsentFlag: true,
	}

	t.Run("absent opt-out is empty", func(t *testing.T) {
		rec := lead.Record()
		require.Len(t, rec, len(LeadHeader))
		assert.Equal(t, "1", rec[0])
		assert.Len(t, rec[1], values.PhoneHashLength)
		assert.Equal(t, "2024-03-04T10:15:00", rec[5])
		assert.Equal(t, "true", rec[6])
		assert.Equal(t, "", rec[7])
		assert.False(t, lead.HasOptedOut())
	})

	t.Run("opt-out is formatted", func(t *testing.T) {
		withOptOut := lead
		withOptOut.OptOutAt = testutil.Ptr(ts("2024-03-06T01:15:00"))
		assert.Equal(t, "2024-03-06T01:15:00", withOptOut.Record()[7])
		assert.True(t, withOptOut.HasOptedOut())
	})
}

func TestAttemptAndConversion_Record(t *testing.T) {
	attempt := ContactAttempt{
		AttemptID:  7,
		LeadID:     3,
		Channel:    ChannelSMS,
		AttemptTS:  ts("2024-03-05T23:00:59"),
		Outcome:    OutcomeVoicemail,
		CampaignID: CampaignID(8),
	}
	assert.Equal(t, []string{"7", "3", "sms", "2024-03-05T23:00:59", "voicemail", "cmp_8"}, attempt.Record())
	assert.Len(t, attempt.Record(), len(AttemptHeader))

	revenue, err := values.NewMoney(decimal.RequireFromString("123.4"), values.USD)
	require.NoError(t, err)
	conv := Conversion{
		ConversionID:   1,
		LeadID:         3,
		ConversionTS:   ts("2024-03-09T12:00:00"),
		ConversionType: ConversionTransfer,
		Revenue:        revenue,
	}
	assert.Equal(t, []string{"1", "3", "2024-03-09T12:00:00", "transfer", "123.40"}, conv.Record())

	entry := DncEntry{PhoneHash: values.NewPhoneHashForIndex(3)}
	assert.Equal(t, []string{values.NewPhoneHashForIndex(3).String()}, entry.Record())
	assert.Equal(t, int64(12340), conv.Revenue.ToCents())
}

func TestFormatTimestamp_ConvertsToUTC(t *testing.T) {
	loc := time.FixedZone("EST", -5*3600)
	local := time.Date(2024, 1, 1, 20, 30, 0, 0, loc)
	assert.Equal(t, "2024-01-02T01:30:00", FormatTimestamp(local))
}

func TestShiftIntoWindow(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"midnight moves same day", "2024-03-04T00:12:34", "2024-03-04T03:12:34"},
		{"two am moves same day", "2024-03-04T02:59:59", "2024-03-04T03:59:59"},
		{"ten pm moves next day", "2024-03-04T22:01:00", "2024-03-05T03:01:00"},
		{"eleven pm moves next day", "2024-03-31T23:45:00", "2024-04-01T03:45:00"},
		{"window opening untouched", "2024-03-04T03:00:00", "2024-03-04T03:00:00"},
		{"last window hour untouched", "2024-03-04T21:59:59", "2024-03-04T21:59:59"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ShiftIntoWindow(ts(tt.in))
			assert.Equal(t, tt.want, FormatTimestamp(got))
			assert.False(t, IsQuietHour(got))
			assert.False(t, got.Before(ts(tt.in)))
			assert.LessOrEqual(t, got.Sub(ts(tt.in)), 5*time.Hour)
		})
	}
}

func TestForceQuietHour(t *testing.T) {
	floor := ts("2024-03-04T10:00:00")

	t.Run("keeps date when still after floor", func(t *testing.T) {
		got := ForceQuietHour(ts("2024-03-05T14:21:09"), 1, floor)
		assert.Equal(t, "2024-03-05T01:21:09", FormatTimestamp(got))
		assert.True(t, IsQuietHour(got))
	})

	t.Run("late hour on the same day stays", func(t *testing.T) {
		got := ForceQuietHour(ts("2024-03-04T11:00:00"), 23, floor)
		assert.Equal(t, "2024-03-04T23:00:00", FormatTimestamp(got))
	})

	t.Run("pushes forward a day when before floor", func(t *testing.T) {
		got := ForceQuietHour(ts("2024-03-04T11:00:00"), 0, floor)
		assert.Equal(t, "2024-03-05T00:00:00", FormatTimestamp(got))
		assert.False(t, got.Before(floor))
	})

	t.Run("moves an in-window time at most 20h", func(t *testing.T) {
		day := ts("2024-03-04T00:00:00")
		for h := WindowOpenHour; h < WindowCloseHour; h++ {
			in := day.Add(time.Duration(h)*time.Hour + 59*time.Minute)
			for _, q := range QuietHours {
				got := ForceQuietHour(in, q, day)
				assert.False(t, got.Before(day))
				assert.LessOrEqual(t, got.Sub(in), 20*time.Hour, "hour %d forced to %d", h, q)
			}
		}
	})

	t.Run("pushed result stays within a day of floor", func(t *testing.T) {
		floor := ts("2024-03-04T03:30:00")
		got := ForceQuietHour(ts("2024-03-04T03:45:00"), 2, floor)
		assert.Equal(t, "2024-03-05T02:45:00", FormatTimestamp(got))
		assert.Less(t, got.Sub(floor), 24*time.Hour)
		assert.Equal(t, 23*time.Hour, got.Sub(ts("2024-03-04T03:45:00")))
	})
}
