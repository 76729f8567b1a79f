package synth

import (
	"fmt"
	"strings"
	"time"

	"github.com/davidleathers/dce-fixture-synth/internal/domain/errors"
)

// Params drives a single generation run
type Params struct {
	Seed        uint64
	Leads       int
	MaxAttempts int

	PConsent   float64
	POptOut    float64
	PViolation float64
	PConvert   float64
	FDNC       float64

	// Anchor stands in for "now"; lead creation times are drawn backwards from it.
	Anchor time.Time

	LookbackDays         int
	AttemptWindowDays    int
	ConversionWindowDays int
	OptOutWindowDays     int

	RevenueMin float64
	RevenueMax float64
}

// DefaultParams returns the stock configuration anchored at anchor
func DefaultParams(anchor time.Time) Params {
	return Params{
		Seed:                 42,
		Leads:                200,
		MaxAttempts:          6,
		PConsent:             0.92,
		POptOut:              0.12,
		PViolation:           0.10,
		PConvert:             0.18,
		FDNC:                 0.07,
		Anchor:               anchor.UTC().Truncate(time.Second),
		LookbackDays:         14,
		AttemptWindowDays:    6,
		ConversionWindowDays: 10,
		OptOutWindowDays:     7,
		RevenueMin:           50,
		RevenueMax:           350,
	}
}

// Validate checks every parameter and reports all violations in one configuration error
func (p Params) Validate() error {
	var problems []string

	if p.Leads < 0 {
		problems = append(problems, "leads must be >= 0")
	}
	if p.MaxAttempts < 0 {
		problems = append(problems, "max_attempts must be >= 0")
	}

	probabilities := []struct {
		name  string
		value float64
	}{
		{"p_consent", p.PConsent},
		{"p_optout", p.POptOut},
		{"p_violation", p.PViolation},
		{"p_convert", p.PConvert},
		{"f_dnc", p.FDNC},
	}
	for _, pr := range probabilities {
		// written so NaN fails too
		if !(pr.value >= 0 && pr.value <= 1) {
			problems = append(problems, fmt.Sprintf("%s must be within [0,1], got %v", pr.name, pr.value))
		}
	}

	windows := []struct {
		name  string
		value int
	}{
		{"lookback_days", p.LookbackDays},
		{"attempt_window_days", p.AttemptWindowDays},
		{"conversion_window_days", p.ConversionWindowDays},
		{"optout_window_days", p.OptOutWindowDays},
	}
	for _, w := range windows {
		if w.value < 0 {
			problems = append(problems, fmt.Sprintf("%s must be >= 0", w.name))
		}
	}

	if p.RevenueMin < 0 || p.RevenueMax < p.RevenueMin {
		problems = append(problems, "revenue range must satisfy 0 <= revenue_min <= revenue_max")
	}
	if p.Anchor.IsZero() {
		problems = append(problems, "anchor must be set")
	}

	if len(problems) > 0 {
		return errors.NewConfigurationError("INVALID_PARAMS", strings.Join(problems, "; ")).
			WithDetails(map[string]interface{}{"problems": problems})
	}
	return nil
}
