package synth

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/davidleathers/dce-fixture-synth/internal/domain/fixture"
	"github.com/davidleathers/dce-fixture-synth/internal/domain/values"
)

// runNamespace scopes run identifiers derived from generation parameters
var runNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("urn:dce-fixture-synth:run"))

// Dataset is the full output of one run
type Dataset struct {
	RunID       uuid.UUID
	Params      Params
	Leads       []fixture.Lead
	Attempts    []fixture.ContactAttempt
	Conversions []fixture.Conversion
	DNC         []fixture.DncEntry
	Stats       Stats
}

// Stats summarizes a dataset
type Stats struct {
	Leads        int          `json:"leads"`
	Attempts     int          `json:"contact_attempts"`
	Conversions  int          `json:"conversions"`
	DNCEntries   int          `json:"dnc"`
	Violations   int          `json:"violations_injected"`
	OptOuts      int          `json:"opt_outs"`
	NoConsent    int          `json:"no_consent"`
	TotalRevenue values.Money `json:"total_revenue"`
}

// RunIDFor derives a stable run identifier from the parameters, so reruns with the
// same inputs share an id.
func RunIDFor(p Params) uuid.UUID {
	key := fmt.Sprintf("%d|%d|%d|%g|%g|%g|%g|%g|%s|%d|%d|%d|%d|%g|%g",
		p.Seed, p.Leads, p.MaxAttempts,
		p.PConsent, p.POptOut, p.PViolation, p.PConvert, p.FDNC,
		p.Anchor.UTC().Format(time.RFC3339),
		p.LookbackDays, p.AttemptWindowDays, p.ConversionWindowDays, p.OptOutWindowDays,
		p.RevenueMin, p.RevenueMax)
	return uuid.NewSHA1(runNamespace, []byte(key))
}

func summarize(leads []fixture.Lead, attempts []fixture.ContactAttempt, conversions []fixture.Conversion, dnc []fixture.DncEntry, violations int) Stats {
	stats := Stats{
		Leads:        len(leads),
		Attempts:     len(attempts),
		Conversions:  len(conversions),
		DNCEntries:   len(dnc),
		Violations:   violations,
		TotalRevenue: values.Zero(values.USD),
	}
	for _, l := range leads {
		if !l.ConsentFlag {
			stats.NoConsent++
		}
		if l.HasOptedOut() {
			stats.OptOuts++
		}
	}
	for _, c := range conversions {
		if sum, err := stats.TotalRevenue.Add(c.Revenue); err == nil {
			stats.TotalRevenue = sum
		}
	}
	return stats
}
