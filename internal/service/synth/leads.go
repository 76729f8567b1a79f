package synth

import (
	"time"

	"github.com/davidleathers/dce-fixture-synth/internal/domain/fixture"
	"github.com/davidleathers/dce-fixture-synth/internal/domain/values"
)

// GenerateLeads draws exactly p.Leads leads with ids 1..N.
// Creation times fall within p.LookbackDays before the anchor and never after it.
func GenerateLeads(src Source, p Params) []fixture.Lead {
	anchor := p.Anchor.UTC().Truncate(time.Second)
	leads := make([]fixture.Lead, 0, p.Leads)

	for i := 1; i <= p.Leads; i++ {
		id := int64(i)
		back := days(src.IntN(p.LookbackDays+1)) +
			time.Duration(src.IntN(24))*time.Hour +
			time.Duration(src.IntN(60))*time.Minute
		created := anchor.Add(-back)

		lead := fixture.Lead{
			LeadID:    id,
			PhoneHash: values.NewPhoneHashForIndex(id),
			State:     pick(src, fixture.States),
			Timezone:  pick(src, fixture.Timezones),
			Source:    pick(src, fixture.LeadSources),
			CreatedAt: created,
		}

		lead.ConsentFlag = chance(src, p.PConsent)
		if lead.ConsentFlag && chance(src, p.POptOut) {
			optOut := created.Add(days(src.IntN(p.OptOutWindowDays+1)) +
				time.Duration(src.IntN(24))*time.Hour)
			lead.OptOutAt = &optOut
		}

		leads = append(leads, lead)
	}
	return leads
}

func days(n int) time.Duration {
	return time.Duration(n) * 24 * time.Hour
}
