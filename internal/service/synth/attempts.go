package synth

import (
	"time"

	"github.com/davidleathers/dce-fixture-synth/internal/domain/fixture"
)

// GenerateAttempts draws 0..p.MaxAttempts attempts per lead, in lead order, with
// globally sequential ids. It returns the attempts and how many were pushed into
// quiet hours.
//
// Each timestamp is drawn inside the permitted window first; with probability
// p.PViolation its hour is then overwritten with a quiet hour.
//
// Neither step keeps the timestamp inside the nominal attempt window. The draw
// reaches AttemptWindowDays days + 23h59m past creation, the window shift adds
// up to 5h and the quiet-hour overwrite up to 20h more, so an attempt can land
// as late as AttemptWindowDays days + 48h59m after its lead.
func GenerateAttempts(src Source, p Params, leads []fixture.Lead) ([]fixture.ContactAttempt, int) {
	attempts := make([]fixture.ContactAttempt, 0, len(leads)*p.MaxAttempts/2)
	var nextID int64 = 1
	violations := 0

	for _, lead := range leads {
		count := src.IntN(p.MaxAttempts + 1)
		for j := 0; j < count; j++ {
			offset := days(src.IntN(p.AttemptWindowDays+1)) +
				time.Duration(src.IntN(24))*time.Hour +
				time.Duration(src.IntN(60))*time.Minute
			ts := fixture.ShiftIntoWindow(lead.CreatedAt.Add(offset))

			attempt := fixture.ContactAttempt{
				AttemptID:  nextID,
				LeadID:     lead.LeadID,
				Channel:    pick(src, fixture.Channels),
				Outcome:    pick(src, fixture.Outcomes),
				CampaignID: fixture.CampaignID(src.IntN(fixture.CampaignCount) + 1),
			}

			if chance(src, p.PViolation) {
				ts = fixture.ForceQuietHour(ts, pick(src, fixture.QuietHours), lead.CreatedAt)
				violations++
			}
			attempt.AttemptTS = ts

			attempts = append(attempts, attempt)
			nextID++
		}
	}
	return attempts, violations
}
