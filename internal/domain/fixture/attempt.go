package fixture

import (
	"fmt"
	"time"
)

// Channel is the medium of a contact attempt
type Channel string

const (
	ChannelCall Channel = "call"
	ChannelSMS  Channel = "sms"
)

// Channels lists voice and text in draw order
var Channels = []Channel{ChannelCall, ChannelSMS}

// Outcome is the result code of a contact attempt
type Outcome string

const (
	OutcomeAnswered  Outcome = "answered"
	OutcomeNoAnswer  Outcome = "no_answer"
	OutcomeVoicemail Outcome = "voicemail"
	OutcomeDropped   Outcome = "dropped"
)

// Outcomes lists every result code in draw order
var Outcomes = []Outcome{OutcomeAnswered, OutcomeNoAnswer, OutcomeVoicemail, OutcomeDropped}

// CampaignCount is the number of campaign tags attempts are spread across
const CampaignCount = 8

// CampaignID returns the tag of the n-th campaign, counting from 1
func CampaignID(n int) string {
	return fmt.Sprintf("cmp_%d", n)
}

// AttemptHeader is the fixed column order of the contact_attempts table
var AttemptHeader = []string{"attempt_id", "lead_id", "channel", "attempt_ts", "outcome", "campaign_id"}

// ContactAttempt is one call or text to a lead.
// AttemptTS never precedes the parent lead's CreatedAt.
type ContactAttempt struct {
	AttemptID  int64
	LeadID     int64
	Channel    Channel
	AttemptTS  time.Time
	Outcome    Outcome
	CampaignID string
}

// Record returns the attempt as a row matching AttemptHeader
func (a ContactAttempt) Record() []string {
	return []string{
		formatID(a.AttemptID),
		formatID(a.LeadID),
		string(a.Channel),
		FormatTimestamp(a.AttemptTS),
		string(a.Outcome),
		a.CampaignID,
	}
}
