package fixture

import (
	"time"

	"github.com/davidleathers/dce-fixture-synth/internal/domain/values"
)

// State is the lead's region code
type State string

const (
	StateCA State = "CA"
	StateTX State = "TX"
	StateFL State = "FL"
	StateNY State = "NY"
	StateIL State = "IL"
	StateWA State = "WA"
	StateNJ State = "NJ"
	StateAZ State = "AZ"
)

// States lists every region code in draw order
var States = []State{StateCA, StateTX, StateFL, StateNY, StateIL, StateWA, StateNJ, StateAZ}

// Timezone is the lead's zone code
type Timezone string

const (
	TimezonePST Timezone = "PST"
	TimezoneMST Timezone = "MST"
	TimezoneCST Timezone = "CST"
	TimezoneEST Timezone = "EST"
)

// Timezones lists every zone code in draw order
var Timezones = []Timezone{TimezonePST, TimezoneMST, TimezoneCST, TimezoneEST}

// LeadSource is the acquisition channel a lead arrived through
type LeadSource string

const (
	SourceFacebook  LeadSource = "facebook"
	SourceGoogle    LeadSource = "google"
	SourceAffiliate LeadSource = "affiliate"
	SourceSEO       LeadSource = "seo"
)

// LeadSources lists every acquisition channel in draw order
var LeadSources = []LeadSource{SourceFacebook, SourceGoogle, SourceAffiliate, SourceSEO}

// LeadHeader is the fixed column order of the leads table
var LeadHeader = []string{"lead_id", "phone_hash", "state", "timezone", "source", "created_at", "consent_flag", "opt_out_at"}

// Lead is a single prospective contact.
// OptOutAt is only ever set when ConsentFlag is true, and never precedes CreatedAt.
type Lead struct {
	LeadID      int64
	PhoneHash   values.PhoneHash
	State       State
	Timezone    Timezone
	Source      LeadSource
	CreatedAt   time.Time
	ConsentFlag bool
	OptOutAt    *time.Time
}

// HasOptedOut reports whether the lead withdrew consent
func (l Lead) HasOptedOut() bool {
	return l.OptOutAt != nil
}

// Record returns the lead as a row matching LeadHeader
func (l Lead) Record() []string {
	optOut := ""
	if l.OptOutAt != nil {
		optOut = FormatTimestamp(*l.OptOutAt)
	}
	return []string{
		formatID(l.LeadID),
		l.PhoneHash.String(),
		string(l.State),
		string(l.Timezone),
		string(l.Source),
		FormatTimestamp(l.CreatedAt),
		formatBool(l.ConsentFlag),
		optOut,
	}
}
