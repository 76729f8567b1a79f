package fixture

import "github.com/davidleathers/dce-fixture-synth/internal/domain/values"

// DncHeader is the fixed column order of the dnc table
var DncHeader = []string{"phone_hash"}

// DncEntry is a suppression registry row keyed by a lead's anonymized identifier
type DncEntry struct {
	PhoneHash values.PhoneHash
}

// Record returns the entry as a row matching DncHeader
func (d DncEntry) Record() []string {
	return []string{d.PhoneHash.String()}
}
