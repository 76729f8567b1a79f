package fixture

import (
	"time"

	"github.com/davidleathers/dce-fixture-synth/internal/domain/values"
)

// ConversionType is what a converted lead turned into
type ConversionType string

const (
	ConversionRetainerSigned ConversionType = "retainer_signed"
	ConversionTransfer       ConversionType = "transfer"
	ConversionQualifiedLead  ConversionType = "qualified_lead"
)

// ConversionTypes lists every conversion outcome in draw order
var ConversionTypes = []ConversionType{ConversionRetainerSigned, ConversionTransfer, ConversionQualifiedLead}

// ConversionHeader is the fixed column order of the conversions table
var ConversionHeader = []string{"conversion_id", "lead_id", "conversion_ts", "conversion_type", "revenue"}

// Conversion records a lead converting; at most one exists per lead.
type Conversion struct {
	ConversionID   int64
	LeadID         int64
	ConversionTS   time.Time
	ConversionType ConversionType
	Revenue        values.Money
}

// Record returns the conversion as a row matching ConversionHeader
func (c Conversion) Record() []string {
	return []string{
		formatID(c.ConversionID),
		formatID(c.LeadID),
		FormatTimestamp(c.ConversionTS),
		string(c.ConversionType),
		c.Revenue.String(),
	}
}
