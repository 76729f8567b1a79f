package export

import (
	"fmt"

	"github.com/davidleathers/dce-fixture-synth/internal/domain/fixture"
	"github.com/davidleathers/dce-fixture-synth/internal/service/synth"
)

// ColumnKind tells typed sinks how to store a column's text value
type ColumnKind int

const (
	KindString ColumnKind = iota
	KindInt
	KindBool
	KindDecimal
	KindTimestamp
)

// Column describes one field of a table
type Column struct {
	Name     string
	Kind     ColumnKind
	Optional bool // empty text means absent
}

// Row is anything that renders itself as a row of text cells
type Row interface {
	Record() []string
}

// Table is a named, ordered set of rows with a fixed header.
// Every sink writes through this interface regardless of the entity behind it.
type Table interface {
	Name() string
	Columns() []Column
	Header() []string
	Len() int
	Each(fn func(cells []string) error) error
}

type rowTable[T Row] struct {
	name    string
	columns []Column
	rows    []T
}

// NewTable wraps rows of T under name. header and columns must name the same fields.
func NewTable[T Row](name string, header []string, columns []Column, rows []T) (Table, error) {
	if len(header) != len(columns) {
		return nil, fmt.Errorf("table %s: header has %d fields, columns %d", name, len(header), len(columns))
	}
	for i := range header {
		if header[i] != columns[i].Name {
			return nil, fmt.Errorf("table %s: column %d is %q, header says %q", name, i, columns[i].Name, header[i])
		}
	}
	return &rowTable[T]{name: name, columns: columns, rows: rows}, nil
}

func (t *rowTable[T]) Name() string      { return t.name }
func (t *rowTable[T]) Columns() []Column { return t.columns }
func (t *rowTable[T]) Len() int          { return len(t.rows) }

func (t *rowTable[T]) Header() []string {
	header := make([]string, len(t.columns))
	for i, c := range t.columns {
		header[i] = c.Name
	}
	return header
}

func (t *rowTable[T]) Each(fn func(cells []string) error) error {
	for _, r := range t.rows {
		if err := fn(r.Record()); err != nil {
			return err
		}
	}
	return nil
}

// Table names, which double as output file stems
const (
	TableLeads       = "leads"
	TableAttempts    = "contact_attempts"
	TableConversions = "conversions"
	TableDNC         = "dnc"
)

var (
	leadColumns = []Column{
		{Name: "lead_id", Kind: KindInt},
		{Name: "phone_hash", Kind: KindString},
		{Name: "state", Kind: KindString},
		{Name: "timezone", Kind: KindString},
		{Name: "source", Kind: KindString},
		{Name: "created_at", Kind: KindTimestamp},
		{Name: "consent_flag", Kind: KindBool},
		{Name: "opt_out_at", Kind: KindTimestamp, Optional: true},
	}
	attemptColumns = []Column{
		{Name: "attempt_id", Kind: KindInt},
		{Name: "lead_id", Kind: KindInt},
		{Name: "channel", Kind: KindString},
		{Name: "attempt_ts", Kind: KindTimestamp},
		{Name: "outcome", Kind: KindString},
		{Name: "campaign_id", Kind: KindString},
	}
	conversionColumns = []Column{
		{Name: "conversion_id", Kind: KindInt},
		{Name: "lead_id", Kind: KindInt},
		{Name: "conversion_ts", Kind: KindTimestamp},
		{Name: "conversion_type", Kind: KindString},
		{Name: "revenue", Kind: KindDecimal},
	}
	dncColumns = []Column{
		{Name: "phone_hash", Kind: KindString},
	}
)

// DatasetTables returns the four fixture tables in output order
func DatasetTables(ds *synth.Dataset) ([]Table, error) {
	leads, err := NewTable(TableLeads, fixture.LeadHeader, leadColumns, ds.Leads)
	if err != nil {
		return nil, err
	}
	attempts, err := NewTable(TableAttempts, fixture.AttemptHeader, attemptColumns, ds.Attempts)
	if err != nil {
		return nil, err
	}
	conversions, err := NewTable(TableConversions, fixture.ConversionHeader, conversionColumns, ds.Conversions)
	if err != nil {
		return nil, err
	}
	dnc, err := NewTable(TableDNC, fixture.DncHeader, dncColumns, ds.DNC)
	if err != nil {
		return nil, err
	}
	return []Table{leads, attempts, conversions, dnc}, nil
}
