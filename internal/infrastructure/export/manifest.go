package export

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/davidleathers/dce-fixture-synth/internal/domain/errors"
	"github.com/davidleathers/dce-fixture-synth/internal/domain/fixture"
	"github.com/davidleathers/dce-fixture-synth/internal/service/synth"
)

// ManifestName is the file written next to the data describing the run
const ManifestName = "manifest.json"

const manifestVersion = "1.0"

// Manifest records how a fixture set was produced and what it contains.
// It carries no wall-clock fields, so reruns with equal inputs produce an equal manifest.
type Manifest struct {
	RunID   string         `json:"run_id"`
	Version string         `json:"version"`
	Seed    uint64         `json:"seed"`
	Anchor  string         `json:"anchor"`
	Params  ManifestParams `json:"params"`
	Stats   synth.Stats    `json:"stats"`
	Files   []FileInfo     `json:"files"`
}

// ManifestParams is the generation configuration as recorded in the manifest
type ManifestParams struct {
	Leads                int     `json:"leads"`
	MaxAttempts          int     `json:"max_attempts"`
	PConsent             float64 `json:"p_consent"`
	POptOut              float64 `json:"p_optout"`
	PViolation           float64 `json:"p_violation"`
	PConvert             float64 `json:"p_convert"`
	FDNC                 float64 `json:"f_dnc"`
	LookbackDays         int     `json:"lookback_days"`
	AttemptWindowDays    int     `json:"attempt_window_days"`
	ConversionWindowDays int     `json:"conversion_window_days"`
	OptOutWindowDays     int     `json:"optout_window_days"`
	RevenueMin           float64 `json:"revenue_min"`
	RevenueMax           float64 `json:"revenue_max"`
}

func newManifest(ds *synth.Dataset, files []FileInfo) *Manifest {
	p := ds.Params
	return &Manifest{
		RunID:   ds.RunID.String(),
		Version: manifestVersion,
		Seed:    p.Seed,
		Anchor:  fixture.FormatTimestamp(p.Anchor),
		Params: ManifestParams{
			Leads:                p.Leads,
			MaxAttempts:          p.MaxAttempts,
			PConsent:             p.PConsent,
			POptOut:              p.POptOut,
			PViolation:           p.PViolation,
			PConvert:             p.PConvert,
			FDNC:                 p.FDNC,
			LookbackDays:         p.LookbackDays,
			AttemptWindowDays:    p.AttemptWindowDays,
			ConversionWindowDays: p.ConversionWindowDays,
			OptOutWindowDays:     p.OptOutWindowDays,
			RevenueMin:           p.RevenueMin,
			RevenueMax:           p.RevenueMax,
		},
		Stats: ds.Stats,
		Files: files,
	}
}

func (m *Manifest) encode() ([]byte, error) {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// ReadManifest loads the manifest from an output directory
func ReadManifest(dir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestName))
	if err != nil {
		return nil, errors.NewSinkError(ManifestName, "cannot read manifest").WithCause(err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, errors.NewSinkError(ManifestName, "cannot parse manifest").WithCause(err)
	}
	return &m, nil
}
