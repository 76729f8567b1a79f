package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/davidleathers/dce-fixture-synth/internal/infrastructure/config"
)

// flagKeys maps generation and output flags to their koanf paths
var flagKeys = map[string]string{
	"seed":                "generation.seed",
	"leads":               "generation.leads",
	"max-attempts":        "generation.max_attempts",
	"anchor":              "generation.anchor",
	"p-consent":           "generation.p_consent",
	"p-optout":            "generation.p_optout",
	"p-violation":         "generation.p_violation",
	"p-convert":           "generation.p_convert",
	"f-dnc":               "generation.f_dnc",
	"out":                 "output.dir",
	"format":              "output.formats",
	"parquet-compression": "output.parquet_compression",
}

func addGenerationFlags(f *pflag.FlagSet) {
	d := config.Defaults()
	f.Uint64("seed", d.Generation.Seed, "Random seed")
	f.Int("leads", d.Generation.Leads, "Number of leads to generate")
	f.Int("max-attempts", d.Generation.MaxAttempts, "Maximum contact attempts per lead")
	f.String("anchor", "", "Reference time as RFC3339 (default now)")
	f.Float64("p-consent", d.Generation.PConsent, "Probability a lead consented")
	f.Float64("p-optout", d.Generation.POptOut, "Probability a consenting lead opted out")
	f.Float64("p-violation", d.Generation.PViolation, "Probability an attempt falls in quiet hours")
	f.Float64("p-convert", d.Generation.PConvert, "Probability a lead converts")
	f.Float64("f-dnc", d.Generation.FDNC, "Fraction of leads placed on the DNC registry")
	f.StringP("out", "o", d.Output.Dir, "Output directory")
}

func addOutputFlags(f *pflag.FlagSet) {
	d := config.Defaults()
	f.StringSlice("format", d.Output.Formats, "Output formats: csv, parquet, xlsx")
	f.String("parquet-compression", d.Output.ParquetCompression, "Parquet codec: snappy, gzip, zstd, none")
}

// loadConfig layers explicitly set flags over file, dotenv and environment values.
func loadConfig(cmd *cobra.Command, opts *rootOptions) (*config.Config, error) {
	overrides := map[string]interface{}{}
	if opts.logLevel != "" {
		overrides["log_level"] = opts.logLevel
	}
	if opts.logFormat != "" {
		overrides["log_format"] = opts.logFormat
	}

	var err error
	cmd.Flags().Visit(func(fl *pflag.Flag) {
		key, ok := flagKeys[fl.Name]
		if !ok || err != nil {
			return
		}
		overrides[key], err = flagValue(cmd.Flags(), fl)
	})
	if err != nil {
		return nil, err
	}

	return config.Load(config.LoadOptions{
		ConfigFile: opts.configFile,
		EnvFile:    opts.envFile,
		Overrides:  overrides,
	})
}

func flagValue(fs *pflag.FlagSet, fl *pflag.Flag) (interface{}, error) {
	switch fl.Value.Type() {
	case "uint64":
		return fs.GetUint64(fl.Name)
	case "int":
		return fs.GetInt(fl.Name)
	case "float64":
		return fs.GetFloat64(fl.Name)
	case "stringSlice":
		return fs.GetStringSlice(fl.Name)
	default:
		return fl.Value.String(), nil
	}
}
