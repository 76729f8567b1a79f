package config

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/davidleathers/dce-fixture-synth/internal/domain/errors"
	"github.com/davidleathers/dce-fixture-synth/internal/domain/values"
	"github.com/davidleathers/dce-fixture-synth/internal/service/synth"
)

// EnvPrefix marks environment variables read into the config.
// A double underscore separates sections: SYNTH_GENERATION__P_CONSENT is generation.p_consent.
const EnvPrefix = "SYNTH_"

// DefaultConfigFile is read when present and no file is named explicitly
const DefaultConfigFile = "configs/config.yaml"

type Config struct {
	Version     string `koanf:"version"`
	Environment string `koanf:"environment" validate:"required"`
	LogLevel    string `koanf:"log_level" validate:"oneof=debug info warn error"`
	LogFormat   string `koanf:"log_format" validate:"oneof=json console"`

	Generation GenerationConfig `koanf:"generation"`
	Output     OutputConfig     `koanf:"output"`
	Archive    ArchiveConfig    `koanf:"archive"`
	Database   DatabaseConfig   `koanf:"database"`
	Redis      RedisConfig      `koanf:"redis"`
	Metrics    MetricsConfig    `koanf:"metrics"`
	Telemetry  TelemetryConfig  `koanf:"telemetry"`
}

type GenerationConfig struct {
	Seed        uint64 `koanf:"seed"`
	Leads       int    `koanf:"leads" validate:"gte=0"`
	MaxAttempts int    `koanf:"max_attempts" validate:"gte=0"`

	PConsent   float64 `koanf:"p_consent" validate:"gte=0,lte=1"`
	POptOut    float64 `koanf:"p_optout" validate:"gte=0,lte=1"`
	PViolation float64 `koanf:"p_violation" validate:"gte=0,lte=1"`
	PConvert   float64 `koanf:"p_convert" validate:"gte=0,lte=1"`
	FDNC       float64 `koanf:"f_dnc" validate:"gte=0,lte=1"`

	// Anchor is RFC3339; empty means the current time
	Anchor string `koanf:"anchor" validate:"omitempty,anchor"`

	LookbackDays         int `koanf:"lookback_days" validate:"gte=0"`
	AttemptWindowDays    int `koanf:"attempt_window_days" validate:"gte=0"`
	ConversionWindowDays int `koanf:"conversion_window_days" validate:"gte=0"`
	OptOutWindowDays     int `koanf:"optout_window_days" validate:"gte=0"`

	RevenueMin float64 `koanf:"revenue_min" validate:"gte=0"`
	RevenueMax float64 `koanf:"revenue_max" validate:"gtefield=RevenueMin"`
}

type OutputConfig struct {
	Dir                string   `koanf:"dir" validate:"required"`
	Formats            []string `koanf:"formats" validate:"min=1,dive,oneof=csv parquet xlsx"`
	ParquetCompression string   `koanf:"parquet_compression" validate:"oneof=snappy gzip zstd none"`
}

type ArchiveConfig struct {
	Enabled      bool   `koanf:"enabled"`
	Bucket       string `koanf:"bucket" validate:"required_if=Enabled true"`
	Prefix       string `koanf:"prefix"`
	Region       string `koanf:"region"`
	Endpoint     string `koanf:"endpoint" validate:"omitempty,url"` // MinIO or localstack
	UsePathStyle bool   `koanf:"use_path_style"`
}

type DatabaseConfig struct {
	Enabled bool          `koanf:"enabled"`
	URL     string        `koanf:"url" validate:"required_if=Enabled true"`
	Migrate bool          `koanf:"migrate"`
	Timeout time.Duration `koanf:"timeout"`
}

type RedisConfig struct {
	Enabled   bool          `koanf:"enabled"`
	URL       string        `koanf:"url" validate:"required_if=Enabled true"`
	Key       string        `koanf:"key" validate:"required"`
	TTL       time.Duration `koanf:"ttl" validate:"gte=0"`
	BatchSize int           `koanf:"batch_size" validate:"gt=0"`
}

type MetricsConfig struct {
	PushgatewayURL string `koanf:"pushgateway_url" validate:"omitempty,url"`
	Job            string `koanf:"job" validate:"required"`
}

type TelemetryConfig struct {
	Enabled      bool    `koanf:"enabled"`
	ServiceName  string  `koanf:"service_name" validate:"required"`
	OTLPEndpoint string  `koanf:"otlp_endpoint"`
	SamplingRate float64 `koanf:"sampling_rate" validate:"gte=0,lte=1"`
}

// Defaults returns the built-in configuration every other source overrides
func Defaults() *Config {
	return &Config{
		Version:     "dev",
		Environment: "development",
		LogLevel:    "info",
		LogFormat:   "json",
		Generation:  generationDefaults(),
		Output: OutputConfig{
			Dir:                "data",
			Formats:            []string{values.FormatCSV},
			ParquetCompression: "snappy",
		},
		Archive: ArchiveConfig{
			Prefix: "fixtures",
			Region: "us-east-1",
		},
		Database: DatabaseConfig{
			Migrate: true,
			Timeout: 2 * time.Minute,
		},
		Redis: RedisConfig{
			Key:       "dnc:phone_hashes",
			BatchSize: 500,
		},
		Metrics: MetricsConfig{
			Job: "synthgen",
		},
		Telemetry: TelemetryConfig{
			ServiceName:  "synthgen",
			OTLPEndpoint: "localhost:4317",
			SamplingRate: 1.0,
		},
	}
}

// generationDefaults mirrors the generator's stock parameters; the anchor is left
// empty so it resolves to the wall clock at load time.
func generationDefaults() GenerationConfig {
	p := synth.DefaultParams(time.Time{})
	return GenerationConfig{
		Seed:                 p.Seed,
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
	}
}

// LoadOptions names the optional sources layered over the defaults
type LoadOptions struct {
	// ConfigFile must exist when set; otherwise DefaultConfigFile is used if present
	ConfigFile string
	// EnvFile is a dotenv file; empty means ".env" when present
	EnvFile string
	// Overrides are applied last, keyed by koanf path (e.g. "generation.seed")
	Overrides map[string]interface{}
}

// Load layers defaults, the YAML file, dotenv, SYNTH_ environment variables and
// overrides, then validates the result.
func Load(opts LoadOptions) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Defaults(), "koanf"), nil); err != nil {
		return nil, loadError("loading defaults", err)
	}

	path, required := opts.ConfigFile, true
	if path == "" {
		path, required = DefaultConfigFile, false
	}
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		if required || !stderrors.Is(err, fs.ErrNotExist) {
			return nil, loadError(fmt.Sprintf("loading config file %s", path), err)
		}
	}

	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil {
		if opts.EnvFile != "" || !stderrors.Is(err, fs.ErrNotExist) {
			return nil, loadError(fmt.Sprintf("loading env file %s", envFile), err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, loadError("loading environment variables", err)
	}

	for key, val := range opts.Overrides {
		if err := k.Set(key, val); err != nil {
			return nil, loadError(fmt.Sprintf("applying override %s", key), err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, loadError("unmarshaling config", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envKey maps SYNTH_OUTPUT__PARQUET_COMPRESSION to output.parquet_compression
func envKey(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
}

func loadError(what string, err error) error {
	return errors.NewConfigurationError("CONFIG_LOAD_FAILED", what).WithCause(err)
}

// Validate checks struct constraints and reports every failing field by its config path
func (c *Config) Validate() error {
	err := newValidator().Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) {
		return errors.NewConfigurationError("INVALID_CONFIG", "invalid configuration").WithCause(err)
	}

	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, describe(fe))
	}
	return errors.NewConfigurationError("INVALID_CONFIG",
		"invalid configuration: "+strings.Join(fields, "; ")).
		WithDetails(map[string]interface{}{"fields": fields})
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("koanf"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterValidation("anchor", validateAnchor)
	return v
}

func validateAnchor(fl validator.FieldLevel) bool {
	_, err := time.Parse(time.RFC3339, fl.Field().String())
	return err == nil
}

// describe renders a field error as "generation.p_consent must be <= 1"
func describe(fe validator.FieldError) string {
	path := fe.Namespace()
	if _, rest, ok := strings.Cut(path, "."); ok {
		path = rest
	}
	param := fe.Param()

	var msg string
	switch fe.Tag() {
	case "required", "required_if":
		msg = "is required"
	case "gte":
		msg = "must be >= " + param
	case "lte":
		msg = "must be <= " + param
	case "gt":
		msg = "must be > " + param
	case "min":
		msg = "needs at least " + param + " entries"
	case "oneof":
		msg = "must be one of: " + param
	case "gtefield":
		msg = "must be >= revenue_min"
	case "url":
		msg = "must be a valid URL"
	case "anchor":
		msg = "must be an RFC3339 timestamp"
	default:
		msg = "failed " + fe.Tag()
	}
	return fmt.Sprintf("%s %s (got %v)", path, msg, fe.Value())
}

// Params converts the generation section into run parameters. now is used when
// no anchor is configured and is truncated to the second.
func (g GenerationConfig) Params(now time.Time) (synth.Params, error) {
	anchor := now
	if g.Anchor != "" {
		parsed, err := time.Parse(time.RFC3339, g.Anchor)
		if err != nil {
			return synth.Params{}, errors.NewConfigurationError("INVALID_ANCHOR",
				fmt.Sprintf("generation.anchor %q is not RFC3339", g.Anchor)).WithCause(err)
		}
		anchor = parsed
	}

	p := synth.Params{
		Seed:                 g.Seed,
		Leads:                g.Leads,
		MaxAttempts:          g.MaxAttempts,
		PConsent:             g.PConsent,
		POptOut:              g.POptOut,
		PViolation:           g.PViolation,
		PConvert:             g.PConvert,
		FDNC:                 g.FDNC,
		Anchor:               anchor.UTC().Truncate(time.Second),
		LookbackDays:         g.LookbackDays,
		AttemptWindowDays:    g.AttemptWindowDays,
		ConversionWindowDays: g.ConversionWindowDays,
		OptOutWindowDays:     g.OptOutWindowDays,
		RevenueMin:           g.RevenueMin,
		RevenueMax:           g.RevenueMax,
	}
	if err := p.Validate(); err != nil {
		return synth.Params{}, err
	}
	return p, nil
}

// ExportFormats parses the configured format names
func (o OutputConfig) ExportFormats() ([]values.ExportFormat, error) {
	formats := make([]values.ExportFormat, 0, len(o.Formats))
	for _, name := range o.Formats {
		f, err := values.NewExportFormat(name)
		if err != nil {
			return nil, errors.NewConfigurationError("UNSUPPORTED_FORMAT",
				fmt.Sprintf("output.formats: %s", name)).WithCause(err)
		}
		formats = append(formats, f)
	}
	return formats, nil
}
