// Package config loads run settings from the environment and an optional
// detectors file.
package config

import (
	"errors"
	"io/fs"
	"runtime"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	apperr "github.com/hed1ad/anomalyconsensus/internal/errors"
	"github.com/hed1ad/anomalyconsensus/pkg/consensus"
	"github.com/hed1ad/anomalyconsensus/pkg/detectors"
	"github.com/hed1ad/anomalyconsensus/pkg/detectors/catalog"
)

// EnvPrefix namespaces every variable read by Load.
const EnvPrefix = "CONSENSUS_"

// Config represents the complete run configuration.
type Config struct {
	Workers         int           `validate:"min=1,max=1024"`
	RunTimeout      time.Duration `validate:"gte=0"`
	DetectorTimeout time.Duration `validate:"gte=0"`

	ConsensusFraction  float64 `validate:"gt=0,lte=1"`
	ConsensusInclusive bool

	// Backends lists the optional requirements available in this process.
	Backends []string `validate:"dive,oneof=deep-learning"`

	MaxColumns    int     `validate:"gte=0"`
	Columns       []string
	Contamination float64 `validate:"gt=0,lt=0.5"`
	IQRFactor     float64 `validate:"gt=0"`
	Seed          int64

	DetectorsFile string
	Detectors     *DetectorsFile
}

// Default returns the settings used when nothing is configured.
func Default() Config {
	d := detectors.DefaultConfig()
	return Config{
		Workers:           runtime.GOMAXPROCS(0),
		DetectorTimeout:   30 * time.Second,
		ConsensusFraction: consensus.DefaultPolicy().Fraction,
		MaxColumns:        4,
		Contamination:     d.Contamination,
		IQRFactor:         d.IQRFactor,
		Seed:              d.RandomSeed,
	}
}

// Load reads .env files (missing ones are ignored), then CONSENSUS_* variables
// over the defaults, then the detectors file if one is named. The result is validated.
func Load(envFiles ...string) (*Config, error) {
	if err := loadEnvFiles(envFiles...); err != nil {
		return nil, err
	}

	cfg := Default()
	env := NewConf().Prefix(EnvPrefix)
	cfg.Workers = env.Int("WORKERS", cfg.Workers)
	cfg.RunTimeout = env.Duration("RUN_TIMEOUT", cfg.RunTimeout)
	cfg.DetectorTimeout = env.Duration("DETECTOR_TIMEOUT", cfg.DetectorTimeout)
	cfg.ConsensusFraction = env.Float("THRESHOLD", cfg.ConsensusFraction)
	cfg.ConsensusInclusive = env.Bool("INCLUSIVE", cfg.ConsensusInclusive)
	cfg.Backends = env.List("BACKENDS", cfg.Backends)
	cfg.MaxColumns = env.Int("MAX_COLUMNS", cfg.MaxColumns)
	cfg.Columns = env.List("COLUMNS", cfg.Columns)
	cfg.Contamination = env.Float("CONTAMINATION", cfg.Contamination)
	cfg.IQRFactor = env.Float("IQR_FACTOR", cfg.IQRFactor)
	cfg.Seed = env.Int64("SEED", cfg.Seed)
	cfg.DetectorsFile = env.String("DETECTORS_FILE", "")
	if err := env.Err(); err != nil {
		return nil, err
	}

	if err := cfg.LoadDetectors(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadEnvFiles(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return apperr.Configurationf("failed to load %s: %v", f, err)
		}
	}
	return nil
}

// LoadDetectors parses c.DetectorsFile into c.Detectors. It is a no-op when no file is named.
func (c *Config) LoadDetectors() error {
	if c.DetectorsFile == "" {
		c.Detectors = nil
		return nil
	}
	f, err := ReadDetectorsFile(c.DetectorsFile)
	if err != nil {
		return err
	}
	c.Detectors = f
	return nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field ranges.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperr.Configuration(err.Error())
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fe.Namespace()+" fails "+fe.Tag()+tagParam(fe.Param()))
	}
	return apperr.Configuration("configuration validation failed: " + strings.Join(msgs, "; "))
}

func tagParam(p string) string {
	if p == "" {
		return ""
	}
	return "=" + p
}

// Policy returns the consensus policy.
func (c *Config) Policy() consensus.Policy {
	return consensus.Policy{Fraction: c.ConsensusFraction, Inclusive: c.ConsensusInclusive}
}

// Environment returns the requirements satisfied by the configured backends.
func (c *Config) Environment() detectors.Capabilities {
	env := detectors.Capabilities{}
	for _, b := range c.Backends {
		env[detectors.Requirement(b)] = true
	}
	return env
}

// DetectorConfig returns the shared detector configuration. Columns are
// filled in per run by the engine.
func (c *Config) DetectorConfig() detectors.Config {
	d := detectors.DefaultConfig()
	d.Contamination = c.Contamination
	d.IQRFactor = c.IQRFactor
	d.RandomSeed = c.Seed
	if c.Detectors != nil {
		d.Rules = c.Detectors.Rules
	}
	return d.Clone()
}

// Registry builds the detector registry from the detectors file, or the full
// catalog when there is none.
func (c *Config) Registry() (*detectors.Registry, error) {
	if c.Detectors == nil || len(c.Detectors.Detectors) == 0 {
		return catalog.Default(c.DetectorTimeout)
	}
	return catalog.Build(c.Detectors.Specs(), c.DetectorTimeout)
}
