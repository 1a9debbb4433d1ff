// Package detectors defines the uniform detection contract, the descriptors
// that describe each technique, and the registry that orders them.
package detectors

import (
	"context"
	"maps"
	"time"

	"github.com/hed1ad/anomalyconsensus/pkg/dataset"
)

// Detector is the common interface for all anomaly detection techniques.
// Implementations must treat the dataset as read-only and should return
// promptly once ctx is done.
type Detector interface {
	Detect(ctx context.Context, ds *dataset.Dataset, cfg Config) (Output, error)
}

// DetectorFunc adapts a function to the Detector interface.
type DetectorFunc func(ctx context.Context, ds *dataset.Dataset, cfg Config) (Output, error)

// Detect calls f.
func (f DetectorFunc) Detect(ctx context.Context, ds *dataset.Dataset, cfg Config) (Output, error) {
	return f(ctx, ds, cfg)
}

// Output is what a detector claims: the anomalous row indices and, optionally,
// a score in [0, 1] per row.
type Output struct {
	Anomalies  []int
	Confidence map[int]float64
}

// Category groups detectors in the registry and in reports.
type Category string

const (
	Traditional Category = "traditional"
	Learned     Category = "learned"
	Specialized Category = "specialized"
)

// Categories lists every category in report order.
func Categories() []Category {
	return []Category{Traditional, Learned, Specialized}
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	switch c {
	case Traditional, Learned, Specialized:
		return true
	}
	return false
}

// Requirement names an external capability a detector needs.
type Requirement string

// RequirementDeepLearning marks detectors that need a neural-network backend.
const RequirementDeepLearning Requirement = "deep-learning"

// Environment answers whether a requirement can be satisfied in this process.
type Environment interface {
	Has(req Requirement) bool
}

// Capabilities is a static Environment.
type Capabilities map[Requirement]bool

// Has implements Environment.
func (c Capabilities) Has(req Requirement) bool {
	return c[req]
}

// Descriptor is the static description of one detection technique.
type Descriptor struct {
	Name     string
	Category Category
	Detector Detector
	// Timeout bounds a single Detect call; zero means no per-detector limit.
	Timeout time.Duration
	// Requires is empty when the detector has no external dependency.
	Requires Requirement
}

// Range bounds a numeric column, inclusive.
type Range struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

// Rules configures structural validation for the rule-based detector.
type Rules struct {
	RequiredColumns []string            `yaml:"required_columns"`
	Ranges          map[string]Range    `yaml:"ranges"`
	Categories      map[string][]string `yaml:"categories"`
}

// Config holds the shared configuration handed to every detector.
type Config struct {
	// Columns are the numeric columns to analyse.
	Columns []string
	// Contamination is the expected proportion of anomalies.
	Contamination float64
	// IQRFactor multiplies the interquartile range for IQR bounds.
	IQRFactor float64
	// RandomSeed for reproducibility.
	RandomSeed int64
	// Rules for the rule-based detector.
	Rules Rules
}

// DefaultConfig returns sensible defaults for detector configuration.
func DefaultConfig() Config {
	return Config{
		Contamination: 0.05,
		IQRFactor:     1.5,
		RandomSeed:    42,
	}
}

// Clone returns a deep copy so a detector cannot affect what another sees.
func (c Config) Clone() Config {
	out := c
	out.Columns = append([]string(nil), c.Columns...)
	out.Rules.RequiredColumns = append([]string(nil), c.Rules.RequiredColumns...)
	out.Rules.Ranges = maps.Clone(c.Rules.Ranges)
	if c.Rules.Categories != nil {
		out.Rules.Categories = make(map[string][]string, len(c.Rules.Categories))
		for k, v := range c.Rules.Categories {
			out.Rules.Categories[k] = append([]string(nil), v...)
		}
	}
	return out
}
