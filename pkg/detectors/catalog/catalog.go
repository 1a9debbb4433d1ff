// Package catalog lists the built-in detection techniques and builds
// registries from them.
package catalog

import (
	"time"

	apperr "github.com/hed1ad/anomalyconsensus/internal/errors"
	"github.com/hed1ad/anomalyconsensus/pkg/detectors"
	"github.com/hed1ad/anomalyconsensus/pkg/detectors/autoencoder"
	"github.com/hed1ad/anomalyconsensus/pkg/detectors/ensemble"
	"github.com/hed1ad/anomalyconsensus/pkg/detectors/expert"
	"github.com/hed1ad/anomalyconsensus/pkg/detectors/fuzzy"
	"github.com/hed1ad/anomalyconsensus/pkg/detectors/genetic"
	"github.com/hed1ad/anomalyconsensus/pkg/detectors/iforest"
	"github.com/hed1ad/anomalyconsensus/pkg/detectors/iqr"
	"github.com/hed1ad/anomalyconsensus/pkg/detectors/kmeans"
	"github.com/hed1ad/anomalyconsensus/pkg/detectors/neuralsym"
	"github.com/hed1ad/anomalyconsensus/pkg/detectors/rules"
	"github.com/hed1ad/anomalyconsensus/pkg/detectors/timeseries"
)

// Built-in detector names.
const (
	RuleBased        = "rule_based"
	IQR              = "iqr"
	IsolationForest  = "isolation_forest"
	KMeans           = "kmeans"
	Autoencoder      = "autoencoder"
	FuzzyLogic       = "fuzzy_logic"
	ExpertSystem     = "expert_system"
	TimeSeries       = "time_series"
	GeneticAlgorithm = "genetic_algorithm"
	EnsembleAI       = "ensemble_ai"
	NeuralSymbolic   = "neural_symbolic"
)

// Entries returns every built-in descriptor, without timeouts, in report order.
func Entries() []detectors.Descriptor {
	return []detectors.Descriptor{
		{Name: RuleBased, Category: detectors.Traditional, Detector: rules.Detector{}},
		{Name: IQR, Category: detectors.Traditional, Detector: iqr.Detector{}},
		{Name: IsolationForest, Category: detectors.Learned, Detector: iforest.Detector{}},
		{Name: KMeans, Category: detectors.Learned, Detector: kmeans.Detector{}},
		{Name: Autoencoder, Category: detectors.Learned, Detector: autoencoder.Detector{}, Requires: detectors.RequirementDeepLearning},
		{Name: FuzzyLogic, Category: detectors.Specialized, Detector: fuzzy.Detector{}},
		{Name: ExpertSystem, Category: detectors.Specialized, Detector: expert.Detector{}},
		{Name: TimeSeries, Category: detectors.Specialized, Detector: timeseries.Detector{}},
		{Name: GeneticAlgorithm, Category: detectors.Specialized, Detector: genetic.Detector{}},
		{Name: EnsembleAI, Category: detectors.Specialized, Detector: ensemble.Detector{}},
		{Name: NeuralSymbolic, Category: detectors.Specialized, Detector: neuralsym.Detector{}, Requires: detectors.RequirementDeepLearning},
	}
}

// Spec selects and tunes one built-in detector.
type Spec struct {
	Name     string
	Disabled bool
	// Timeout overrides the default per-detector timeout when positive.
	Timeout time.Duration
}

// Default returns a registry with every built-in detector and the given timeout.
func Default(timeout time.Duration) (*detectors.Registry, error) {
	return Build(nil, timeout)
}

// Build returns a registry of the built-in detectors named by specs, in
// catalog order. No specs means every detector. Unknown or repeated names are
// configuration errors.
func Build(specs []Spec, defaultTimeout time.Duration) (*detectors.Registry, error) {
	entries := Entries()
	if len(specs) == 0 {
		for i := range entries {
			entries[i].Timeout = defaultTimeout
		}
		return detectors.NewRegistry(entries...)
	}

	known := make(map[string]bool, len(entries))
	for _, e := range entries {
		known[e.Name] = true
	}
	byName := make(map[string]Spec, len(specs))
	for _, s := range specs {
		if !known[s.Name] {
			return nil, apperr.Configurationf("unknown detector %q", s.Name)
		}
		if _, dup := byName[s.Name]; dup {
			return nil, apperr.Configurationf("detector %q listed twice", s.Name)
		}
		if s.Timeout < 0 {
			return nil, apperr.Configurationf("detector %q has a negative timeout", s.Name)
		}
		byName[s.Name] = s
	}

	var out []detectors.Descriptor
	for _, e := range entries {
		s, ok := byName[e.Name]
		if !ok || s.Disabled {
			continue
		}
		e.Timeout = defaultTimeout
		if s.Timeout > 0 {
			e.Timeout = s.Timeout
		}
		out = append(out, e)
	}
	return detectors.NewRegistry(out...)
}
