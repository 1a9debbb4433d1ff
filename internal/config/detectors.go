package config

import (
	"bytes"
	"errors"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	apperr "github.com/hed1ad/anomalyconsensus/internal/errors"
	"github.com/hed1ad/anomalyconsensus/pkg/detectors"
	"github.com/hed1ad/anomalyconsensus/pkg/detectors/catalog"
)

// DetectorsFile is the yaml document selecting detectors and configuring
// rule-based validation:
//
//	detectors:
//	  - name: iqr
//	  - name: genetic_algorithm
//	    timeout: 10s
//	  - name: autoencoder
//	    enabled: false
//	rules:
//	  required_columns: [id]
//	  ranges:
//	    amount: {min: 0, max: 10000}
//	  categories:
//	    kind: [retail, wholesale]
type DetectorsFile struct {
	Detectors []DetectorEntry `yaml:"detectors"`
	Rules     detectors.Rules `yaml:"rules"`
}

// DetectorEntry is one item of the detectors list.
type DetectorEntry struct {
	Name    string `yaml:"name"`
	Enabled *bool  `yaml:"enabled"`
	Timeout string `yaml:"timeout"`

	timeout time.Duration
}

// ReadDetectorsFile reads and checks path.
func ReadDetectorsFile(path string) (*DetectorsFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperr.Configurationf("failed to read detectors file %s: %v", path, err)
	}
	f, err := ParseDetectors(bytes.NewReader(data))
	if err != nil {
		return nil, apperr.Wrapf(err, "detectors file %s", path)
	}
	return f, nil
}

// ParseDetectors decodes a detectors document. Unknown fields are rejected.
func ParseDetectors(r io.Reader) (*DetectorsFile, error) {
	var f DetectorsFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, apperr.Configurationf("invalid detectors yaml: %v", err)
	}

	for i := range f.Detectors {
		e := &f.Detectors[i]
		if e.Name == "" {
			return nil, apperr.Configurationf("detector entry %d has no name", i)
		}
		if e.Timeout == "" {
			continue
		}
		d, err := time.ParseDuration(e.Timeout)
		if err != nil || d < 0 {
			return nil, apperr.Configurationf("detector %q has invalid timeout %q", e.Name, e.Timeout)
		}
		e.timeout = d
	}
	for col, rg := range f.Rules.Ranges {
		if rg.Min > rg.Max {
			return nil, apperr.Configurationf("range for %q has min %g above max %g", col, rg.Min, rg.Max)
		}
	}
	return &f, nil
}

// Specs converts the detectors list for catalog.Build.
func (f *DetectorsFile) Specs() []catalog.Spec {
	specs := make([]catalog.Spec, 0, len(f.Detectors))
	for _, e := range f.Detectors {
		specs = append(specs, catalog.Spec{
			Name:     e.Name,
			Disabled: e.Enabled != nil && !*e.Enabled,
			Timeout:  e.timeout,
		})
	}
	return specs
}
