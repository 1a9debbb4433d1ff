package consensus

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hed1ad/anomalyconsensus/pkg/dataset"
	"github.com/hed1ad/anomalyconsensus/pkg/detectors"
)

// Engine ties a registry, a harness and a consensus policy together.
type Engine struct {
	Registry *detectors.Registry
	Harness  *Harness
	Policy   Policy
	Config   detectors.Config
	// MaxColumns limits automatic column selection; zero means every numeric column.
	MaxColumns int
	Log        zerolog.Logger

	now   func() time.Time
	newID func() string
}

// NewEngine returns an Engine with the default policy and detector config.
func NewEngine(reg *detectors.Registry, h *Harness) *Engine {
	return &Engine{
		Registry: reg,
		Harness:  h,
		Policy:   DefaultPolicy(),
		Config:   detectors.DefaultConfig(),
		Log:      zerolog.Nop(),
		now:      func() time.Time { return time.Now().UTC() },
		newID:    uuid.NewString,
	}
}

// Run analyses ds and assembles the report. Detector failures are recorded in
// the report; only column selection and report assembly errors are returned.
func (e *Engine) Run(ctx context.Context, ds *dataset.Dataset, source string) (*Report, error) {
	cfg := e.Config.Clone()
	cols, err := ds.SelectColumns(cfg.Columns, e.MaxColumns)
	if err != nil {
		return nil, err
	}
	cfg.Columns = cols

	runID := e.newID()
	log := e.Log.With().Str("run_id", runID).Logger()
	log.Info().
		Str("source", source).
		Int("records", ds.Len()).
		Strs("columns", cols).
		Int("detectors", e.Registry.Len()).
		Msg("analysis started")

	started := e.now()
	results := e.Harness.Run(ctx, ds, e.Registry, cfg)
	cmp := Compare(results, e.Policy)

	report, err := BuildReport(ReportInput{
		RunID:           runID,
		Timestamp:       started,
		DataSource:      source,
		Summary:         ds.Summarize(),
		AnalysisColumns: cols,
		Results:         results,
		Comparison:      cmp,
	})
	if err != nil {
		log.Error().Err(err).Msg("report assembly failed")
		return nil, err
	}

	log.Info().
		Int("successful", cmp.Statistics.Successful).
		Int("consensus", len(cmp.Consensus.Indices)).
		Dur("total_time", cmp.Statistics.TotalTime).
		Msg("analysis finished")
	return report, nil
}
