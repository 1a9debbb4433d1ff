package report

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/hed1ad/anomalyconsensus/pkg/consensus"
)

// WriteHTML renders r as a page with anomaly count and execution time charts.
// Methods that did not succeed are plotted with zero anomalies and labelled
// with their status.
func WriteHTML(w io.Writer, r *consensus.Report) error {
	names := make([]string, 0, len(r.Results))
	counts := make([]opts.BarData, 0, len(r.Results))
	times := make([]opts.BarData, 0, len(r.Results))
	for _, res := range r.Results {
		label := res.Name
		if !res.Succeeded() {
			label = fmt.Sprintf("%s (%s)", res.Name, res.Status)
		}
		names = append(names, label)
		counts = append(counts, opts.BarData{Name: res.Name, Value: len(res.Anomalies)})
		times = append(times, opts.BarData{Name: res.Name, Value: res.Duration.Seconds()})
	}

	subtitle := fmt.Sprintf("source=%s records=%d run=%s", r.DataSource, r.Summary.Records, r.RunID)

	anomalies := charts.NewBar()
	anomalies.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Anomaly consensus", Width: "100%", Height: "480px"}),
		charts.WithTitleOpts(opts.Title{Title: "Anomalies per method", Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Name: "anomalies"}),
	)
	anomalies.SetXAxis(names).
		AddSeries("anomalies", counts,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)

	durations := charts.NewBar()
	durations.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "480px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Execution time per method",
			Subtitle: fmt.Sprintf("total=%.3fs", r.Statistics.TotalTime.Seconds()),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Name: "seconds"}),
	)
	durations.SetXAxis(names).AddSeries("time", times)

	page := components.NewPage()
	page.PageTitle = "Anomaly consensus " + r.RunID
	page.AddCharts(anomalies, durations)
	if err := page.Render(w); err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}
	return nil
}

// WriteHTMLFile writes the HTML page for r to path.
func WriteHTMLFile(path string, r *consensus.Report) error {
	return writeFile(path, func(w io.Writer) error { return WriteHTML(w, r) })
}
