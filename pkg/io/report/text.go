package report

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/hed1ad/anomalyconsensus/pkg/consensus"
	"github.com/hed1ad/anomalyconsensus/pkg/detectors"
)

var categoryTitles = map[detectors.Category]string{
	detectors.Traditional: "Traditional",
	detectors.Learned:     "Machine Learning",
	detectors.Specialized: "Advanced AI",
}

// WriteResults prints one line per method grouped by category, with the
// share of records flagged.
func WriteResults(w io.Writer, r *consensus.Report) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "COMPARISON RESULTS (%s, %d records)\n", r.DataSource, r.Summary.Records)
	for _, cat := range detectors.Categories() {
		var lines []consensus.DetectionResult
		for _, res := range r.Results {
			if res.Category == cat {
				lines = append(lines, res)
			}
		}
		if len(lines) == 0 {
			continue
		}
		fmt.Fprintf(tw, "\n* %s\n", categoryTitles[cat])
		for _, res := range lines {
			if !res.Succeeded() {
				fmt.Fprintf(tw, "  %s\t%s\t\t%.4fs\t%s\n", res.Name, res.Status, res.Duration.Seconds(), res.Error)
				continue
			}
			fmt.Fprintf(tw, "  %s\t%d anomalies\t(%s)\t%.4fs\t\n",
				res.Name, len(res.Anomalies), percent(len(res.Anomalies), r.Summary.Records), res.Duration.Seconds())
		}
	}
	return tw.Flush()
}

// WriteStatistics prints anomaly count and execution time statistics.
func WriteStatistics(w io.Writer, r *consensus.Report) error {
	s := r.Statistics
	var b strings.Builder
	b.WriteString("\nSTATISTICS\n")
	if s.Computable {
		fmt.Fprintf(&b, "Anomaly detection (%d successful methods):\n", s.Successful)
		fmt.Fprintf(&b, "  Average: %.1f\n", s.Mean)
		fmt.Fprintf(&b, "  Min (most conservative): %d\n", s.Min)
		fmt.Fprintf(&b, "  Max (most sensitive): %d\n", s.Max)
		fmt.Fprintf(&b, "  Std Dev: %.2f\n", s.StdDev)
	} else {
		b.WriteString("Anomaly detection: no method succeeded\n")
	}
	b.WriteString("Execution time:\n")
	fmt.Fprintf(&b, "  Total: %.2fs\n", s.TotalTime.Seconds())
	fmt.Fprintf(&b, "  Average per method: %.4fs\n", s.MeanTime.Seconds())
	if s.Fastest != nil {
		fmt.Fprintf(&b, "  Fastest: %s %.4fs\n", s.Fastest.Name, s.Fastest.Duration.Seconds())
	}
	if s.Slowest != nil {
		fmt.Fprintf(&b, "  Slowest: %s %.4fs\n", s.Slowest.Name, s.Slowest.Duration.Seconds())
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// WriteDetailed prints the pairwise overlap table and the consensus set.
func WriteDetailed(w io.Writer, r *consensus.Report) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "\nOVERLAP")
	if len(r.Overlap) == 0 {
		fmt.Fprintln(tw, "  fewer than two methods succeeded")
	} else {
		fmt.Fprintln(tw, "  method A\tmethod B\tshared\tjaccard")
		for _, o := range r.Overlap {
			fmt.Fprintf(tw, "  %s\t%s\t%d\t%.3f\n", o.A, o.B, o.Count, o.Jaccard)
		}
	}

	c := r.Consensus
	rule := "more than"
	if c.Policy.Inclusive {
		rule = "at least"
	}
	fmt.Fprintf(tw, "\nCONSENSUS (%s %.0f%% of %d methods)\n", rule, c.Policy.Fraction*100, c.Methods)
	switch {
	case !c.Computable:
		fmt.Fprintln(tw, "  not computable: fewer than two methods succeeded")
	case len(c.Indices) == 0:
		fmt.Fprintln(tw, "  no record reached consensus")
	default:
		fmt.Fprintf(tw, "  %d records (%s): %s\n",
			len(c.Indices), percent(len(c.Indices), r.Summary.Records), joinInts(c.Indices, 20))
	}
	return tw.Flush()
}

func percent(n, total int) string {
	if total == 0 {
		return "N/A"
	}
	return fmt.Sprintf("%.2f%%", float64(n)/float64(total)*100)
}

func joinInts(xs []int, limit int) string {
	parts := make([]string, 0, min(len(xs), limit)+1)
	for i, x := range xs {
		if i == limit {
			parts = append(parts, fmt.Sprintf("... (+%d more)", len(xs)-limit))
			break
		}
		parts = append(parts, fmt.Sprint(x))
	}
	return strings.Join(parts, ", ")
}
