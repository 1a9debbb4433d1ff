package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hed1ad/anomalyconsensus/internal/config"
)

func newDetectorsCmd() *cobra.Command {
	var envFile, detectorsFile string
	var backends []string

	cmd := &cobra.Command{
		Use:   "detectors",
		Short: "List the detectors a run would execute",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(envFiles(envFile)...)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("detectors") {
				cfg.DetectorsFile = detectorsFile
				if err := cfg.LoadDetectors(); err != nil {
					return err
				}
			}
			if cmd.Flags().Changed("backends") {
				cfg.Backends = backends
			}
			reg, err := cfg.Registry()
			if err != nil {
				return err
			}

			env := cfg.Environment()
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tCATEGORY\tTIMEOUT\tAVAILABLE")
			for _, d := range reg.List() {
				available := "yes"
				if d.Requires != "" && !env.Has(d.Requires) {
					available = fmt.Sprintf("no (needs %s)", d.Requires)
				}
				timeout := "none"
				if d.Timeout > 0 {
					timeout = d.Timeout.String()
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", d.Name, d.Category, timeout, available)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&envFile, "env-file", "", "Environment file to load (default: .env)")
	cmd.Flags().StringVar(&detectorsFile, "detectors", "", "YAML file selecting detectors")
	cmd.Flags().StringSliceVar(&backends, "backends", nil, "Optional backends available (deep-learning)")
	return cmd
}
