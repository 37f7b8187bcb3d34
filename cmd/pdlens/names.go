package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"pdlens/domain/feature"
	"pdlens/domain/interpret"

	"github.com/spf13/cobra"
)

func newNamesCmd(state *cliState) *cobra.Command {
	var rois int
	var roiLabels string

	cmd := &cobra.Command{
		Use:   "names",
		Short: "Print the canonical feature names for an ROI count",
		Long: `Print the ordered feature names: per-ROI statistics, functional
connectivity pairs and band powers.

Example: pdlens names --rois 3 --roi-labels labels.txt`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var labels []string
			if roiLabels != "" {
				var err error
				if labels, err = readLabelsFile(roiLabels); err != nil {
					return err
				}
			}
			layout, err := feature.NewLayout(rois, labels)
			if err != nil {
				return err
			}
			state.logger.Debug("%d ROIs produce %d features", rois, layout.Count())
			for _, name := range layout.Names() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&rois, "rois", 0, "Number of ROIs")
	cmd.Flags().StringVar(&roiLabels, "roi-labels", "", "File with one ROI label per line")
	_ = cmd.MarkFlagRequired("rois")
	return cmd
}

func newCategorizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "categorize NAME...",
		Short: "Print the category and biological interpretation of feature names",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return writeCategories(cmd.OutOrStdout(), interpret.Default, args)
		},
	}
}

func writeCategories(w io.Writer, in *interpret.Interpreter, names []string) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FEATURE\tTYPE\tBIOLOGICAL RELEVANCE")
	for _, name := range names {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", name, in.Categorize(name), in.Interpret(name))
	}
	return tw.Flush()
}
