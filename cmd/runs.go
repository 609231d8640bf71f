package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/parcel-ingest/internal/model"
)

var runsCmd = &cobra.Command{
	Use:   "runs <source-id>",
	Short: "List recent collection runs for a source",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		limit, _ := cmd.Flags().GetInt("limit")
		results, err := st.ListCollectionResults(ctx, args[0], limit)
		if err != nil {
			return eris.Wrap(err, "runs")
		}

		if len(results) == 0 {
			fmt.Fprintln(os.Stderr, "No runs found.")
			return nil
		}

		formatRunsList(os.Stdout, results)
		return nil
	},
}

func formatRunsList(w io.Writer, results []model.CollectionResult) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN ID\tCOLLECTED\tSTATUS\tRECORDS\tMESSAGE")
	for _, r := range results {
		status := "ok"
		if !r.Success {
			status = r.ErrorKind()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n",
			r.RunID, r.Timestamp.Format(time.RFC3339), status, len(r.RecordIDs), r.Message)
	}
	_ = tw.Flush()
}

func init() {
	runsCmd.Flags().Int("limit", 20, "max number of runs to display")
	rootCmd.AddCommand(runsCmd)
}
