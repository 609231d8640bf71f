package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sells-group/parcel-ingest/pkg/fuzzy"
)

var matchCmd = &cobra.Command{
	Use:   "match <query> <choice>...",
	Short: "Fuzzy-match a name or address against candidates",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("match"); err != nil {
			return err
		}
		threshold, _ := cmd.Flags().GetFloat64("threshold")
		all, _ := cmd.Flags().GetBool("all")

		out := runMatch(initMatcher(), args[0], args[1:], threshold, all)
		if out == nil {
			fmt.Fprintln(os.Stderr, "No match.")
			return nil
		}
		return writeJSON(os.Stdout, out)
	},
}

// runMatch returns the best match, every qualifying match when all is set,
// or nil when nothing qualifies.
func runMatch(m *fuzzy.Matcher, query string, choices []string, threshold float64, all bool) any {
	if all {
		matches := m.FindAllMatches(query, choices, threshold)
		if len(matches) == 0 {
			return nil
		}
		return matches
	}
	best := m.FindBestMatch(query, choices, threshold)
	if best == nil {
		return nil
	}
	return best
}

func init() {
	matchCmd.Flags().Float64("threshold", 0, "minimum similarity; 0 uses the search default")
	matchCmd.Flags().Bool("all", false, "print every match above the threshold, best first")
	rootCmd.AddCommand(matchCmd)
}
