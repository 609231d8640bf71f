package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var geocodeCmd = &cobra.Command{
	Use:   "geocode <address>",
	Short: "Geocode one address with the configured provider",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("geocode"); err != nil {
			return err
		}
		client, err := initGeocoder()
		if err != nil {
			return err
		}
		if client == nil {
			return eris.New("geocode: provider is none")
		}

		res, err := client.Geocode(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			return eris.Wrap(err, "geocode")
		}
		if res == nil {
			fmt.Fprintln(os.Stderr, "No match.")
			return nil
		}
		return writeJSON(os.Stdout, res)
	},
}

func init() {
	rootCmd.AddCommand(geocodeCmd)
}
