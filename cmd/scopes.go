package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/camera-db/internal/query"
)

var scopesCmd = &cobra.Command{
	Use:   "scopes",
	Short: "List the region codes accepted by build --state",
	RunE: func(cmd *cobra.Command, _ []string) error {
		country, _ := cmd.Flags().GetString("country")
		if country == "" {
			country = cfg.Pipeline.Country
		}
		return formatScopes(os.Stdout, country)
	},
}

func init() {
	scopesCmd.Flags().String("country", "", "country code (default pipeline.country)")
	rootCmd.AddCommand(scopesCmd)
}

// formatScopes writes the region table for country to out.
func formatScopes(out io.Writer, country string) error {
	codes := query.RegionCodes(country)
	if len(codes) == 0 {
		return eris.Errorf("no regions known for country %q", country)
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "CODE\tNAME")
	for _, code := range codes {
		_, _ = fmt.Fprintf(w, "%s\t%s\n", code, query.RegionName(country, code))
	}
	return w.Flush()
}
