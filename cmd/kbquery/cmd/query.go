package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/kbquery/internal/domain"
	"github.com/kailas-cloud/kbquery/internal/domain/search/filter"
)

var (
	queryTopK     int
	queryWhere    []string
	queryOutput   string
	queryShow     []string
	queryWithMeta bool
)

var queryCmd = &cobra.Command{
	Use:   "query TEXT",
	Short: "Run a semantic query and print the matching chunks",
	Long: `Embed TEXT, search the collection and print up to --top-k chunks in
relevance order. --where restricts the search to chunks whose metadata field
equals the given value; repeat it to require several fields.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		switch queryOutput {
		case "text", "json":
		default:
			return fmt.Errorf("unsupported output format %q (want text or json)", queryOutput)
		}

		f, err := filter.ParsePairs(queryWhere)
		if err != nil {
			return fmt.Errorf("%w: %w", domain.ErrInvalidQuery, err)
		}

		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()

		ctx, cancel := a.queryContext(cmd.Context())
		defer cancel()

		records, err := a.query.SearchFilter(ctx, strings.Join(args, " "), queryTopK, f)
		if err != nil {
			return err
		}

		if queryOutput == "json" {
			return writeJSON(cmd.OutOrStdout(), records, queryWithMeta)
		}
		return writeText(cmd.OutOrStdout(), records, queryShow)
	},
}

func init() {
	queryCmd.Flags().IntVarP(&queryTopK, "top-k", "k", 0, "Number of results (0 uses query.default_top_k)")
	queryCmd.Flags().StringArrayVarP(&queryWhere, "where", "w", nil, "Metadata equality filter field=value (repeatable)")
	queryCmd.Flags().StringVarP(&queryOutput, "output", "o", "text", "Output format: text, json")
	queryCmd.Flags().StringSliceVar(&queryShow, "show", defaultShow, "Metadata keys shown in each text result header")
	queryCmd.Flags().BoolVar(&queryWithMeta, "scores", false, "Include score and id in JSON output")
	rootCmd.AddCommand(queryCmd)
}
