package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var (
	knowledgeDocType string
	knowledgeTopK    int
)

var knowledgeCmd = &cobra.Command{
	Use:   "knowledge TEXT",
	Short: "Print a knowledge digest for a question",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()

		ctx, cancel := a.queryContext(cmd.Context())
		defer cancel()

		digest, err := a.knowledge.Search(ctx, strings.Join(args, " "), knowledgeDocType, knowledgeTopK)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), digest)
		return err
	},
}

func init() {
	knowledgeCmd.Flags().StringVarP(&knowledgeDocType, "doc-type", "t", "", "Restrict to one doc_type")
	knowledgeCmd.Flags().IntVarP(&knowledgeTopK, "top-k", "k", 0, "Number of chunks (1-10, default 3)")
	rootCmd.AddCommand(knowledgeCmd)
}
