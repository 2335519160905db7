package cmd

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/kbquery/internal/usecase/verify"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Replay the recorded retrieval scenarios against the live store",
	Long: `verify runs each recorded query, prints its results and checks the
metadata of every returned chunk. The command exits non-zero when any
scenario fails.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()

		ctx, cancel := a.queryContext(cmd.Context())
		defer cancel()

		outcomes := verify.New(a.query, a.logger).Run(ctx, verify.Transcripts())
		return reportOutcomes(cmd.OutOrStdout(), outcomes)
	},
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}

// reportOutcomes prints every scenario and returns errScenarioFailed if any failed.
func reportOutcomes(w io.Writer, outcomes []verify.Outcome) error {
	failed := 0
	for i, o := range outcomes {
		fmt.Fprintf(w, "\n--- Test %d: %s ---\n", i+1, o.Scenario.Name)
		if o.Err != nil {
			fmt.Fprintf(w, "ERROR: %v\n", o.Err)
			failed++
			continue
		}
		if err := writeText(w, o.Records, scenarioKeys(o.Scenario)); err != nil {
			return err
		}
		for _, m := range o.Mismatches {
			fmt.Fprintf(w, "MISMATCH: %s\n", m)
		}
		if o.Passed() {
			fmt.Fprintln(w, "PASS")
		} else {
			fmt.Fprintln(w, "FAIL")
			failed++
		}
	}
	fmt.Fprintf(w, "\n%d/%d scenarios passed\n", len(outcomes)-failed, len(outcomes))
	if failed > 0 {
		return fmt.Errorf("%w: %d of %d", errScenarioFailed, failed, len(outcomes))
	}
	return nil
}

// scenarioKeys lists the metadata keys a scenario makes assertions about.
func scenarioKeys(sc verify.Scenario) []string {
	seen := make(map[string]struct{})
	for _, p := range sc.Positions {
		for k := range p {
			seen[k] = struct{}{}
		}
	}
	for k := range sc.Each {
		seen[k] = struct{}{}
	}
	if len(seen) == 0 {
		return defaultShow
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
