package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/kbquery/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		w := cmd.OutOrStdout()
		v, commit, date := version.Info()
		fmt.Fprintf(w, "kbquery %s\n", v)
		fmt.Fprintf(w, "  Git commit: %s\n", commit)
		fmt.Fprintf(w, "  Built:      %s\n", date)
		fmt.Fprintf(w, "  Go version: %s\n", runtime.Version())
		fmt.Fprintf(w, "  OS/Arch:    %s/%s\n", runtime.GOOS, runtime.GOARCH)
	},
}

func init() {
	rootCmd.Version = version.String()
	rootCmd.AddCommand(versionCmd)
}
