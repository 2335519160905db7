package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/kailas-cloud/kbquery/internal/config"
	"github.com/kailas-cloud/kbquery/internal/domain"
)

var (
	// envName selects config/<env>.yaml
	envName string
	// configPath overrides the profile lookup
	configPath string
	// logLevel overrides logging.level
	logLevel string
	// envFile is loaded before the config is read
	envFile string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "kbquery",
	Short: "Semantic search over an HR onboarding knowledge base",
	Long: `kbquery embeds a question, runs a KNN search against a Redis or Valkey
vector index and prints the matching chunks with their metadata.

Examples:
  # Top 3 chunks for a question
  kbquery query "What are the mandatory compliance requirements?"

  # Restrict to one source document
  kbquery query "Find guidance on ethical decision making" --top-k 2 \
    --where source_file=organization-coe.pdf --show source_file,topic

  # Knowledge digest for an assistant tool
  kbquery knowledge "Who is joining the HR department?" --doc-type employee_record

  # Replay the recorded retrieval scenarios
  kbquery verify

  # Serve the HTTP API
  kbquery serve`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := loadDotEnv(envFile); err != nil {
			return err
		}
		if envName == "" {
			envName = config.GetEnv()
		}
		return nil
	},
}

// Execute adds all child commands to the root command and runs it with a
// context cancelled on SIGINT/SIGTERM.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envName, "env", "", "Config profile (defaults to $ENV or local)")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a config file (overrides --env lookup)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Dotenv file loaded before the config")
}

// loadDotEnv loads variables from path without overriding the environment.
// A missing file is not an error.
func loadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// errScenarioFailed marks a verify run with at least one failing scenario.
var errScenarioFailed = errors.New("scenario verification failed")

// ExitCode maps a command error to a process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, domain.ErrInvalidQuery), errors.Is(err, domain.ErrUnsupportedFilter):
		return 2
	case errors.Is(err, domain.ErrEmbedding):
		return 3
	case errors.Is(err, domain.ErrCollectionNotFound), errors.Is(err, domain.ErrStoreQuery):
		return 4
	case errors.Is(err, domain.ErrMalformedResult):
		return 5
	default:
		return 1
	}
}
