package commands

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/callwaiting/voxbridge/pkg/cli"
)

const appName = "voxbridge"

var (
	// Global flags
	cfgFile     string
	contextName string
	outputFile  string
	inputFile   string
	outputJSON  bool
	jqQuery     string
	verbose     bool

	// Global configuration
	globalConfig *cli.Config
)

var rootCmd = &cobra.Command{
	Use:   "voxbridge",
	Short: "Voice agent session bridge CLI",
	Long: `voxbridge - talk to a voice agent from the command line.

The CLI starts a browser-style voice session, streams a PCM file as the
caller's microphone, records the agent's audio and prints the conversation
as it is transcribed. Finished sessions are archived locally and can be
exported to a directory or an S3 bucket.

Configuration is stored in ~/.voxbridge/voxbridge/ and supports multiple
contexts, similar to kubectl's context management.

Examples:
  # Set up a context
  voxbridge config add-context dev --base-url http://localhost:3000 \
      --token $TOKEN --org-id $ORG

  # Talk for 30 seconds using a recorded caller
  voxbridge session start --input caller.pcm --duration 30s

  # Export the last session to S3
  voxbridge archive list --limit 1 --json --jq '.[0].session.session_id'
  voxbridge archive export <id> --to s3://calls/exports
`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "", "", "config file (default is ~/.voxbridge/voxbridge/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&contextName, "context", "c", "", "context name to use")
	rootCmd.PersistentFlags().StringVarP(&outputFile, "output", "o", "", "output file (default: stdout)")
	rootCmd.PersistentFlags().StringVarP(&inputFile, "file", "f", "", "input request file (YAML or JSON)")
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "output as JSON (for piping)")
	rootCmd.PersistentFlags().StringVar(&jqQuery, "jq", "", "filter output through a jq expression")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(sessionCmd)
	rootCmd.AddCommand(archiveCmd)
	rootCmd.AddCommand(whoamiCmd)
}

func initConfig() {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})))

	var err error
	globalConfig, err = cli.LoadConfigWithPath(appName, cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing config: %v\n", err)
		os.Exit(1)
	}
}

func getConfig() *cli.Config {
	return globalConfig
}

// getContext returns the context configuration to use
func getContext() (*cli.Context, error) {
	cfg := getConfig()
	if cfg == nil {
		return nil, fmt.Errorf("configuration not initialized")
	}

	ctx, err := cfg.ResolveContext(contextName)
	if err != nil {
		if contextName == "" {
			return nil, fmt.Errorf("no context specified. Use -c flag or set a default context with 'voxbridge config use-context'")
		}
		return nil, err
	}
	return ctx, nil
}

func getPaths() (*cli.Paths, error) {
	return cli.NewPaths(appName)
}

// outputResult writes result honoring --json, --jq and -o.
func outputResult(result any) error {
	format := cli.FormatYAML
	if outputJSON || jqQuery != "" {
		format = cli.FormatJSON
	}
	return cli.Output(result, cli.OutputOptions{
		Format: format,
		File:   outputFile,
		Query:  jqQuery,
	})
}
