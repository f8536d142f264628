package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/callwaiting/voxbridge/pkg/cli"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage CLI configuration",
	Long: `Manage CLI configuration and contexts.

A context names one backend deployment together with the token and
organization used against it.

Configuration is stored in ~/.voxbridge/voxbridge/config.yaml`,
}

var configAddContextCmd = &cobra.Command{
	Use:   "add-context <name>",
	Short: "Add a new context",
	Long: `Add a new context with the specified name.

Example:
  voxbridge config add-context dev --base-url http://localhost:3000 --token TOKEN --org-id ORG
  voxbridge config add-context prod --base-url https://app.example.com --token TOKEN --org-id ORG \
      --storage s3://calls/prod`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		flags := cmd.Flags()

		ctx := &cli.Context{}
		for flag, key := range map[string]string{
			"base-url":      "base_url",
			"token":         "token",
			"org-id":        "org_id",
			"frontend-port": "frontend_port",
			"backend-port":  "backend_port",
			"archive-dir":   "archive_dir",
			"storage":       "storage_uri",
		} {
			v, err := flags.GetString(flag)
			if err != nil {
				return fmt.Errorf("failed to read %q flag: %w", flag, err)
			}
			if v != "" {
				ctx.Set(key, v)
			}
		}
		if ctx.BaseURL == "" {
			return fmt.Errorf("--base-url is required")
		}

		timeout, err := flags.GetInt("timeout")
		if err != nil {
			return fmt.Errorf("failed to read 'timeout' flag: %w", err)
		}
		maxRetries, err := flags.GetInt("max-retries")
		if err != nil {
			return fmt.Errorf("failed to read 'max-retries' flag: %w", err)
		}
		ctx.Timeout = timeout
		ctx.MaxRetries = maxRetries

		if err := getConfig().AddContext(name, ctx); err != nil {
			return err
		}
		cli.PrintSuccess("Context %q added successfully", name)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a field on the current context",
	Long: `Set a field on the current (or -c) context.

Keys: base_url, token, org_id, frontend_port, backend_port, timeout,
max_retries, archive_dir, storage_uri, s3.region, s3.endpoint,
s3.access_key_id, s3.secret_access_key, s3.path_style. Any other key is
stored under extra.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, err := getContext()
		if err != nil {
			return err
		}
		if err := ctx.Set(args[0], args[1]); err != nil {
			return err
		}
		if err := getConfig().Save(); err != nil {
			return err
		}
		cli.PrintSuccess("Set %s on context %q", args[0], ctx.Name)
		return nil
	},
}

var configDeleteContextCmd = &cobra.Command{
	Use:   "delete-context <name>",
	Short: "Delete a context",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := getConfig().DeleteContext(args[0]); err != nil {
			return err
		}
		cli.PrintSuccess("Context %q deleted", args[0])
		return nil
	},
}

var configUseContextCmd = &cobra.Command{
	Use:   "use-context <name>",
	Short: "Set the current context",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := getConfig().UseContext(args[0]); err != nil {
			return err
		}
		cli.PrintSuccess("Switched to context %q", args[0])
		return nil
	},
}

var configGetContextCmd = &cobra.Command{
	Use:   "get-context",
	Short: "Display the current context",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := getConfig()
		if cfg.CurrentContext == "" {
			fmt.Println("No current context set")
			return nil
		}
		fmt.Println(cfg.CurrentContext)
		return nil
	},
}

var configListContextsCmd = &cobra.Command{
	Use:     "list-contexts",
	Aliases: []string{"get-contexts"},
	Short:   "List all contexts",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := getConfig()
		if len(cfg.Contexts) == 0 {
			fmt.Println("No contexts configured")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "CURRENT\tNAME\tBASE_URL\tORG_ID\tSTORAGE")
		for _, name := range cfg.ListContexts() {
			ctx := cfg.Contexts[name]
			current := ""
			if name == cfg.CurrentContext {
				current = "*"
			}
			storage := ctx.StorageURI
			if storage == "" {
				storage = "(default)"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", current, name, ctx.BaseURL, ctx.OrgID, storage)
		}
		return w.Flush()
	},
}

var configViewCmd = &cobra.Command{
	Use:   "view",
	Short: "View the current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := getConfig()

		fmt.Printf("Config file: %s\n", cfg.Path())
		fmt.Printf("Current context: %s\n", cfg.CurrentContext)
		fmt.Printf("Contexts: %d\n", len(cfg.Contexts))

		for _, name := range cfg.ListContexts() {
			ctx := cfg.Contexts[name]
			fmt.Printf("\n  %s:\n", name)
			fmt.Printf("    Base URL: %s\n", ctx.BaseURL)
			fmt.Printf("    Token: %s\n", cli.MaskToken(ctx.Token))
			if ctx.OrgID != "" {
				fmt.Printf("    Org ID: %s\n", ctx.OrgID)
			}
			if ctx.FrontendPort != "" || ctx.BackendPort != "" {
				fmt.Printf("    Dev ports: %s -> %s\n", ctx.FrontendPort, ctx.BackendPort)
			}
			if ctx.Timeout > 0 {
				fmt.Printf("    Timeout: %ds\n", ctx.Timeout)
			}
			if ctx.MaxRetries > 0 {
				fmt.Printf("    Max retries: %d\n", ctx.MaxRetries)
			}
			if ctx.ArchiveDir != "" {
				fmt.Printf("    Archive: %s\n", ctx.ArchiveDir)
			}
			if ctx.StorageURI != "" {
				fmt.Printf("    Storage: %s\n", ctx.StorageURI)
			}
			if ctx.S3 != nil {
				fmt.Printf("    S3: region=%s endpoint=%s key=%s\n", ctx.S3.Region, ctx.S3.Endpoint, cli.MaskToken(ctx.S3.AccessKeyID))
			}
		}
		return nil
	},
}

func init() {
	configAddContextCmd.Flags().String("base-url", "", "web voice API base URL (required)")
	configAddContextCmd.Flags().String("token", "", "bearer token")
	configAddContextCmd.Flags().String("org-id", "", "organization (tenant) id")
	configAddContextCmd.Flags().String("frontend-port", "", "local dev frontend port to rewrite in bridge URLs")
	configAddContextCmd.Flags().String("backend-port", "", "local dev backend port bridge URLs are rewritten to")
	configAddContextCmd.Flags().String("archive-dir", "", "session archive directory")
	configAddContextCmd.Flags().String("storage", "", "export location: a directory or s3://bucket/prefix")
	configAddContextCmd.Flags().Int("timeout", 0, "bridge connection timeout in seconds")
	configAddContextCmd.Flags().Int("max-retries", 0, "automatic reconnection attempts")

	configCmd.AddCommand(configAddContextCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configDeleteContextCmd)
	configCmd.AddCommand(configUseContextCmd)
	configCmd.AddCommand(configGetContextCmd)
	configCmd.AddCommand(configListContextsCmd)
	configCmd.AddCommand(configViewCmd)
}
