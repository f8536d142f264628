// Package cli holds the plumbing shared by voxbridge command-line tools.
//
// This package includes:
//   - Configuration management (kubectl-style contexts)
//   - Output formatting (YAML, JSON, raw) with optional jq filtering
//   - Request file loading (YAML/JSON)
//   - Terminal rendering of live and archived transcripts
//
// Configuration is stored in ~/.voxbridge/<app>/config.yaml.
//
//	cfg, err := cli.LoadConfig("voxbridge")
//	ctx, err := cfg.ResolveContext("")
//
//	cli.Output(session, cli.OutputOptions{
//	    Format: cli.FormatJSON,
//	    Query:  ".total_messages",
//	})
package cli
