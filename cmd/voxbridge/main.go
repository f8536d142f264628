// Package main provides the voxbridge CLI.
//
// Usage:
//
//	voxbridge [flags] <command> [args]
//
// Commands:
//
//	session  - Start a live voice session against the bridge
//	archive  - Inspect and export finished sessions
//	whoami   - Show the identity behind the current token
//	config   - Configuration management
//
// Configuration:
//
//	The CLI stores configuration in ~/.voxbridge/voxbridge/
//	Use 'voxbridge config' commands to manage contexts.
package main

import (
	"fmt"
	"os"

	"github.com/callwaiting/voxbridge/cmd/voxbridge/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
