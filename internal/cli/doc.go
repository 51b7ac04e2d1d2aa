// Package cli implements the hop command-line interface.
//
// The package is organized around Cobra commands, with each command
// delegating to workflow functions for the actual work. The general
// structure follows a clean separation between:
//
//   - Command definitions (cobra.Command instances)
//   - Workflow orchestration (config load, inventory fetch, plan resolution)
//   - Implementation details (in other internal packages)
//
// # Command Structure
//
// The root command is "hop" with subcommands for different operations:
//
//	hop list            - Show the cached inventory
//	hop connect [host]  - Resolve a plan and open an SSH session
//	hop route <host>    - Print the plan without connecting
//	hop scp             - Copy files through the resolved plan
//	hop scan            - Run file listings and commands across hosts
//	hop history         - Show recent connections and commands
//	hop init            - Create a config file
//
// # Flag Handling
//
// Global flags (--config, --json, --no-color) are defined on the root
// command and available to all subcommands. Command-specific flags like
// --refresh and --probe are defined on individual commands.
package cli
