package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/rileyhilliard/hop/internal/config"
	"github.com/rileyhilliard/hop/internal/errors"
	"github.com/rileyhilliard/hop/internal/ui"
	"github.com/rileyhilliard/hop/internal/util"
)

var (
	initForceFlag bool
	initLocalFlag bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a hop configuration file",
	Long: `Initialize a hop configuration file with interactive prompts.

By default the config is written to ~/.hop/config.yaml so it applies
everywhere. Use --local to write a .hop.yaml in the current directory,
which takes precedence when present.

Examples:
  hop init
  hop init --local
  hop init --force`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return initCommand()
	},
}

func init() {
	initCmd.Flags().BoolVarP(&initForceFlag, "force", "f", false, "overwrite existing config")
	initCmd.Flags().BoolVar(&initLocalFlag, "local", false, "write .hop.yaml in the current directory")
	rootCmd.AddCommand(initCmd)
}

func initCommand() error {
	configPath, err := initTargetPath()
	if err != nil {
		return err
	}

	if _, err := os.Stat(configPath); err == nil && !initForceFlag {
		var overwrite bool
		form := huh.NewForm(
			huh.NewGroup(
				huh.NewConfirm().
					Title(fmt.Sprintf("Config file '%s' already exists. Overwrite?", configPath)).
					Value(&overwrite),
			),
		)
		if err := form.Run(); err != nil {
			return errors.WrapWithCode(err, errors.ErrConfig,
				"Failed to get user input",
				"Try running with --force to overwrite")
		}
		if !overwrite {
			fmt.Println("Cancelled.")
			return nil
		}
	}

	var defaultUser, regions, defaultKey string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Default SSH user").
				Description("Username used when connecting to hosts").
				Placeholder("ec2-user").
				Value(&defaultUser),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Regions (optional)").
				Description("Comma-separated regions to list; empty scans all").
				Placeholder("us-west-2, us-east-1").
				Value(&regions),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Default SSH key (optional)").
				Description("Used when no per-host key is found").
				Placeholder("~/.ssh/id_rsa").
				Value(&defaultKey),
		),
	)
	if err := form.Run(); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to get user input",
			"Check terminal compatibility")
	}

	cfg := config.DefaultConfig()
	if strings.TrimSpace(defaultUser) != "" {
		cfg.DefaultUser = strings.TrimSpace(defaultUser)
	}
	for _, region := range strings.Split(regions, ",") {
		if r := strings.TrimSpace(region); r != "" {
			cfg.Regions = append(cfg.Regions, r)
		}
	}
	cfg.DefaultKey = strings.TrimSpace(defaultKey)

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to generate config", "")
	}

	header := `# hop configuration
# Routing rules decide how each host is reached; see 'hop route <host>'.
#
# Example rule sending private hosts through a relay:
#   profiles:
#     corp-relay:
#       relay_host: bastion.example.com
#       relay_user: jump
#   rules:
#     - name: private-fleet
#       match: {has_public_addr: "false"}
#       profile: corp-relay

`
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to create config directory",
			"Check permissions on "+filepath.Dir(configPath))
	}
	if err := os.WriteFile(configPath, []byte(header+string(data)), 0o644); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			fmt.Sprintf("Failed to write config file: %s", configPath),
			"Check directory permissions")
	}

	fmt.Printf("%s Created %s\n", ui.SymbolSuccess, configPath)
	fmt.Printf("  user: %s, regions: %s\n\n", cfg.DefaultUser, util.JoinOrNone(cfg.Regions))
	fmt.Println("Next steps:")
	fmt.Println("  hop list --refresh  - Fetch the inventory")
	fmt.Println("  hop connect         - Pick a host and connect")
	fmt.Println("  hop route <host>    - Inspect a routing plan")
	return nil
}

func initTargetPath() (string, error) {
	if initLocalFlag {
		return filepath.Join(".", config.ConfigFileName), nil
	}
	return config.GlobalConfigPath()
}
