package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/bookarchive/internal/config"
)

// DefaultConfigFile is where config init writes when no path is given.
const DefaultConfigFile = "bookarchive.yaml"

// NewConfigCommand creates the config command group.
func NewConfigCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Create or inspect configuration",
	}

	cmd.AddCommand(newConfigInitCommand(rootOpts))
	cmd.AddCommand(newConfigShowCommand(rootOpts))

	return cmd
}

func newConfigInitCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "init [path]",
		Short: "Write a default config file",
		Long: `Write a commented default configuration file.

The file is written atomically. An existing file is left untouched.`,
		Args:          argsError(cobra.MaximumNArgs(1)),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := DefaultConfigFile
			if len(args) == 1 {
				path = args[0]
			}

			if err := config.WriteDefault(path); err != nil {
				code := ExitFailure
				if errors.Is(err, config.ErrConfigExists) {
					code = ExitCommandError
				}
				return WrapExitError(code, "config init failed", err)
			}

			f := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
			if f.Format == "json" {
				return f.Success(map[string]string{"path": path})
			}
			return f.Success(fmt.Sprintf("Wrote default configuration to %s", path))
		},
	}
}

func newConfigShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "show",
		Short:         "Print the effective configuration",
		Long:          "Print the configuration after defaults, the config file, environment and flags are applied.",
		Args:          argsError(cobra.NoArgs),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(rootOpts)
			if err != nil {
				return err
			}

			if rootOpts.Format == "json" {
				f := &OutputFormatter{Format: "json", Writer: cmd.OutOrStdout()}
				return f.Success(cfg)
			}

			out, err := yaml.Marshal(cfg)
			if err != nil {
				return WrapExitError(ExitFailure, "encoding config", err)
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}
