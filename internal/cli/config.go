package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lu-zhengda/whsock/internal/config"
)

func newConfigCmd(opts *options) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the whsock config file",
		// The config file may not exist yet, so it is not loaded here.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with the default values",
		Long: `Write a config file with the default values to the path given by
--config, or to ~/.config/whsock/config.yaml.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.runConfigInit(cmd, force)
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config file")

	configCmd.AddCommand(initCmd)
	return configCmd
}

func (o *options) runConfigInit(cmd *cobra.Command, force bool) error {
	path := o.configPath
	if path == "" {
		path = config.DefaultPath()
		if path == "" {
			return fmt.Errorf("failed to determine config path, use --config")
		}
	}

	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file %s already exists (use --force to overwrite)", path)
		}
	}

	if err := config.Default().Save(path); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote default config to %s\n", path)
	return nil
}
