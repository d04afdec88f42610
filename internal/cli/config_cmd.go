package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "config",
		Short:         "Print the effective configuration as YAML",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return &ExitError{Code: ExitCLIError, Err: err}
			}

			if path, _ := cmd.Flags().GetString("write"); path != "" {
				if err := cfg.Save(path); err != nil {
					return &ExitError{Code: ExitCLIError, Err: fmt.Errorf("write config: %w", err)}
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s\n", path)
			}

			data, err := yaml.Marshal(cfg)
			if err != nil {
				return &ExitError{Code: ExitCLIError, Err: err}
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	cmd.Flags().String("write", "", "Also save the configuration to this file")
	return cmd
}
