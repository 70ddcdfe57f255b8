package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/fentz26/rtcheck/internal/config"
)

func newProfileCmd(o *options) *cobra.Command {
	profileCmd := &cobra.Command{
		Use:   "profile",
		Short: "Manage the run profile",
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write the default run profile",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.DefaultPath()
			if len(args) == 1 {
				path = args[0]
			}
			if path == "" {
				return fmt.Errorf("no profile path: home directory unknown")
			}
			if !force && fileExists(path) {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err := config.SaveConfig(path, config.DefaultConfig()); err != nil {
				return err
			}
			fmt.Fprintf(o.out(), "Wrote %s\n", path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing profile")

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective profile after env and flag overrides",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := yaml.Marshal(o.cfg)
			if err != nil {
				return fmt.Errorf("marshaling profile: %w", err)
			}
			_, err = o.out().Write(data)
			return err
		},
	}

	profileCmd.AddCommand(initCmd, showCmd)
	return profileCmd
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
