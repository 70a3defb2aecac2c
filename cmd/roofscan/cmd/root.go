// Package cmd implements the roofscan command line.
package cmd

import (
	"github.com/spf13/cobra"

	"go-roof-inspector/internal/config"
	"go-roof-inspector/internal/logger"
)

// rootOptions is shared by every subcommand.
type rootOptions struct {
	cfgFile string
	cfg     *config.Config
}

// NewRootCmd builds the roofscan command tree.
func NewRootCmd(version string) *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "roofscan",
		Short:         "Build roof analysis dossiers from coordinates",
		Long:          "roofscan acquires overhead imagery for a property, isolates the roof, flags anomalies and optionally collects street-level views.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,

		// Logs go to stderr so stdout carries only the dossier.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger.Logger.SetOutput(cmd.ErrOrStderr())
			cfg, err := config.Load(opts.cfgFile)
			if err != nil {
				return err
			}
			opts.cfg = cfg
			return nil
		},

		// When invoked without a subcommand, show help.
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	root.PersistentFlags().StringVar(&opts.cfgFile, "config", "", "config file (default is $"+config.ConfigFileEnv+")")

	root.AddCommand(newAnalyzeCmd(opts), newArtifactCmd(opts))
	return root
}
