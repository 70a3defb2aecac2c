package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"go-roof-inspector/internal/factory"
)

func newArtifactCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "artifact",
		Short: "Inspect stored dossier artifacts",
	}
	cmd.AddCommand(newArtifactGetCmd(root))
	return cmd
}

func newArtifactGetCmd(root *rootOptions) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "get <path>",
		Short: "Download an artifact such as dossiers/<id>/heatmap.png",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			store, err := factory.NewStorageFactory().CreateStorage(factory.StorageType(root.cfg.Storage.Backend), root.cfg.Storage)
			if err != nil {
				return err
			}
			defer store.Close()

			data, err := store.Load(ctx, args[0])
			if err != nil {
				return err
			}

			if output == "" || output == "-" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "wrote %d bytes to %s\n", len(data), output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "write to file instead of stdout")
	return cmd
}
