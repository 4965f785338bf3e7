package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newInferenceCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inference",
		Short: "Control model inference sessions",
	}

	cmd.AddCommand(newInferenceStartCommand(), newInferenceStopCommand())
	return cmd
}

func newInferenceStartCommand() *cobra.Command {
	var (
		alias     string
		modelRepo string
		filePath  string
		force     bool
	)

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start an inference session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := newDispatcher()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), controlTimeout)
			defer cancel()

			if err := d.StartInference(ctx, alias, modelRepo, filePath, force); err != nil {
				return err
			}
			fmt.Printf("start requested for %q, watch for the status change\n", alias)
			return nil
		},
	}

	cmd.Flags().StringVar(&alias, "alias", "", "session alias (required)")
	cmd.Flags().StringVar(&modelRepo, "model-repo", "", "model repository (required)")
	cmd.Flags().StringVar(&filePath, "file-path", "", "file path within the repository (required)")
	cmd.Flags().BoolVar(&force, "force", false, "replace a running session under the same alias")
	cmd.MarkFlagRequired("alias")
	cmd.MarkFlagRequired("model-repo")
	cmd.MarkFlagRequired("file-path")
	return cmd
}

func newInferenceStopCommand() *cobra.Command {
	var alias string

	cmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop an inference session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := newDispatcher()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), controlTimeout)
			defer cancel()

			if err := d.StopInference(ctx, alias); err != nil {
				return err
			}
			fmt.Printf("stop requested for %q, watch for the status change\n", alias)
			return nil
		},
	}

	cmd.Flags().StringVar(&alias, "alias", "", "session alias (required)")
	cmd.MarkFlagRequired("alias")
	return cmd
}
