package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/curtisgray/wingman-sub001/internal/dispatch"
)

const controlTimeout = 10 * time.Second

func newDownloadCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "download",
		Short: "Control model file downloads",
	}

	cmd.AddCommand(
		newDownloadActionCommand("cancel", "Cancel an in-flight download",
			func(d *dispatch.Dispatcher, ctx context.Context, repo, file string) error {
				return d.CancelDownload(ctx, repo, file)
			}),
		newDownloadActionCommand("redownload", "Discard and re-fetch a model file",
			func(d *dispatch.Dispatcher, ctx context.Context, repo, file string) error {
				return d.RedownloadFile(ctx, repo, file)
			}),
		newDownloadActionCommand("reset", "Forget a download item",
			func(d *dispatch.Dispatcher, ctx context.Context, repo, file string) error {
				return d.ResetDownload(ctx, repo, file)
			}),
	)
	return cmd
}

func newDownloadActionCommand(use, short string, action func(*dispatch.Dispatcher, context.Context, string, string) error) *cobra.Command {
	var (
		modelRepo string
		filePath  string
	)

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := newDispatcher()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), controlTimeout)
			defer cancel()

			if err := action(d, ctx, modelRepo, filePath); err != nil {
				return err
			}
			fmt.Printf("%s requested for %s:%s, watch for the status change\n", use, modelRepo, filePath)
			return nil
		},
	}

	cmd.Flags().StringVar(&modelRepo, "model-repo", "", "model repository (required)")
	cmd.Flags().StringVar(&filePath, "file-path", "", "file path within the repository (required)")
	cmd.MarkFlagRequired("model-repo")
	cmd.MarkFlagRequired("file-path")
	return cmd
}
