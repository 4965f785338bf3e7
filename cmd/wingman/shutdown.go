package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newShutdownCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "shutdown",
		Short: "Request a graceful backend shutdown",
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := newDispatcher()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), controlTimeout)
			defer cancel()

			if err := d.ShutdownServer(ctx); err != nil {
				return err
			}
			fmt.Println("shutdown requested")
			return nil
		},
	}
}
