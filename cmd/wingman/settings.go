package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/curtisgray/wingman-sub001/internal/config"
	"github.com/curtisgray/wingman-sub001/internal/settings"
)

func newSettingsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Manage the local key/value settings store",
	}

	cmd.AddCommand(
		newSettingsGetCommand(),
		newSettingsSetCommand(),
		newSettingsRemoveCommand(),
		newSettingsServeCommand(),
	)
	return cmd
}

func openSettingsStore() (*settings.Store, error) {
	paths, err := config.EnsureAppDirs()
	if err != nil {
		return nil, err
	}
	return settings.Open(paths.Settings)
}

func newSettingsGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Print the value stored under a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			store, err := openSettingsStore()
			if err != nil {
				return err
			}

			value, err := store.Get(args[0])
			if err != nil {
				if errors.Is(err, settings.ErrNotFound) {
					return fmt.Errorf("key %q not found", args[0])
				}
				return err
			}
			fmt.Println(value)
			return nil
		},
	}
}

func newSettingsSetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Store a value under a key",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			store, err := openSettingsStore()
			if err != nil {
				return err
			}
			return store.Set(args[0], args[1])
		},
	}
}

func newSettingsRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <key>",
		Short: "Remove a key from the store",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			store, err := openSettingsStore()
			if err != nil {
				return err
			}
			return store.Remove(args[0])
		},
	}
}

func newSettingsServeCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the key/value settings HTTP surface",
		RunE: func(_ *cobra.Command, _ []string) error {
			store, err := openSettingsStore()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			server := &http.Server{
				Addr:              addr,
				Handler:           settings.NewHandler(store, nil),
				ReadHeaderTimeout: 5 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				errCh <- server.ListenAndServe()
			}()
			fmt.Printf("settings surface listening on %s\n", addr)

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:6569", "listen address")
	return cmd
}
