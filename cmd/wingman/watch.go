package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/curtisgray/wingman-sub001/internal/api"
	"github.com/curtisgray/wingman-sub001/internal/eventbus"
	"github.com/curtisgray/wingman-sub001/internal/reconciler"
	"github.com/curtisgray/wingman-sub001/internal/transport"
)

const watchRefreshInterval = 500 * time.Millisecond

func newWatchCommand() *cobra.Command {
	var (
		modelRepo string
		filePath  string
		alias     string
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream live download and inference status",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWatch(modelRepo, filePath, alias)
		},
	}

	cmd.Flags().StringVar(&modelRepo, "model-repo", "", "limit the view to one download's model repo")
	cmd.Flags().StringVar(&filePath, "file-path", "", "limit the view to one download's file path")
	cmd.Flags().StringVar(&alias, "alias", "", "limit the view to one inference session")
	cmd.MarkFlagsRequiredTogether("model-repo", "file-path")
	return cmd
}

func runWatch(modelRepo, filePath, alias string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bus := eventbus.New()
	defer bus.Shutdown()

	adapter := transport.New(cfg.SocketURL(),
		transport.WithBus(bus),
		transport.WithReconnectInterval(cfg.ReconnectInterval(), cfg.MaxReconnectInterval()),
		transport.WithHandshakeTimeout(cfg.HandshakeTimeout()),
	)

	recOpts := []reconciler.Option{reconciler.WithBus(bus)}
	if modelRepo != "" || filePath != "" {
		recOpts = append(recOpts, reconciler.WithDownloadScope(modelRepo, filePath))
	}
	if alias != "" {
		recOpts = append(recOpts, reconciler.WithAliasScope(alias))
	}
	rec := reconciler.New(recOpts...)

	if err := adapter.Connect(ctx); err != nil {
		return err
	}
	defer adapter.Close()

	runDone := make(chan struct{})
	go func() {
		defer close(runDone)
		rec.Run(ctx, adapter.Events())
	}()

	stateSub := eventbus.SubscribeTo(bus, eventbus.Transport.State, eventbus.WithContext(ctx))
	var group eventbus.SubscriptionGroup
	group.Add(stateSub)
	defer group.CloseAll()

	connState := string(adapter.State())
	var lastVersion uint64

	ticker := time.NewTicker(watchRefreshInterval)
	defer ticker.Stop()

	renderView(rec, connState)
	for {
		select {
		case <-ctx.Done():
			<-runDone
			return nil
		case env, ok := <-stateSub.C():
			if !ok {
				continue
			}
			connState = env.Payload.State
			renderView(rec, connState)
		case <-ticker.C:
			if v := rec.Version(); v != lastVersion {
				lastVersion = v
				renderView(rec, connState)
			}
		}
	}
}

func renderView(rec *reconciler.Reconciler, connState string) {
	// Clear screen and home the cursor.
	fmt.Print("\033[2J\033[H")

	fmt.Printf("Channel: %s    Download service: %s    Inference service: %s\n\n",
		connState, rec.DownloadServer().Status, rec.WingmanServer().Status)

	downloads := rec.Downloads()
	if len(downloads) > 0 {
		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.SetStyle(table.StyleLight)
		t.AppendHeader(table.Row{"Model Repo", "File", "Status", "Progress", "Speed", "Size"})
		for _, item := range downloads {
			t.AppendRow(table.Row{
				item.ModelRepo,
				item.FilePath,
				item.Status,
				fmt.Sprintf("%.1f%%", item.Progress),
				item.DownloadSpeed,
				formatSize(item),
			})
		}
		t.Render()
		fmt.Println()
	}

	sessions := rec.WingmanItems()
	if len(sessions) > 0 {
		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.SetStyle(table.StyleLight)
		t.AppendHeader(table.Row{"Alias", "Model Repo", "File", "Status", "Error"})
		for _, item := range sessions {
			t.AppendRow(table.Row{item.Alias, item.ModelRepo, item.FilePath, item.Status, item.Error})
		}
		t.Render()
		fmt.Println()
	}

	if len(downloads) == 0 && len(sessions) == 0 {
		fmt.Println("No active items.")
	}
}

func formatSize(item api.DownloadItem) string {
	if item.TotalBytes <= 0 {
		return humanize.Bytes(uint64(item.DownloadedBytes))
	}
	return fmt.Sprintf("%s / %s",
		humanize.Bytes(uint64(item.DownloadedBytes)),
		humanize.Bytes(uint64(item.TotalBytes)))
}
