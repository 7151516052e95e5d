package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/zeusync/openworld/internal/core/observability/log"
	"github.com/zeusync/openworld/internal/game"
	"github.com/zeusync/openworld/internal/server"
	"github.com/zeusync/openworld/sdk/go/client"
)

// A small viewer: joins the world, optionally walks in a square and prints
// what the server keeps relevant around it.
func main() {
	var (
		url      = pflag.String("url", "ws://localhost:8080/ws", "server WebSocket endpoint")
		walk     = pflag.Duration("walk", 0, "walk in a square, turning after this long (0 stands still)")
		every    = pflag.Int("every", 30, "print every n-th snapshot")
		logLevel = pflag.String("log-level", "info", "log level")
	)
	pflag.Parse()

	logger, err := log.New(log.Config{Level: *logLevel, Encoding: "console"})
	if err != nil {
		fmt.Fprintln(os.Stderr, "client:", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	config := client.DefaultClientConfig()
	config.ServerURL = *url
	c := client.NewClient(config, game.NewBuilder(), logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c.OnEvent(client.EventTypeDisconnected, func(event client.Event) error {
		if event.Error != nil {
			fmt.Println("Disconnected:", event.Error)
		}
		stop()
		return nil
	})

	c.OnSnapshot(func(snap server.Snapshot) error {
		if *every <= 0 || snap.Sequence%uint64(*every) != 0 {
			return nil
		}
		pending := 0
		for _, entry := range snap.Objects {
			if entry.Pending {
				pending++
			}
		}
		fmt.Printf("#%d at (%.1f, %.1f): %d relevant, %d pending hibernation\n",
			snap.Sequence, snap.Origin.X, snap.Origin.Y, len(snap.Objects), pending)
		return nil
	})

	if err = c.Connect(ctx); err != nil {
		logger.Error("Failed to connect", log.Error(err))
		os.Exit(1)
	}
	defer func() { _ = c.Close() }()

	if *walk > 0 {
		go square(ctx, c, *walk, logger)
	}

	<-ctx.Done()
	fmt.Println("Bye")
}

func square(ctx context.Context, c *client.Client, leg time.Duration, logger log.Log) {
	moves := []server.Input{{Right: true}, {Up: true}, {Left: true}, {Down: true}}
	ticker := time.NewTicker(leg)
	defer ticker.Stop()

	for i := 0; ; i++ {
		if err := c.SendInput(moves[i%len(moves)]); err != nil {
			logger.Warn("Failed to send input", log.Error(err))
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
