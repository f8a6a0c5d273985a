// Command chatclient joins a relay room from the terminal: stdin lines are
// sent as chat messages, room events are printed to stdout.
package main

import (
	"bufio"
	"chatrelay/internal/client"
	"chatrelay/internal/config"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
)

func main() {
	logCfg := zap.NewDevelopmentConfig()
	logCfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	log, _ := logCfg.Build()
	defer log.Sync()
	zap.ReplaceGlobals(log)

	cfg, err := config.LoadClientConfig()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := newRenderer(os.Stdout, cfg.Username)
	session := client.NewSession(cfg.RelayURL, cfg.Username, cfg.Room,
		client.WithReconnectDelay(cfg.ReconnectDelay),
		client.WithEventHandler(out.event),
		client.WithStatusHandler(out.status),
	)
	if err := session.Start(); err != nil {
		log.Fatal("session.start", zap.Error(err))
	}
	defer session.Close()

	fmt.Fprintf(os.Stdout, "Room: %s | Connected as: %s\n", cfg.Room, cfg.Username)

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			if err := session.Send(line); errors.Is(err, client.ErrNotConnected) {
				out.notice("not connected, message not sent")
			} else if err != nil {
				log.Warn("session.send", zap.Error(err))
			}
		}
	}
}
