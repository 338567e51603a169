// Copyright 2026 The Signet Authors
// SPDX-License-Identifier: Apache-2.0

// signet-relay is a standalone signaling relay: a store-and-forward
// queue of offer/answer/candidate envelopes, polled over HTTP. It holds
// no key material and sees only sealed payloads; it exists so two
// clients can find each other, not so it can read their traffic.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/signet-chat/signet/signaling"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		listenAddr  string
		stunServers []string
	)

	flagSet := pflag.NewFlagSet("signet-relay", pflag.ContinueOnError)
	flagSet.StringVar(&listenAddr, "listen", ":8787", "address to serve the signaling API on")
	flagSet.StringSliceVar(&stunServers, "stun", nil,
		"STUN server URL to advertise to clients (repeatable)")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	relay := signaling.NewServer(logger)
	if len(stunServers) > 0 {
		relay.SetICEServers(signaling.ICEServers{STUNServers: stunServers})
	}

	server := &http.Server{
		Addr:              listenAddr,
		Handler:           relay.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errs := make(chan error, 1)
	go func() {
		logger.Info("signet-relay listening", "addr", listenAddr)
		errs <- server.ListenAndServe()
	}()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	logger.Info("signet-relay stopped")
	return nil
}
