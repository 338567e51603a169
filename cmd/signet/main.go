// Copyright 2026 The Signet Authors
// SPDX-License-Identifier: Apache-2.0

// signet is the interactive peer-to-peer chat client. It connects to a
// signaling relay, negotiates direct encrypted sessions with peers, and
// runs a line-oriented chat loop on stdin:
//
//	/connect <peer>      start a session with a peer
//	/disconnect <peer>   tear a session down
//	/status <peer>       show a session's state
//	/msg <peer> <text>   send a message
//	/quit                exit
//
// A bare line is sent to the peer of the most recent /connect or /msg.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/signet-chat/signet/config"
	"github.com/signet-chat/signet/identity"
	"github.com/signet-chat/signet/peering"
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
		configPath   string
		handle       string
		relayURL     string
		directoryURL string
		keyFile      string
		connectPeer  string
		logLevel     string
	)

	flagSet := pflag.NewFlagSet("signet", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "path to signet.yaml (default: $SIGNET_CONFIG)")
	flagSet.StringVar(&handle, "handle", "", "local user handle (overrides config)")
	flagSet.StringVar(&relayURL, "relay-url", "", "signaling relay base URL (overrides config)")
	flagSet.StringVar(&directoryURL, "directory-url", "", "public key directory base URL (overrides config)")
	flagSet.StringVar(&keyFile, "key-file", "", "age identity file (overrides config)")
	flagSet.StringVar(&connectPeer, "connect", "", "peer to connect to on startup")
	flagSet.StringVar(&logLevel, "log-level", "", "minimum log level: debug, info, warn, error")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	applyOverride(&cfg.Identity.Handle, handle)
	applyOverride(&cfg.Relay.URL, relayURL)
	applyOverride(&cfg.Directory.URL, directoryURL)
	applyOverride(&cfg.Identity.KeyFile, keyFile)
	applyOverride(&cfg.Log.Level, logLevel)
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := newLogger(cfg.Log.Level)

	keypair, err := loadOrCreateKeypair(cfg.Identity.KeyFile, logger)
	if err != nil {
		return err
	}
	var sealer *identity.Sealer
	if keypair != nil {
		defer keypair.Close()
		sealer = identity.NewSealer(keypair.Private)
		fmt.Printf("local identity: %s\n", keypair.Public)
	}

	relay, err := signaling.NewClient(signaling.ClientConfig{
		RelayURL: cfg.Relay.URL,
		LocalID:  cfg.Identity.Handle,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	var directory identity.Directory
	if cfg.Directory.URL != "" {
		directory, err = identity.NewHTTPDirectory(cfg.Directory.URL, nil, logger)
		if err != nil {
			return err
		}
	}

	pollInterval, err := cfg.PollInterval()
	if err != nil {
		return err
	}
	connectTimeout, err := cfg.ConnectTimeout()
	if err != nil {
		return err
	}

	manager, err := peering.NewManager(peering.ManagerConfig{
		LocalID:        cfg.Identity.Handle,
		Relay:          relay,
		Network:        peering.NewWebRTCNetwork(logger),
		Directory:      directory,
		Sealer:         sealer,
		PollInterval:   pollInterval,
		ConnectTimeout: connectTimeout,
		Logger:         logger,
		Callbacks: peering.Callbacks{
			OnStateChange: func(peerID string, state peering.State) {
				fmt.Printf("* %s is %s\n", peerID, state)
			},
			OnMessage: func(peerID, text string) {
				fmt.Printf("<%s> %s\n", peerID, text)
			},
			OnError: func(peerID, message string) {
				fmt.Printf("! %s: %s\n", peerID, message)
			},
		},
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	manager.Start(ctx)
	defer manager.Close()
	logger.Info("signet started", "handle", cfg.Identity.Handle, "relay", cfg.Relay.URL)

	if connectPeer != "" {
		if err := manager.Connect(ctx, connectPeer); err != nil {
			fmt.Printf("! connect %s: %v\n", connectPeer, err)
		}
	}

	return chatLoop(ctx, manager, connectPeer)
}

// chatLoop reads stdin line by line until /quit, EOF, or context
// cancellation. Stdin reads cannot be interrupted portably, so on
// signal the loop exits after the next line.
func chatLoop(ctx context.Context, manager *peering.Manager, activePeer string) error {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		command, rest, _ := strings.Cut(line, " ")
		switch command {
		case "/quit":
			return nil
		case "/connect":
			peer := strings.TrimSpace(rest)
			if peer == "" {
				fmt.Println("usage: /connect <peer>")
				continue
			}
			if err := manager.Connect(ctx, peer); err != nil {
				fmt.Printf("! connect %s: %v\n", peer, err)
				continue
			}
			activePeer = peer
		case "/disconnect":
			peer := strings.TrimSpace(rest)
			if peer == "" {
				fmt.Println("usage: /disconnect <peer>")
				continue
			}
			manager.Disconnect(peer)
		case "/status":
			peer := strings.TrimSpace(rest)
			if peer == "" {
				fmt.Println("usage: /status <peer>")
				continue
			}
			fmt.Printf("* %s is %s\n", peer, manager.ConnectionStatus(peer))
		case "/msg":
			peer, text, ok := strings.Cut(strings.TrimSpace(rest), " ")
			if !ok {
				fmt.Println("usage: /msg <peer> <text>")
				continue
			}
			sendTo(manager, peer, text)
			activePeer = peer
		default:
			if activePeer == "" {
				fmt.Println("no active peer; use /connect <peer> or /msg <peer> <text>")
				continue
			}
			sendTo(manager, activePeer, line)
		}
	}
	return scanner.Err()
}

func sendTo(manager *peering.Manager, peer, text string) {
	if !manager.SendMessage(peer, text) {
		fmt.Printf("! not delivered to %s (state: %s)\n", peer, manager.ConnectionStatus(peer))
	}
}

// loadConfig resolves the configuration source: an explicit --config
// path, the SIGNET_CONFIG environment variable, or pure defaults when
// neither is set (flags then have to supply handle and relay URL).
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	if os.Getenv("SIGNET_CONFIG") != "" {
		return config.Load()
	}
	return config.Default(), nil
}

func applyOverride(target *string, value string) {
	if value != "" {
		*target = value
	}
}

// loadOrCreateKeypair loads the age identity, generating and saving a
// fresh one when the file does not exist yet. An empty path means no
// local identity.
func loadOrCreateKeypair(path string, logger *slog.Logger) (*identity.Keypair, error) {
	if path == "" {
		logger.Warn("no key file configured, signaling will not be sealed")
		return nil, nil
	}

	keypair, err := identity.LoadKeypairFile(path)
	if err == nil {
		return keypair, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	keypair, err = identity.GenerateKeypair()
	if err != nil {
		return nil, err
	}
	if err := identity.SaveKeypairFile(keypair, path); err != nil {
		keypair.Close()
		return nil, err
	}
	logger.Info("generated new identity", "key_file", path, "public_key", keypair.Public)
	return keypair, nil
}

func newLogger(level string) *slog.Logger {
	var leveler slog.Level
	switch level {
	case "debug":
		leveler = slog.LevelDebug
	case "warn":
		leveler = slog.LevelWarn
	case "error":
		leveler = slog.LevelError
	default:
		leveler = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: leveler}))
}
