// pagesmith - chat with LLM providers to generate and preview front-end code.
//
// Copyright (c) 2025 Pagesmith Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/pagesmith/pagesmith/internal/cli"
	"github.com/pagesmith/pagesmith/internal/config"
	"github.com/pagesmith/pagesmith/internal/keystore"
	"github.com/pagesmith/pagesmith/internal/provider"
	"github.com/pagesmith/pagesmith/internal/realtime"
	"github.com/pagesmith/pagesmith/internal/server"
	"github.com/pagesmith/pagesmith/internal/session"
)

func main() {
	cmd, args := cli.Parse()

	switch cmd {
	case cli.CmdServe:
		if err := runServe(args); err != nil {
			fmt.Fprintf(os.Stderr, "pagesmith: %v\n", err)
			os.Exit(1)
		}
	case cli.CmdKeys:
		if err := runKeys(args); err != nil {
			fmt.Fprintf(os.Stderr, "pagesmith: %v\n", err)
			os.Exit(1)
		}
	case cli.CmdConfig:
		if err := runConfig(args); err != nil {
			fmt.Fprintf(os.Stderr, "pagesmith: %v\n", err)
			os.Exit(1)
		}
	case cli.CmdVersion:
		cli.PrintVersion()
	default:
		cli.Usage()
		os.Exit(2)
	}
}

func loadConfig(args cli.Args) (*config.Config, error) {
	var cfg *config.Config
	var err error
	if args.ConfigPath != "" {
		cfg, err = config.LoadFromPath(args.ConfigPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	if args.Addr != "" {
		cfg.Server.Addr = args.Addr
	}
	return cfg, nil
}

func openStore(cfg *config.Config) (*keystore.Store, error) {
	path, err := cfg.StorePath()
	if err != nil {
		return nil, err
	}
	return keystore.Open(path, cfg.Store.Secret)
}

func runServe(args cli.Args) error {
	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	gateway := provider.NewGateway().
		WithTimeout(time.Duration(cfg.Provider.TimeoutSecs) * time.Second)

	sessions := session.NewManager(session.Config{
		IdleTimeout: time.Duration(cfg.Session.IdleTimeoutSecs) * time.Second,
		MaxSessions: cfg.Session.MaxSessions,
	})
	defer sessions.Close()

	hub := realtime.NewHub()
	defer hub.Close()

	srv := server.New(cfg, gateway, store, sessions, hub)

	// Provider timeout changes apply on config reload; listener settings
	// need a restart.
	if configPath := resolveConfigPath(args); configPath != "" {
		watcher, err := config.NewWatcher(configPath, func(updated *config.Config) {
			gateway.WithTimeout(time.Duration(updated.Provider.TimeoutSecs) * time.Second)
		})
		if err == nil {
			if err := watcher.Watch(); err == nil {
				defer watcher.Close()
			}
		}
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		log.Printf("SIGNAL_RECEIVED | signal=%s", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}

func resolveConfigPath(args cli.Args) string {
	if args.ConfigPath != "" {
		return args.ConfigPath
	}
	path, err := config.ConfigPath()
	if err != nil {
		return ""
	}
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

func runKeys(args cli.Args) error {
	if args.Subcommand != "" && args.Subcommand != "list" {
		return fmt.Errorf("unknown keys subcommand %q", args.Subcommand)
	}

	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	records, err := store.Keys(context.Background())
	if err != nil {
		return err
	}
	saved := make(map[string]keystore.KeyRecord, len(records))
	for _, rec := range records {
		saved[rec.Provider] = rec
	}
	for _, id := range provider.IDs() {
		if rec, ok := saved[id]; ok {
			fmt.Printf("%-12s yes  saved %s\n", id, rec.Created.Format("2006-01-02 15:04"))
		} else {
			fmt.Printf("%-12s no\n", id)
		}
	}
	return nil
}

func runConfig(args cli.Args) error {
	switch args.Subcommand {
	case "path":
		path, err := config.ConfigPath()
		if err != nil {
			return err
		}
		fmt.Println(path)
		return nil
	case "", "show":
		cfg, err := loadConfig(args)
		if err != nil {
			return err
		}
		// The store secret and auth token stay out of terminal output.
		cfg.Store.Secret = "****"
		if cfg.Server.AuthToken != "" {
			cfg.Server.AuthToken = "****"
		}
		return toml.NewEncoder(os.Stdout).Encode(cfg)
	default:
		return fmt.Errorf("unknown config subcommand %q", args.Subcommand)
	}
}
