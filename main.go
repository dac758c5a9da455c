// mia - A terminal chat companion for the Lumia assistant.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/lumia-app/mia-tui/internal/chat"
	"github.com/lumia-app/mia-tui/internal/cli"
	"github.com/lumia-app/mia-tui/internal/config"
	"github.com/lumia-app/mia-tui/internal/lmstudio"
	"github.com/lumia-app/mia-tui/internal/store"
	"github.com/lumia-app/mia-tui/internal/ui"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func main() {
	cmd, args, err := cli.Parse(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		fmt.Fprint(os.Stderr, cli.Usage())
		os.Exit(1)
	}

	cfg := config.Global()

	switch cmd {
	case cli.CommandTUI:
		err = runTUI(cfg)
	case cli.CommandChat:
		err = runChat(cfg, args)
	case cli.CommandSessions:
		err = withStore(cfg, func(st *store.Store) error {
			cli.ListSessions(os.Stdout, st)
			return nil
		})
	case cli.CommandSearch:
		err = withStore(cfg, func(st *store.Store) error {
			return cli.SearchHistory(os.Stdout, st, cfg, args.JoinPositionals(1), args)
		})
	case cli.CommandDelete:
		err = withStore(cfg, func(st *store.Store) error {
			return cli.DeleteStoredSession(os.Stdout, st, args.Positional(1), args.BoolFlag("confirm"))
		})
	case cli.CommandConfig:
		err = printConfig(cfg)
	case cli.CommandVersion:
		fmt.Printf("mia %s (commit %s, built %s)\n", Version, GitCommit, BuildDate)
	case cli.CommandHelp:
		fmt.Print(cli.Usage())
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// ============================================================================
// WIRING
// ============================================================================

// openStore loads the session store from the configured JSON file.
func openStore(cfg *config.Config) (*store.Store, *store.FilePersister, error) {
	persister := store.NewFilePersister(cfg.Storage.Path)
	st, err := store.NewWithPersister(persister)
	if err != nil {
		return nil, nil, fmt.Errorf("storage: %w", err)
	}
	return st, persister, nil
}

// withStore runs fn against a loaded store. Read-mostly subcommands do
// not need the file watcher.
func withStore(cfg *config.Config, fn func(*store.Store) error) error {
	st, _, err := openStore(cfg)
	if err != nil {
		return err
	}
	return fn(st)
}

// startWatcher begins live-reloading the store when the desktop app
// rewrites the storage file. Watch failures are not fatal; the session
// data still works, it just will not refresh.
func startWatcher(cfg *config.Config, st *store.Store, persister *store.FilePersister) func() {
	if !cfg.Storage.Watch {
		return func() {}
	}
	w, err := store.NewWatcher(st, persister, cfg.WatchDebounce())
	if err != nil {
		log.Printf("storage watch unavailable: %v", err)
		return func() {}
	}
	if err := w.Watch(); err != nil {
		log.Printf("storage watch unavailable: %v", err)
		w.Close()
		return func() {}
	}
	return func() { w.Close() }
}

func newClient(cfg *config.Config) *lmstudio.Client {
	return lmstudio.NewClientWithConfig(&lmstudio.ClientConfig{
		BaseURL:           cfg.Server.URL,
		Model:             cfg.Server.Model,
		RequestTimeout:    cfg.RequestTimeout(),
		RequestsPerSecond: cfg.Server.RequestsPerSecond,
	})
}

// ============================================================================
// FRONT ENDS
// ============================================================================

func runTUI(cfg *config.Config) error {
	st, persister, err := openStore(cfg)
	if err != nil {
		return err
	}
	stop := startWatcher(cfg, st, persister)
	defer stop()

	// The full chat page carries no greeting so that first messages can
	// still name their session.
	ctrl := chat.NewController(st, newClient(cfg), chat.Config{
		Policy:  cli.PolicyFromConfig(cfg),
		Options: cli.OptionsFromConfig(cfg),
	})

	return ui.Run(ctrl, cfg)
}

func runChat(cfg *config.Config, args *cli.ArgParser) error {
	st, persister, err := openStore(cfg)
	if err != nil {
		return err
	}
	stop := startWatcher(cfg, st, persister)
	defer stop()

	return cli.RunChat(st, newClient(cfg), cfg, args.BoolFlag("plain"))
}

func printConfig(cfg *config.Config) error {
	tomlPath, _ := config.ConfigPathTOML()
	jsonPath, _ := config.ConfigPathJSON()
	fmt.Printf("# config files: %s (preferred), %s (fallback)\n\n", tomlPath, jsonPath)
	return toml.NewEncoder(os.Stdout).Encode(cfg)
}
