// Copyright © 2024-present Lovania
// SPDX-License-Identifier: Apache-2.0

// clousocketd is the process bootstrap: load configuration, wire the
// shared subsystems, bind the listener, and run the accept loop until a
// shutdown signal arrives. SPEC_FULL.md explicitly keeps this layer thin
// — "process bootstrap ... the TCP listener itself (a thin wrapper over
// a standard accept loop)" are stated as external collaborators, not
// part of the specified core.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"golang.org/x/sync/semaphore"

	"github.com/Lovania-Networking-and-Software/Clousocket/internal/catalog"
	"github.com/Lovania-Networking-and-Software/Clousocket/internal/commands"
	"github.com/Lovania-Networking-and-Software/Clousocket/internal/config"
	"github.com/Lovania-Networking-and-Software/Clousocket/internal/gatehouse"
	"github.com/Lovania-Networking-and-Software/Clousocket/internal/session"
	"github.com/Lovania-Networking-and-Software/Clousocket/internal/store"
	"github.com/Lovania-Networking-and-Software/Clousocket/internal/supervisor"
)

// Exit codes per SPEC_FULL.md §6: 0 clean shutdown, 1 configuration
// error, 2 listener bind failure.
const (
	exitOK            = 0
	exitConfigError   = 1
	exitListenerError = 2
)

func main() {
	var (
		configPath = flag.String("config", "clousocket.toml", "Path to clousocket.toml")
		commandDir = flag.String("commands", "commands", "Path to the command descriptor directory")
	)
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Printf("config error: %v", err)
		os.Exit(exitConfigError)
	}

	sup, err := buildSupervisor(cfg, *commandDir)
	if err != nil {
		log.Printf("config error: %v", err)
		os.Exit(exitConfigError)
	}

	listener, err := net.Listen("tcp", fmt.Sprintf("%s:%d", cfg.Network.Host, cfg.Network.Port))
	if err != nil {
		log.Printf("listener bind failed: %v", err)
		os.Exit(exitListenerError)
	}
	log.Printf("clousocketd listening on %s", listener.Addr())

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	runAcceptLoop(ctx, listener, sup)

	log.Printf("clousocketd: shutting down")
	sup.Close()
	os.Exit(exitOK)
}

func loadConfig(path string) (*config.Config, error) {
	loader := config.NewLoader()
	cfg, err := loader.LoadWithDefaults(path)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	if err := config.NewValidator().Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func buildSupervisor(cfg *config.Config, commandDir string) (*supervisor.Supervisor, error) {
	storePool, err := store.New(cfg.Redis)
	if err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}
	storePool.Start(context.Background())

	sem := semaphore.NewWeighted(int64(cfg.Threading.ThreadLimit))
	reg := commands.Build(storePool, sem)

	cat, err := catalog.Load(commandDir, reg)
	if err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}
	des, err := catalog.NewDeserializer(cat, cfg.Caching.Size)
	if err != nil {
		return nil, fmt.Errorf("deserializer: %w", err)
	}

	registry := session.NewRegistry()
	gate, err := gatehouse.New(cfg.Gatehouse.ThreadCount,
		gatehouse.ConnectionCapRule{Max: 0, Size: registry.Size},
	)
	if err != nil {
		return nil, fmt.Errorf("gatehouse: %w", err)
	}

	return supervisor.NewWithRegistry(cfg, registry, storePool, gate, cat, des), nil
}

func runAcceptLoop(ctx context.Context, listener net.Listener, sup *supervisor.Supervisor) {
	var wg sync.WaitGroup

	go func() {
		<-ctx.Done()
		_ = listener.Close()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			log.Printf("accept error: %v", err)
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			sup.CreateSession(ctx, conn, conn.RemoteAddr())
		}()
	}

	wg.Wait()
}
