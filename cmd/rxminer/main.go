// Copyright 2020 cryptonote.social. All rights reserved. Use of this source code is governed by
// the license found in the LICENSE file.

// Command rxminer is a RandomX proof-of-work miner (§6.3). Exit codes: 0 on
// graceful stop, 1 on startup failure (bad args, RPC unreachable, init
// failure).
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/cryptonote-social/rxminer/config"
	"github.com/cryptonote-social/rxminer/crylog"
	"github.com/cryptonote-social/rxminer/rxminer"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.ParseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		fmt.Fprintln(os.Stderr, "bad arguments:", err)
		return 1
	}

	crylog.SetConsole(cfg.LogConsole)
	if cfg.LogFile != "" {
		if err := crylog.SetOutput(cfg.LogFile); err != nil {
			fmt.Fprintln(os.Stderr, "failed to open log file:", err)
			return 1
		}
	}

	crylog.Info(config.ApplicationName, "starting")
	crylog.Info("rpc url:", cfg.RPCURL)

	m, err := rxminer.New(cfg)
	if err != nil {
		crylog.Error("failed to initialize miner:", err)
		return 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		crylog.Info("received shutdown signal")
		cancel()
	}()

	if err := m.Run(ctx); err != nil {
		crylog.Error("miner exited with error:", err)
		return 1
	}
	return 0
}
