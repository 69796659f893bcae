// Copyright 2020 cryptonote.social. All rights reserved. Use of this source code is governed by
// the license found in the LICENSE file.

// Package config implements the CLI surface of spec §6.3, mirroring the
// package-level flag-var and custom flag.Usage idiom of the teacher's csminer.go.
package config

import (
	"flag"
	"fmt"
	"io"
)

const (
	ApplicationName = "rxminer"
	DefaultRPCURL   = "http://127.0.0.1:8232"
)

// Config is the parsed CLI surface of spec §6.3.
type Config struct {
	RPCURL      string
	RPCUser     string
	RPCPassword string

	Threads           int
	UpdateIntervalSec int
	BlockCheckSec     int

	ZMQURL string

	FastMode   bool
	NoBalance  bool
	Debug      bool
	LogConsole bool
	LogFile    string
}

// ParseFlags parses args (typically os.Args[1:]) into a Config. It returns
// flag.ErrHelp if --help was given, matching flag.Parse's own convention so
// callers can distinguish "asked for help" from a real parse error.
func ParseFlags(args []string, output io.Writer) (*Config, error) {
	fs := flag.NewFlagSet(ApplicationName, flag.ContinueOnError)
	fs.SetOutput(output)

	c := &Config{}
	fs.StringVar(&c.RPCURL, "rpc-url", DefaultRPCURL, "URL of the zcashd-compatible node's JSON-RPC endpoint")
	fs.StringVar(&c.RPCUser, "rpc-user", "", "RPC username, if the node requires auth")
	fs.StringVar(&c.RPCPassword, "rpc-password", "", "RPC password, if the node requires auth")
	fs.IntVar(&c.Threads, "threads", 0, "number of mining threads (0 selects an automatic default)")
	fs.IntVar(&c.UpdateIntervalSec, "update-interval", 30, "seconds between unconditional template refreshes")
	fs.IntVar(&c.BlockCheckSec, "block-check", 5, "seconds between getblockchaininfo tip-height polls")
	fs.StringVar(&c.ZMQURL, "zmq-url", "", "zcashd ZMQ pub endpoint for instant block notification, e.g. tcp://127.0.0.1:28332")
	fs.BoolVar(&c.FastMode, "fast-mode", false, "use the full ~2GB RandomX dataset instead of the ~256MB cache-only mode")
	fs.BoolVar(&c.NoBalance, "no-balance", false, "skip periodic wallet balance queries")
	fs.BoolVar(&c.Debug, "debug", false, "enable verbose debug logging")
	fs.StringVar(&c.LogFile, "log-file", "", "write log output to this file in addition to the console")
	fs.BoolVar(&c.LogConsole, "log-console", true, "also write log output to stdout")

	fs.Usage = func() {
		fmt.Fprintf(output, "Usage of %s:\n", ApplicationName)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return c, nil
}
