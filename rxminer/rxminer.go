// Copyright 2020 cryptonote.social. All rights reserved. Use of this source code is governed by
// the license found in the LICENSE file.

// Package rxminer implements the control loop spec.md factors out of the core:
// fetch a template, hand it to the mining engine, wait for a solution or a newer
// template, submit, repeat. Grounded on the teacher's Mine/MiningLoop shape
// (miner.go, minerlib.go): a keyboard-command reader, periodic stats printing,
// and a sleep-and-retry reconnect loop, retargeted from pool-stratum session
// control to getblocktemplate/submitblock session control.
package rxminer

import (
	"bufio"
	"context"
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/cryptonote-social/rxminer/blockchain"
	"github.com/cryptonote-social/rxminer/config"
	"github.com/cryptonote-social/rxminer/crylog"
	"github.com/cryptonote-social/rxminer/engine"
	"github.com/cryptonote-social/rxminer/numa"
	"github.com/cryptonote-social/rxminer/rpcclient"
	"github.com/cryptonote-social/rxminer/rpcclient/zmqwatch"
	"github.com/cryptonote-social/rxminer/sysmem"
	"github.com/cryptonote-social/rxminer/vmpool"
)

// maxConsecutiveRPCFailures is the §7 threshold: after this many RpcErrors in a
// row the current session is torn down and the reconnect loop takes over.
const maxConsecutiveRPCFailures = 2

// reconnectSleepStart/Step mirror miner.go's sleepSec/"+= time.Second" backoff.
const (
	reconnectSleepStart = 3 * time.Second
	reconnectSleepStep  = 1 * time.Second
)

// Miner owns one running instance of the control loop: the RPC client, the
// RandomX VM pool, and the mining engine driving it.
type Miner struct {
	cfg    *config.Config
	rpc    *rpcclient.Client
	pool   *vmpool.Pool
	engine *engine.Engine
	topo   numa.Topology

	threads   int
	startTime time.Time

	blocksFound     uint64
	lastKnownHeight uint32
}

// New builds a Miner from cfg: detects system resources/NUMA topology, picks a
// thread count and vmpool mode, and constructs (but does not initialize) the
// pool and engine.
func New(cfg *config.Config) (*Miner, error) {
	topo := numa.DetectTopology()
	resources := sysmem.DetectResources()

	threads := cfg.Threads
	if threads <= 0 {
		threads = sysmem.CalculateOptimalThreads(resources, cfg.FastMode)
		if threads <= 0 {
			threads = 1
		}
	}

	mode := vmpool.ChooseMode(cfg.FastMode, topo)
	pool := vmpool.New(mode, threads, topo)
	eng := engine.New(engine.PoolSource{Pool: pool}, threads)

	return &Miner{
		cfg:    cfg,
		rpc:    rpcclient.New(cfg.RPCURL, cfg.RPCUser, cfg.RPCPassword),
		pool:   pool,
		engine: eng,
		topo:   topo,

		threads: threads,
	}, nil
}

// Run drives the control loop until ctx is cancelled or the keyboard reader
// sees a quit command, returning nil on graceful stop (§6.3 exit code 0). It
// returns an error if the first template fetch or the first pool
// initialization fails (§6.3 exit code 1); later failures are retried.
func (m *Miner) Run(ctx context.Context) error {
	m.startTime = time.Now()
	crylog.Info("rxminer starting with", m.threads, "threads, NUMA nodes:", len(m.topo.Nodes))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	tmpl, err := m.fetchTemplate(ctx)
	if err == nil {
		err = m.ensurePoolReady(tmpl)
	}
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		m.pool.Close()
		return err
	}

	commands := readKeyboardCommands(ctx)
	printKeyboardCommands()

	var watcher *zmqwatch.Watcher
	blockNotify := make(chan struct{}, 1)
	if m.cfg.ZMQURL != "" {
		watcher = zmqwatch.New(m.cfg.ZMQURL, func() {
			select {
			case blockNotify <- struct{}{}:
			default:
			}
		})
		go watcher.Run(ctx)
	}

	sleepDur := reconnectSleepStart
	for {
		if err := m.runSession(ctx, commands, blockNotify); err != nil {
			if errors.Is(err, errQuit) {
				m.engine.Stop()
				m.pool.Close()
				return nil
			}
			if ctx.Err() != nil {
				m.engine.Stop()
				m.pool.Close()
				return nil
			}
			crylog.Warn("DISCONNECTED:", err, "- retrying in", sleepDur)
			if !sleepContext(ctx, sleepDur) {
				m.engine.Stop()
				m.pool.Close()
				return nil
			}
			sleepDur += reconnectSleepStep
			continue
		}
		sleepDur = reconnectSleepStart
	}
}

var errQuit = errors.New("rxminer: quit requested")

// runSession fetches one template, mines it to completion (found a solution,
// a newer template supersedes it, or an error/quit interrupts it), and submits
// any solution found. It returns a non-nil, non-errQuit error whenever the RPC
// session should be considered dead and the caller should reconnect.
func (m *Miner) runSession(ctx context.Context, commands <-chan string, blockNotify <-chan struct{}) error {
	tmpl, err := m.fetchTemplate(ctx)
	if err != nil {
		return err
	}

	if err := m.ensurePoolReady(tmpl); err != nil {
		// InitError/SeedUpdateError are fatal per §7: surface and let the
		// caller treat this like a disconnect rather than busy-looping.
		return err
	}

	if err := m.engine.StartMining(tmpl); err != nil {
		return err
	}
	crylog.Info("mining template at height", tmpl.Height, "epoch", blockchain.EpochNumber(uint64(tmpl.Height)))

	updateTimer := time.NewTicker(time.Duration(m.cfg.UpdateIntervalSec) * time.Second)
	defer updateTimer.Stop()
	blockCheckTimer := time.NewTicker(time.Duration(m.cfg.BlockCheckSec) * time.Second)
	defer blockCheckTimer.Stop()

	for {
		select {
		case <-ctx.Done():
			m.engine.Stop()
			return nil

		case cmd := <-commands:
			quit, resized := m.handleCommand(cmd)
			if quit {
				m.engine.Stop()
				return errQuit
			}
			if resized {
				return nil
			}

		case <-blockNotify:
			m.engine.Stop()
			return nil

		case <-blockCheckTimer.C:
			info, err := m.rpc.GetBlockchainInfo(ctx)
			if err != nil {
				if m.rpc.ConsecutiveFailures() >= maxConsecutiveRPCFailures {
					m.engine.Stop()
					return err
				}
				continue
			}
			if info.Blocks != m.lastKnownHeight {
				m.lastKnownHeight = info.Blocks
				m.engine.Stop()
				return nil
			}

		case <-updateTimer.C:
			m.engine.Stop()
			return nil

		default:
			if sol, ok := m.engine.GetSolution(); ok {
				m.engine.Stop()
				m.submitSolution(ctx, sol)
				return nil
			}
			if !sleepContext(ctx, 100*time.Millisecond) {
				m.engine.Stop()
				return nil
			}
		}
	}
}

// fetchTemplate wraps GetBlockTemplate and tracks the tip height for later
// disconnect-detection comparisons.
func (m *Miner) fetchTemplate(ctx context.Context) (*blockchain.BlockTemplate, error) {
	tmpl, err := m.rpc.GetBlockTemplate(ctx)
	if err != nil {
		return nil, err
	}
	m.lastKnownHeight = tmpl.Height
	return tmpl, nil
}

// ensurePoolReady initializes or re-keys the pool for tmpl.SeedHash, per §4.3's
// init-vs-update-seed split (§8 property 6: UpdateSeed is a no-op when the
// seed hasn't changed, so calling this every session is cheap in the common
// case).
func (m *Miner) ensurePoolReady(tmpl *blockchain.BlockTemplate) error {
	var seed [32]byte
	copy(seed[:], tmpl.SeedHash[:])

	if !m.pool.IsInitialized() {
		return m.pool.Initialize(seed)
	}
	return m.pool.UpdateSeed(seed)
}

// submitSolution assembles and submits the winning block, logging the outcome
// per §7's user-visible-behavior note ("a rejected block is logged and mining
// continues immediately on a fresh template").
func (m *Miner) submitSolution(ctx context.Context, sol *engine.Solution) {
	hexBlock, err := blockchain.SerializeBlock(sol.Header, sol.Hash, sol.Template.CoinbaseTxnHex, sol.Template.OtherTxnHex)
	if err != nil {
		crylog.Error("failed to serialize solved block:", err)
		return
	}
	if err := m.rpc.SubmitBlock(ctx, hexBlock); err != nil {
		crylog.Warn("block submission rejected:", err)
		return
	}
	m.blocksFound++
	crylog.Info("block accepted! total blocks found this session:", m.blocksFound)
}

// handleCommand implements the teacher's keyboard-command letters: i/d for
// thread count, s/h for stats, q for quit, ? for help. resized reports that
// the pool was mutated and the caller must end the current session before
// anything touches it again (§5: the pool may only be mutated between
// sessions); resizePool has already stopped the old engine, so runSession
// just returns and lets the next loop iteration pick up a fresh template
// against the resized pool.
func (m *Miner) handleCommand(cmd string) (quit, resized bool) {
	switch cmd {
	case "i":
		m.threads++
		crylog.Info("increasing thread count to", m.threads)
		m.resizePool()
		return false, true
	case "d":
		if m.threads > 1 {
			m.threads--
			crylog.Info("decreasing thread count to", m.threads)
			m.resizePool()
			return false, true
		}
	case "s", "h":
		m.printStats()
	case "q", "quit", "exit":
		crylog.Info("quitting due to keyboard command")
		return true, false
	case "?", "help":
		printKeyboardCommands()
	}
	return false, false
}

// resizePool stops the current mining engine (the pool may only be mutated
// between sessions), resizes it to m.threads, and builds a fresh engine bound
// to the resized pool. Caller is responsible for ending the current session
// afterward so the next one starts against the new thread count.
func (m *Miner) resizePool() {
	m.engine.Stop()
	if err := m.pool.SetThreadCount(m.threads); err != nil {
		crylog.Error("failed to resize thread pool:", err)
	}
	m.engine = engine.New(engine.PoolSource{Pool: m.pool}, m.threads)
}

func (m *Miner) printStats() {
	elapsed := time.Since(m.startTime).Seconds()
	var hashrate float64
	if elapsed > 0 {
		hashrate = m.engine.Hashrate()
	}
	crylog.Info("===============================================================================")
	crylog.Info("Hashrate                     :", strconv.FormatFloat(hashrate, 'f', 2, 64))
	crylog.Info("Threads                      :", m.threads)
	crylog.Info("Blocks found this session    :", m.blocksFound)
	crylog.Info("Last known chain height      :", m.lastKnownHeight)
	crylog.Info("===============================================================================")
}

func printKeyboardCommands() {
	crylog.Info("Keyboard commands:")
	crylog.Info("   s/h: print miner stats")
	crylog.Info("   i/d: increase/decrease number of threads by 1")
	crylog.Info("   q: quit")
}

// readKeyboardCommands starts a goroutine scanning stdin and forwards each
// line on the returned channel, letting the control loop select over it
// alongside timers without blocking on a synchronous read.
func readKeyboardCommands(ctx context.Context) <-chan string {
	out := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			select {
			case out <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// sleepContext sleeps for d or returns false early if ctx is cancelled first.
func sleepContext(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
