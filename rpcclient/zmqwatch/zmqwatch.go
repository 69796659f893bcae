// Copyright 2020 cryptonote.social. All rights reserved. Use of this source code is governed by
// the license found in the LICENSE file.

// Package zmqwatch subscribes to a zcashd ZMQ notification socket and invokes a
// callback on every new block, so the control loop can refresh its template
// immediately instead of waiting for the next --block-check poll. Grounded on
// rodb2008-M45-Core-goPool's zmqBlockLoop/startZMQMonitor/handleZMQNotification,
// trimmed to a single callback (no job manager, no share accounting).
package zmqwatch

import (
	"context"
	"fmt"
	"syscall"
	"time"

	"github.com/pebbe/zmq4"

	"github.com/cryptonote-social/rxminer/crylog"
)

const (
	recreateBackoffMin = 1 * time.Second
	recreateBackoffMax = 30 * time.Second
	receiveTimeout      = 2 * time.Second
	reconnectInterval   = 100 * time.Millisecond
	reconnectMax        = 5 * time.Second
)

// Watcher subscribes to hashblock/rawblock notifications on addr and calls
// onBlock whenever one arrives. Run blocks until ctx is cancelled.
type Watcher struct {
	addr    string
	onBlock func()
}

// New creates a Watcher for the ZMQ pub endpoint addr (e.g. tcp://127.0.0.1:28332).
func New(addr string, onBlock func()) *Watcher {
	return &Watcher{addr: addr, onBlock: onBlock}
}

// Run subscribes and dispatches notifications until ctx is cancelled, recreating
// the socket with exponential backoff whenever it errors out.
func (w *Watcher) Run(ctx context.Context) {
	backoff := recreateBackoffMin
	for {
		if ctx.Err() != nil {
			return
		}
		if err := w.runOnce(ctx); err != nil {
			crylog.Warn("zmq watcher error, retrying in", backoff, ":", err)
		}
		if ctx.Err() != nil {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		if backoff < recreateBackoffMax {
			backoff *= 2
			if backoff > recreateBackoffMax {
				backoff = recreateBackoffMax
			}
		}
	}
}

// runOnce owns one socket's lifetime: create, subscribe, monitor, receive loop.
// It returns when the socket errors or ctx is cancelled.
func (w *Watcher) runOnce(ctx context.Context) error {
	sub, err := zmq4.NewSocket(zmq4.SUB)
	if err != nil {
		return err
	}
	defer sub.Close()
	_ = sub.SetLinger(0)

	for _, topic := range []string{"hashblock", "rawblock"} {
		if err := sub.SetSubscribe(topic); err != nil {
			return err
		}
	}
	if err := sub.SetRcvtimeo(receiveTimeout); err != nil {
		return err
	}
	_ = sub.SetReconnectIvl(reconnectInterval)
	_ = sub.SetReconnectIvlMax(reconnectMax)

	if err := w.startMonitor(ctx, sub); err != nil {
		crylog.Warn("zmq monitor socket unavailable (continuing without it):", err)
	}

	if err := sub.Connect(w.addr); err != nil {
		return err
	}
	crylog.Info("watching zmq block notifications at", w.addr)

	for {
		if ctx.Err() != nil {
			return nil
		}
		frames, err := sub.RecvMessageBytes(0)
		if err != nil {
			eno := zmq4.AsErrno(err)
			if eno == zmq4.Errno(syscall.EAGAIN) || eno == zmq4.ETIMEDOUT {
				continue
			}
			return err
		}
		if len(frames) < 2 {
			continue
		}
		switch string(frames[0]) {
		case "hashblock", "rawblock":
			w.onBlock()
		}
	}
}

// startMonitor watches connect/disconnect events on sub purely for logging; the
// receive loop's own timeout-and-retry handles actual reconnection.
func (w *Watcher) startMonitor(ctx context.Context, sub *zmq4.Socket) error {
	addr := fmt.Sprintf("inproc://rxminer.zmq.sub.monitor.%p", sub)
	events := zmq4.EVENT_CONNECTED | zmq4.EVENT_DISCONNECTED | zmq4.EVENT_CLOSED | zmq4.EVENT_MONITOR_STOPPED
	if err := sub.Monitor(addr, events); err != nil {
		return err
	}

	mon, err := zmq4.NewSocket(zmq4.PAIR)
	if err != nil {
		return err
	}
	_ = mon.SetLinger(0)
	_ = mon.SetRcvtimeo(time.Second)
	if err := mon.Connect(addr); err != nil {
		mon.Close()
		return err
	}

	go func() {
		defer mon.Close()
		for {
			if ctx.Err() != nil {
				return
			}
			ev, _, _, err := mon.RecvEvent(0)
			if err != nil {
				eno := zmq4.AsErrno(err)
				if eno == zmq4.Errno(syscall.EAGAIN) || eno == zmq4.ETIMEDOUT {
					continue
				}
				return
			}
			switch ev {
			case zmq4.EVENT_CONNECTED:
				crylog.Info("zmq socket connected")
			case zmq4.EVENT_DISCONNECTED, zmq4.EVENT_CLOSED, zmq4.EVENT_MONITOR_STOPPED:
				crylog.Warn("zmq socket disconnected")
				return
			}
		}
	}()
	return nil
}
