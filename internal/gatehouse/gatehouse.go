// Copyright © 2024-present Lovania
// SPDX-License-Identifier: Apache-2.0

// Package gatehouse implements the admission pipeline described in
// SPEC_FULL.md §4.5: every inbound connection is run through an ordered
// chain of Rule values on a bounded worker pool before a session is ever
// spawned for it.
package gatehouse

import (
	"context"
	"net"
	"sync"
	"sync/atomic"

	"github.com/panjf2000/ants"

	"github.com/Lovania-Networking-and-Software/Clousocket/internal/queue"
)

// admission is one pending admit request routed through the worker pool.
type admission struct {
	conn net.Conn
	addr net.Addr
}

// Gatehouse evaluates the configured Rule chain against each connection on
// a bounded pool of goroutines, fail-closed on a rule panic.
type Gatehouse struct {
	rules []Rule

	in  *queue.IOQueue[admission]
	out *queue.IOQueue[bool]

	pool *ants.Pool

	mu      sync.Mutex
	waiters map[queue.CID]chan bool
	nextCID atomic.Uint64

	closeOnce sync.Once
}

// New builds a Gatehouse evaluating rules in the given order, with
// evaluation bounded to threadCount concurrent workers.
func New(threadCount int, rules ...Rule) (*Gatehouse, error) {
	if threadCount <= 0 {
		threadCount = 1
	}

	g := &Gatehouse{
		rules:   rules,
		in:      queue.New[admission](0),
		out:     queue.New[bool](0),
		waiters: make(map[queue.CID]chan bool),
	}

	pool, err := ants.NewPool(threadCount, ants.WithNonblocking(false))
	if err != nil {
		return nil, err
	}
	g.pool = pool

	go g.dispatch()
	go g.drain()

	return g, nil
}

// drain is the sole consumer of the in-queue; each item is submitted to
// the bounded ants pool so at most threadCount evaluations run at once.
func (g *Gatehouse) drain() {
	for item := range g.in.Iterate() {
		item := item
		_ = g.pool.Submit(func() {
			g.evaluate(item)
		})
	}
}

// evaluate runs the rule chain for one admission. A rule is evaluated in
// declared order and the chain short-circuits on the first false verdict
// (SPEC_FULL.md §4.5). A panicking rule resolves the "RuleEvaluationError"
// open question fail-closed: the admission is denied rather than the
// request being silently dropped.
func (g *Gatehouse) evaluate(item queue.Item[admission]) {
	verdict := g.runChain(item.Payload)
	g.out.Append(verdict, item.CID)
}

func (g *Gatehouse) runChain(a admission) (verdict bool) {
	verdict = true
	for _, r := range g.rules {
		ok := func() (ok bool) {
			defer func() {
				if rec := recover(); rec != nil {
					ok = false
				}
			}()
			return r.Handle(a.conn, a.addr)
		}()
		if !ok {
			return false
		}
	}
	return true
}

// dispatch is the sole reader of the out-queue, fanning each verdict into
// the waiting caller's private channel by correlation id. See
// store.Pool.dispatch for why this indirection, rather than many
// concurrent readers filtering by cid, is required for correctness.
func (g *Gatehouse) dispatch() {
	for item := range g.out.Iterate() {
		g.mu.Lock()
		ch, ok := g.waiters[item.CID]
		if ok {
			delete(g.waiters, item.CID)
		}
		g.mu.Unlock()
		if ok {
			ch <- item.Payload
		}
	}
}

// Admit runs conn/addr through the rule chain and reports the verdict. A
// false verdict means the caller must close conn without spawning a
// session.
func (g *Gatehouse) Admit(ctx context.Context, conn net.Conn, addr net.Addr) (bool, error) {
	cid := queue.CID(g.nextCID.Add(1))
	ch := make(chan bool, 1)

	g.mu.Lock()
	g.waiters[cid] = ch
	g.mu.Unlock()

	g.in.Append(admission{conn: conn, addr: addr}, cid)

	select {
	case verdict := <-ch:
		return verdict, nil
	case <-ctx.Done():
		g.mu.Lock()
		delete(g.waiters, cid)
		g.mu.Unlock()
		return false, ctx.Err()
	}
}

// Close shuts both queues down and releases the worker pool.
func (g *Gatehouse) Close() {
	g.closeOnce.Do(func() {
		g.in.Close()
		g.out.Close()
		g.pool.Release()
	})
}
