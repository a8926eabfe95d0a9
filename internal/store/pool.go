// Copyright © 2024-present Lovania
// SPDX-License-Identifier: Apache-2.0

// Package store implements the request-correlated store client pool
// described in SPEC_FULL.md §4.4: N persistent upstream connections
// draining a shared in-queue, posting results onto an out-queue keyed by
// correlation id.
package store

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"

	redigo "github.com/gomodule/redigo/redis"

	"github.com/Lovania-Networking-and-Software/Clousocket/internal/config"
	"github.com/Lovania-Networking-and-Software/Clousocket/internal/queue"
)

// Result is what a worker posts back for one executed command. Err is the
// sentinel reply chosen for the "UpstreamError" open question in
// SPEC_FULL.md §9: a failed command still produces exactly one reply for
// its cid, it just carries an error instead of a value.
type Result struct {
	Reply any
	Err   error
}

// execFunc runs one upstream command and returns its reply. Production
// wiring backs this with a pooled RESP connection (redigo); tests inject
// a fake to exercise the pool/dispatch machinery without a network.
type execFunc func(tokens []string) (any, error)

// Pool is the store client pool.
type Pool struct {
	in  *queue.IOQueue[[]string]
	out *queue.IOQueue[Result]

	exec execFunc
	size int

	mu      sync.Mutex
	waiters map[queue.CID]chan Result

	nextCID atomic.Uint64

	closeOnce sync.Once
	redisPool *redigo.Pool
}

// New builds a Pool backed by a redigo connection pool against cfg.URL,
// honoring the optional password and numeric DB index from §6.
func New(cfg config.RedisConfig) (*Pool, error) {
	size := cfg.MaxConnections
	if size <= 0 {
		size = 1
	}

	rp := &redigo.Pool{
		MaxActive: size,
		MaxIdle:   size,
		Wait:      true,
		Dial: func() (redigo.Conn, error) {
			opts := []redigo.DialOption{}
			if cfg.Password != "" {
				opts = append(opts, redigo.DialPassword(cfg.Password))
			}
			if cfg.DB != 0 {
				opts = append(opts, redigo.DialDatabase(cfg.DB))
			}
			return redigo.DialURL(cfg.URL, opts...)
		},
	}

	p := newPool(size, nil)
	p.redisPool = rp
	p.exec = func(tokens []string) (any, error) {
		conn := rp.Get()
		defer conn.Close()

		args := make([]interface{}, 0, len(tokens)-1)
		for _, t := range tokens[1:] {
			args = append(args, t)
		}
		return conn.Do(tokens[0], args...)
	}
	return p, nil
}

func newPool(size int, exec execFunc) *Pool {
	return &Pool{
		in:      queue.New[[]string](0),
		out:     queue.New[Result](0),
		exec:    exec,
		size:    size,
		waiters: make(map[queue.CID]chan Result),
	}
}

// Start spawns the pool's P worker goroutines plus the single dispatcher
// goroutine that demultiplexes the out-queue by correlation id.
func (p *Pool) Start(ctx context.Context) {
	go p.dispatch()
	for i := 0; i < p.size; i++ {
		go p.worker(ctx)
	}
}

// worker drains the in-queue: one pooled connection is held for the
// duration of at most one command (SPEC_FULL.md §4.4 invariant).
func (p *Pool) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case item, ok := <-p.in.Iterate():
			if !ok {
				return
			}
			p.handle(item)
		}
	}
}

func (p *Pool) handle(item queue.Item[[]string]) {
	reply, err := p.exec(item.Payload)
	if err != nil {
		log.Printf("store: command %v failed: %v", item.Payload, err)
		p.out.Append(Result{Err: fmt.Errorf("store: upstream command failed: %w", err)}, item.CID)
		return
	}
	p.out.Append(Result{Reply: reply}, item.CID)
}

// dispatch is the sole reader of the out-queue. A literal translation of
// "many callers each iterate the out-queue filtering by cid" would race
// under concurrent Execute calls (the underlying channel delivers each
// item to exactly one receiver, so a caller could steal another caller's
// reply). Routing through one dispatcher into per-cid channels is what
// actually guarantees the §8 invariant — "exactly one reply per
// completed cid reaches its caller" — under concurrency.
func (p *Pool) dispatch() {
	for item := range p.out.Iterate() {
		p.mu.Lock()
		ch, ok := p.waiters[item.CID]
		if ok {
			delete(p.waiters, item.CID)
		}
		p.mu.Unlock()
		if ok {
			ch <- item.Payload
		}
	}
}

// Execute mints a correlation id, enqueues the command, and blocks for the
// matching reply.
func (p *Pool) Execute(ctx context.Context, tokens ...string) (any, error) {
	cid := queue.CID(p.nextCID.Add(1))
	ch := make(chan Result, 1)

	p.mu.Lock()
	p.waiters[cid] = ch
	p.mu.Unlock()

	p.in.Append(tokens, cid)

	select {
	case res := <-ch:
		return res.Reply, res.Err
	case <-ctx.Done():
		p.mu.Lock()
		delete(p.waiters, cid)
		p.mu.Unlock()
		return nil, ctx.Err()
	}
}

// Close shuts both queues down, which propagates end-of-stream to workers
// and the dispatcher, and closes the underlying connection pool.
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		p.in.Close()
		p.out.Close()
		if p.redisPool != nil {
			_ = p.redisPool.Close()
		}
	})
}
