// Copyright © 2024-present Lovania
// SPDX-License-Identifier: Apache-2.0

// Package session implements the per-connection runtime described in
// SPEC_FULL.md §4.6: the adaptive heartbeat loop and the I/O/dispatch
// loop, run as sibling tasks in one structured-concurrency scope.
package session

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Lovania-Networking-and-Software/Clousocket/internal/catalog"
	"github.com/Lovania-Networking-and-Software/Clousocket/internal/heartbeat"
	"github.com/Lovania-Networking-and-Software/Clousocket/internal/resp"
)

// Cause names why a session ended, for the termination table in
// spec.md §4.6.
type Cause int

const (
	// CausePeerClosed covers both a clean peer close and a broken stream.
	CausePeerClosed Cause = iota
	CauseHeartbeatTimeout
	CauseUnknownCommand
	CauseHandlerError
)

func (c Cause) String() string {
	switch c {
	case CauseHeartbeatTimeout:
		return "heartbeat_timeout"
	case CauseUnknownCommand:
		return "unknown_command"
	case CauseHandlerError:
		return "handler_error"
	default:
		return "peer_closed"
	}
}

// endSession carries the termination cause alongside the underlying error
// (if any) through the errgroup back to Run's caller.
type endSession struct {
	cause Cause
	err   error
}

func (e *endSession) Error() string {
	if e.err != nil {
		return fmt.Sprintf("session: %s: %v", e.cause, e.err)
	}
	return fmt.Sprintf("session: %s", e.cause)
}

func (e *endSession) Unwrap() error { return e.err }

// Session owns one accepted connection: its parser state, its heartbeat
// engine, and the one-shot pong signal the I/O loop feeds and the
// heartbeat loop consumes.
type Session struct {
	ID   string
	conn net.Conn

	parser *resp.Parser
	hb     *heartbeat.Engine
	hbCfg  heartbeat.Config

	catalog      *catalog.Catalog
	deserializer *catalog.Deserializer

	pong chan struct{}

	closeOnce sync.Once
}

// New builds a Session for an already-admitted connection.
func New(id string, conn net.Conn, cat *catalog.Catalog, des *catalog.Deserializer, hbCfg heartbeat.Config) *Session {
	return &Session{
		ID:           id,
		conn:         conn,
		parser:       &resp.Parser{},
		hb:           heartbeat.New(hbCfg),
		hbCfg:        hbCfg,
		catalog:      cat,
		deserializer: des,
		pong:         make(chan struct{}, 1),
	}
}

// Run drives the session's task scope to completion: heartbeat_loop and
// io_loop run concurrently with all-for-one cancellation (SPEC_FULL.md
// §4.6) via errgroup, the structured-concurrency primitive the teacher's
// codebase already uses for sibling-task scopes. The socket is closed
// exactly once, in the cleanup path, regardless of which task ends the
// scope.
func (s *Session) Run(ctx context.Context) Cause {
	defer s.Close()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.ioLoop(gctx) })
	g.Go(func() error { return s.heartbeatLoop(gctx) })
	g.Go(func() error {
		// conn.Read does not observe context cancellation on its own; closing
		// the socket as soon as either sibling ends the scope is what
		// actually makes cancellation cooperative at that suspension point.
		<-gctx.Done()
		s.Close()
		return nil
	})

	err := g.Wait()

	var end *endSession
	if errors.As(err, &end) {
		return end.cause
	}
	return CausePeerClosed
}

// Close closes the underlying socket exactly once, from whichever
// termination path reaches it first.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		_ = s.conn.Close()
	})
}

func (s *Session) write(frame []byte) error {
	_, err := s.conn.Write(frame)
	return err
}

// ioLoop reads chunks from the stream, feeds the RESP parser, and
// dispatches each decoded frame — per spec.md §4.6.
func (s *Session) ioLoop(ctx context.Context) error {
	ctx = WithConn(ctx, s.conn)
	buf := make([]byte, 4096)

	for {
		if ctx.Err() != nil {
			return nil
		}

		n, err := s.conn.Read(buf)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return &endSession{cause: CausePeerClosed, err: err}
		}
		s.parser.Feed(buf[:n])

		for {
			tokens, ok, err := s.parser.Next()
			if err != nil {
				return &endSession{cause: CauseUnknownCommand, err: err}
			}
			if !ok {
				break
			}

			if err := s.handleFrame(ctx, tokens); err != nil {
				return err
			}
		}
	}
}

func (s *Session) handleFrame(ctx context.Context, tokens []string) error {
	node, err := s.deserializer.Convert(tokens)
	if err != nil {
		var notFound *catalog.CommandNotFoundError
		if errors.As(err, &notFound) {
			_ = s.write(resp.UnknownCommand(notFound.Token))
			return &endSession{cause: CauseUnknownCommand, err: err}
		}
		return &endSession{cause: CauseHandlerError, err: err}
	}

	cmd, ok := node.(catalog.Command)
	if !ok {
		// Convert always roots a top-level call in a Command node; an empty
		// request vector is the sole exception and carries no command to run.
		return nil
	}

	// Heartbeat semantics per spec.md §9 open question: the source signals
	// pong on any frame whose top token lower-cases to "heartbeat",
	// including ones a client might otherwise send as a real command. That
	// behavior is preserved verbatim: no handler is invoked for it.
	if strings.EqualFold(cmd.This, "heartbeat") {
		select {
		case s.pong <- struct{}{}:
		default:
		}
		return nil
	}

	s.hb.Touch(time.Now())

	handler, args, ok := resolve(s.catalog, cmd)
	if !ok {
		return &endSession{cause: CauseHandlerError, err: fmt.Errorf("session: no handler registered for %q", cmd.This)}
	}

	if _, err := handler(ctx, args); err != nil {
		return &endSession{cause: CauseHandlerError, err: fmt.Errorf("session: handler %q: %w", cmd.This, err)}
	}
	return nil
}

// heartbeatLoop is the adaptive keepalive cycle from spec.md §4.3.
func (s *Session) heartbeatLoop(ctx context.Context) error {
	timeout := time.Duration(s.hbCfg.TimeoutMS) * time.Millisecond

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(s.hb.CurrentDuration()):
		}

		select {
		case <-ctx.Done():
			return nil
		case <-s.pong:
			cur := s.hb.Advance(time.Now())
			if err := s.write(resp.HeartbeatACK(cur)); err != nil {
				return &endSession{cause: CausePeerClosed, err: err}
			}
		case <-time.After(timeout):
			_ = s.write(resp.HeartbeatTimeout())
			return &endSession{cause: CauseHeartbeatTimeout, err: errors.New("heartbeat deadline missed")}
		}
	}
}
