// Copyright © 2024-present Lovania
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	"net"
)

type ctxKey int

const connCtxKey ctxKey = iota

// WithConn attaches a connection to ctx so that a registered handler —
// invoked per spec.md §4.6 as "handler(stream, *data_args)" — can write
// its own reply directly to the peer. The session runtime calls this once
// per connection; command-handler tests use it directly to exercise a
// handler without a live session.
func WithConn(ctx context.Context, conn net.Conn) context.Context {
	return context.WithValue(ctx, connCtxKey, conn)
}

// ConnFromContext recovers the connection a handler should write its reply
// to. Handlers registered in internal/commands use this.
func ConnFromContext(ctx context.Context) (net.Conn, bool) {
	conn, ok := ctx.Value(connCtxKey).(net.Conn)
	return conn, ok
}
