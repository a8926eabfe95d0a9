// Copyright © 2024-present Lovania
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lovania-Networking-and-Software/Clousocket/internal/resp"
	"github.com/Lovania-Networking-and-Software/Clousocket/internal/session"
)

type fakeExecutor struct {
	reply any
	err   error
	got   []string
}

func (f *fakeExecutor) Execute(ctx context.Context, tokens ...string) (any, error) {
	f.got = tokens
	return f.reply, f.err
}

func readFrame(t *testing.T, conn net.Conn) []byte {
	t.Helper()
	buf := make([]byte, 256)
	conn.SetReadDeadline(time.Now().Add(time.Second))
	n, err := conn.Read(buf)
	require.NoError(t, err)
	return buf[:n]
}

func TestBuild_GetProxiesToExecutorAndRepliesWithValue(t *testing.T) {
	exec := &fakeExecutor{reply: "v"}
	reg := Build(exec, semaphore.NewWeighted(4))

	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	ctx := session.WithConn(context.Background(), server)
	go func() {
		_, err := reg["get"](ctx, []string{"k"})
		assert.NoError(t, err)
	}()

	frame := readFrame(t, client)
	assert.Equal(t, resp.EncodeArray("GET", "v"), frame)
	assert.Equal(t, []string{"GET", "k"}, exec.got)
}

func TestBuild_PingWithNoArgsRepliesPong(t *testing.T) {
	reg := Build(&fakeExecutor{}, semaphore.NewWeighted(4))

	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	ctx := session.WithConn(context.Background(), server)
	go reg["ping"](ctx, nil)

	frame := readFrame(t, client)
	assert.Equal(t, resp.EncodeArray("PONG"), frame)
}

func TestBuild_ExecutorErrorRepliesERR(t *testing.T) {
	exec := &fakeExecutor{err: errors.New("boom")}
	reg := Build(exec, semaphore.NewWeighted(4))

	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	ctx := session.WithConn(context.Background(), server)
	go reg["del"](ctx, []string{"k"})

	frame := readFrame(t, client)
	assert.Equal(t, resp.EncodeArray("ERR", "boom"), frame)
}
