// Copyright © 2024-present Lovania
// SPDX-License-Identifier: Apache-2.0

package gatehouse

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type denyRule struct{ name string }

func (d denyRule) Name() string { return d.name }
func (d denyRule) Handle(net.Conn, net.Addr) bool {
	return false
}

type allowRule struct{ name string }

func (a allowRule) Name() string { return a.name }
func (a allowRule) Handle(net.Conn, net.Addr) bool {
	return true
}

type panicRule struct{}

func (panicRule) Name() string { return "panics" }
func (panicRule) Handle(net.Conn, net.Addr) bool {
	panic("boom")
}

func TestGatehouse_AllAllowRulesAdmits(t *testing.T) {
	g, err := New(4, allowRule{"a"}, allowRule{"b"})
	require.NoError(t, err)
	defer g.Close()

	ok, err := g.Admit(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestGatehouse_FirstFalseShortCircuits(t *testing.T) {
	var called []string
	var mu sync.Mutex
	record := func(name string, verdict bool) Rule {
		return recordingRule{name: name, verdict: verdict, onCall: func() {
			mu.Lock()
			called = append(called, name)
			mu.Unlock()
		}}
	}

	g, err := New(4, record("first", false), record("second", true))
	require.NoError(t, err)
	defer g.Close()

	ok, err := g.Admit(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.False(t, ok)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"first"}, called)
}

type recordingRule struct {
	name    string
	verdict bool
	onCall  func()
}

func (r recordingRule) Name() string { return r.name }
func (r recordingRule) Handle(net.Conn, net.Addr) bool {
	r.onCall()
	return r.verdict
}

func TestGatehouse_PanickingRuleDeniesFailClosed(t *testing.T) {
	g, err := New(2, panicRule{}, allowRule{"never-reached"})
	require.NoError(t, err)
	defer g.Close()

	ok, err := g.Admit(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGatehouse_ConcurrentAdmitsEachGetOwnVerdict(t *testing.T) {
	g, err := New(4, ConnectionCapRule{Max: 1, Size: func() int { return 0 }})
	require.NoError(t, err)
	defer g.Close()

	const n = 50
	var wg sync.WaitGroup
	results := make([]bool, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ok, err := g.Admit(context.Background(), nil, nil)
			require.NoError(t, err)
			results[i] = ok
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		assert.True(t, results[i])
	}
}

func TestGatehouse_ContextCancelDoesNotHangCaller(t *testing.T) {
	block := make(chan struct{})
	blocking := recordingRule{name: "blocks", verdict: true, onCall: func() { <-block }}

	g, err := New(1, blocking)
	require.NoError(t, err)
	defer func() {
		close(block)
		g.Close()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = g.Admit(ctx, nil, nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
