// Copyright © 2024-present Lovania
// SPDX-License-Identifier: Apache-2.0

package resp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParser_RoundTrip(t *testing.T) {
	var p Parser
	p.Feed(EncodeArray("GET", "key"))

	tokens, ok, err := p.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{"GET", "key"}, tokens)
}

func TestParser_PartialFrameAcrossChunks(t *testing.T) {
	var p Parser
	full := EncodeArray("HEARTBEAT")
	p.Feed(full[:3])

	_, ok, err := p.Next()
	require.NoError(t, err)
	require.False(t, ok)

	p.Feed(full[3:])
	tokens, ok, err := p.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{"HEARTBEAT"}, tokens)
}

func TestParser_MultipleFramesInOneChunk(t *testing.T) {
	var p Parser
	p.Feed(append(EncodeArray("PING"), EncodeArray("PING")...))

	first, ok, err := p.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{"PING"}, first)

	second, ok, err := p.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{"PING"}, second)
}

func TestParser_MalformedPrefix(t *testing.T) {
	var p Parser
	p.Feed([]byte("not-resp\r\n"))

	_, _, err := p.Next()
	assert.ErrorIs(t, err, ErrProtocol)
}

func TestEncode_HeartbeatFrames(t *testing.T) {
	assert.Equal(t, "*3\r\n$9\r\nHEARTBEAT\r\n$3\r\nACK\r\n$4\r\n1500\r\n", string(HeartbeatACK(1500)))
	assert.Equal(t, "*2\r\n$9\r\nHEARTBEAT\r\n$7\r\nTIMEOUT\r\n", string(HeartbeatTimeout()))
}

func TestEncode_UnknownCommand(t *testing.T) {
	assert.Equal(t, "*4\r\n$3\r\nERR\r\n$7\r\nunknown\r\n$7\r\ncommand\r\n$8\r\n'banana'\r\n", string(UnknownCommand("banana")))
}
