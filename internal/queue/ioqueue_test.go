// Copyright © 2024-present Lovania
// SPDX-License-Identifier: Apache-2.0

package queue

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIOQueue_FIFOSingleProducer(t *testing.T) {
	q := New[string](0)
	for i := 0; i < 5; i++ {
		q.Append("x", CID(i))
	}

	var got []CID
	for i := 0; i < 5; i++ {
		item, ok := q.Receive()
		assert.True(t, ok)
		got = append(got, item.CID)
	}

	for i, cid := range got {
		assert.EqualValues(t, i, cid)
	}
}

func TestIOQueue_CloseEndsIteration(t *testing.T) {
	q := New[int](0)
	q.Append(1, 1)
	q.Close()

	var seen int
	for item := range q.Iterate() {
		seen += item.Payload
	}
	assert.Equal(t, 1, seen)
}

func TestIOQueue_FanOutExactlyOnceDelivery(t *testing.T) {
	q := New[int](0)
	const n = 200
	for i := 0; i < n; i++ {
		q.Append(i, CID(i))
	}
	q.Close()

	var mu sync.Mutex
	seen := make(map[CID]int)
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range q.Iterate() {
				mu.Lock()
				seen[item.CID]++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, n)
	for cid, count := range seen {
		assert.Equalf(t, 1, count, "cid %d delivered %d times", cid, count)
	}
}

func TestIOQueue_AppendAfterCloseIsNoOp(t *testing.T) {
	q := New[int](0)
	q.Close()
	assert.NotPanics(t, func() {
		q.Append(1, 1)
	})
}
