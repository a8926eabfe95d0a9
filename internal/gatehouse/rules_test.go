// Copyright © 2024-present Lovania
// SPDX-License-Identifier: Apache-2.0

package gatehouse

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAlwaysAllow_AlwaysAdmits(t *testing.T) {
	r := AlwaysAllow{}
	assert.True(t, r.Handle(nil, nil))
}

func TestConnectionCapRule_DeniesAtCapacity(t *testing.T) {
	r := ConnectionCapRule{Max: 2, Size: func() int { return 2 }}
	assert.False(t, r.Handle(nil, nil))
}

func TestConnectionCapRule_AdmitsBelowCapacity(t *testing.T) {
	r := ConnectionCapRule{Max: 2, Size: func() int { return 1 }}
	assert.True(t, r.Handle(nil, nil))
}

func TestConnectionCapRule_ZeroMaxMeansUncapped(t *testing.T) {
	r := ConnectionCapRule{Max: 0, Size: func() int { return 1_000_000 }}
	assert.True(t, r.Handle(nil, nil))
}
