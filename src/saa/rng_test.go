package saa

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReplicationRNG_DeterministicPerReplication(t *testing.T) {
	a := ReplicationRNG(42, 3).Perm(10)
	b := ReplicationRNG(42, 3).Perm(10)
	assert.Equal(t, a, b)

	assert.NotEqual(t, a, ReplicationRNG(42, 4).Perm(10))
	assert.NotEqual(t, a, ReplicationRNG(43, 3).Perm(10))
}
