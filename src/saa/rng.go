package saa

import (
	"fmt"
	"hash/fnv"
	"math/rand"
)

// ReplicationRNG returns the random source of replication m. It depends only
// on seed and m, so a replication draws the same sample whichever worker runs
// it and in whatever order.
func ReplicationRNG(seed int64, m int) *rand.Rand {
	return rand.New(rand.NewSource(seed ^ fnv1a64(fmt.Sprintf("replication_%d", m))))
}

func fnv1a64(s string) int64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return int64(h.Sum64())
}
