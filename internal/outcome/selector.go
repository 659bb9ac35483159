package outcome

import "errors"

var ErrEmptyPool = errors.New("empty outcome pool")

// DefaultPool is used when the user has not configured any texts.
var DefaultPool = []string{"loves me", "loves me not"}

// Select picks one phrase from pool using rng, a source of floats in [0,1).
// Selection is uniform; the computed index is clamped so a rng that returns
// exactly 1.0 cannot run off the end.
func Select(pool []string, rng func() float64) (string, error) {
	if len(pool) == 0 {
		return "", ErrEmptyPool
	}
	idx := int(rng() * float64(len(pool)))
	if idx < 0 {
		idx = 0
	}
	if idx >= len(pool) {
		idx = len(pool) - 1
	}
	return pool[idx], nil
}

// PoolOrDefault returns pool if it has entries, the built-in pair otherwise.
func PoolOrDefault(pool []string) []string {
	if len(pool) == 0 {
		return DefaultPool
	}
	return pool
}
