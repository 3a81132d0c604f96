package service

import "math/rand"

// RandFactory produces the random source used for board generation and draw
// shuffling. Services take the factory rather than a shared *rand.Rand so
// tests can inject fixed seeds and get reproducible games.
type RandFactory func() *rand.Rand

// defaultRandFactory seeds each source from the global generator, which is
// safe for concurrent use.
func defaultRandFactory() *rand.Rand {
	return rand.New(rand.NewSource(rand.Int63()))
}
