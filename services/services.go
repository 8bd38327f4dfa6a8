// Package services holds the issue lifecycle and assignment engine: the
// issue store, the assignment rules, notification fan-out and analytics.
package services

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"civicsync/models"
)

// Principals is the part of the identity adapter the engine reads.
type Principals interface {
	ListPrincipals(ctx context.Context) ([]models.Principal, error)
	GetPrincipal(ctx context.Context, id string) (models.Principal, error)
}

// Clock abstracts time.Now so tests can pin timestamps.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now().UTC() }

// RealClock returns the wall clock.
func RealClock() Clock { return realClock{} }

// Picker chooses one of n candidates for automatic assignment.
type Picker interface {
	Pick(n int) int
}

// RandomPicker picks uniformly at random so load spreads across
// technicians instead of always landing on the first one listed.
type RandomPicker struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomPicker returns a picker with a fixed seed. The same seed
// yields the same sequence of picks.
func NewRandomPicker(seed uint64) *RandomPicker {
	return &RandomPicker{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (p *RandomPicker) Pick(n int) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rng.IntN(n)
}
