package market

import (
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Rand is the source of randomness for the generators. *rand.Rand from
// math/rand/v2 satisfies it; tests substitute a seeded or scripted source.
type Rand interface {
	Float64() float64
	IntN(n int) int
	Shuffle(n int, swap func(i, j int))
}

// NewRand returns a PCG-backed source. A zero seed is replaced with the
// current time, so only non-zero seeds reproduce a game.
func NewRand(seed uint64) *rand.Rand {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// LockedRand serializes access to a Rand shared between request handlers.
type LockedRand struct {
	mu sync.Mutex
	r  Rand
}

// NewLockedRand wraps r for concurrent use.
func NewLockedRand(r Rand) *LockedRand {
	return &LockedRand{r: r}
}

func (l *LockedRand) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Float64()
}

func (l *LockedRand) IntN(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.IntN(n)
}

func (l *LockedRand) Shuffle(n int, swap func(i, j int)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.r.Shuffle(n, swap)
}

// uniform draws from [lo, hi).
func uniform(r Rand, lo, hi float64) float64 {
	return lo + r.Float64()*(hi-lo)
}

// randomInt draws an integer from [ceil(lo), floor(hi)]. An empty range
// yields its lower bound so that callers always get a usable magnitude.
func randomInt(r Rand, lo, hi float64) int {
	l, h := int(math.Ceil(lo)), int(math.Floor(hi))
	if lo > hi || l > h {
		return l
	}
	return l + r.IntN(h-l+1)
}

// round1 rounds to one decimal place.
func round1(v float64) float64 {
	return decimal.NewFromFloat(v).Round(1).InexactFloat64()
}

// addPct adds two percentage values without accumulating binary drift.
func addPct(a, b float64) float64 {
	return decimal.NewFromFloat(a).Add(decimal.NewFromFloat(b)).InexactFloat64()
}
