// Package wait provides backoff loops for code that polls a shared word.
//
// Spinning on a contended cache line is expensive for every core attached to
// it. The helpers here pace their reloads with a growing train of CPU pause
// hints so that the line settles between observations, and fall back to a
// scheduler yield once the wait has clearly become long. They are meant to
// wrap the retry path of a spinning algorithm: attempt, fail, wait here,
// attempt again.
//
// The pause schedules are tuned and should be left alone. Unlock grows its
// pause count by roughly 1.5x per round, floored at 2 and capped at 32767,
// and starts yielding to the scheduler once a round reaches 16384 pauses.
// Change doubles a byte-sized counter in 2^N-1 steps up to 255; it is the
// cheap variant for waits that are expected to be short.
//
// Both helpers only ever read the word. They never mutate it.
package wait

import (
	"runtime"
	"sync/atomic"

	"github.com/wtarreau/plock/primitive"
)

const (
	// spinCap bounds the pause train of one Unlock round.
	spinCap = 0x7fff
	// yieldAt is the round length beyond which Unlock yields to the
	// scheduler once per round.
	yieldAt = 16384
	// yieldRebate is how many pauses a yielding round skips, the yield
	// itself having burned the time.
	yieldRebate = 8192
)

// Unlock32 returns the observed value of *addr once (*addr & mask) == 0.
func Unlock32(addr *uint32, mask uint32) uint32 {
	m := uint32(0)
	for {
		n := m
		if n >= yieldAt {
			runtime.Gosched()
			n -= yieldRebate
		}
		for ; n > 0; n-- {
			primitive.Relax()
		}
		if v := atomic.LoadUint32(addr); v&mask == 0 {
			return v
		}
		m = ((m + m>>1) | 2) & spinCap
	}
}

// Unlock64 returns the observed value of *addr once (*addr & mask) == 0.
func Unlock64(addr *uint64, mask uint64) uint64 {
	m := uint32(0)
	for {
		n := m
		if n >= yieldAt {
			runtime.Gosched()
			n -= yieldRebate
		}
		for ; n > 0; n-- {
			primitive.Relax()
		}
		if v := atomic.LoadUint64(addr); v&mask == 0 {
			return v
		}
		m = ((m + m>>1) | 2) & spinCap
	}
}

// Change32 returns the observed value of *addr once it differs from prev.
// Unlike Unlock32 it waits for any change, not a specific condition, so the
// caller rechecks its condition and comes back if unsatisfied.
func Change32(addr *uint32, prev uint32) uint32 {
	var m uint8
	for {
		for n := m; n > 0; n-- {
			primitive.Relax()
		}
		if v := atomic.LoadUint32(addr); v != prev {
			return v
		}
		m = m<<1 | 1
	}
}

// Change64 returns the observed value of *addr once it differs from prev.
func Change64(addr *uint64, prev uint64) uint64 {
	var m uint8
	for {
		for n := m; n > 0; n-- {
			primitive.Relax()
		}
		if v := atomic.LoadUint64(addr); v != prev {
			return v
		}
		m = m<<1 | 1
	}
}
