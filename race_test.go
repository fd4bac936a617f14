package plock

import (
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// raceWindow is how long the contention scenarios run. The upstream
// regression soaked for 10 seconds; here the window is short enough for CI
// and the race detector, with the same shape.
const raceWindow = 300 * time.Millisecond

// A writer that bumps a shared counter under W reads back exactly its own
// writes; the final count is the sum of everyone's loops.
func TestWriterExclusion(t *testing.T) {
	const writers = 8

	var l Lock64
	var counter int64 // plain; the lock is the only protection
	loops := make([]int64, writers)

	var wg sync.WaitGroup
	deadline := time.Now().Add(raceWindow)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for time.Now().Before(deadline) {
				l.WLock()
				was := counter
				counter = was + 1
				if counter != was+1 {
					t.Errorf("writer %d saw foreign write inside its critical section", id)
				}
				l.WUnlock()
				loops[id]++
			}
		}(i)
	}
	wg.Wait()

	var want int64
	for _, n := range loops {
		want += n
	}
	assert.Equal(t, want, counter, "lost or duplicated increments under W")
	assert.Zero(t, l.Load(), "lock word drifted")
}

// The rwrace regression: one reader spinning short intervals under R while
// seven writers pulse a check variable under W. The reader must never
// observe the pulse.
func TestRWRace(t *testing.T) {
	const writers = 7

	var l Lock64
	var check int64
	var readerLoops, writerLoops int64

	var wg sync.WaitGroup
	deadline := time.Now().Add(raceWindow)

	wg.Add(1)
	go func() {
		defer wg.Done()
		rng := rand.New(rand.NewSource(1))
		for time.Now().Before(deadline) {
			l.RLock()
			for i, n := 0, 1+rng.Intn(64); i < n; i++ {
				if v := atomic.LoadInt64(&check); v != 0 {
					t.Errorf("reader observed check=%d inside its read section", v)
				}
			}
			l.RUnlock()
			atomic.AddInt64(&readerLoops, 1)
		}
	}()

	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for time.Now().Before(deadline) {
				l.WLock()
				atomic.AddInt64(&check, 1)
				atomic.AddInt64(&check, -1)
				l.WUnlock()
				atomic.AddInt64(&writerLoops, 1)
			}
		}()
	}
	wg.Wait()

	assert.NotZero(t, atomic.LoadInt64(&readerLoops), "reader made no progress")
	assert.NotZero(t, atomic.LoadInt64(&writerLoops), "writers made no progress")
	assert.Zero(t, l.Load(), "lock word drifted")
}

// Two readers hold R at the same time: each enters, announces itself, and
// waits to see the other. Shared read access is what makes this terminate.
func TestReadersOverlap(t *testing.T) {
	var l Lock64
	var counter int64
	var inR [2]int32

	// Writer goes first; both readers block until it is done.
	l.WLock()

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(me, other int) {
			defer wg.Done()
			l.RLock()
			assert.Equal(t, int64(1), atomic.LoadInt64(&counter), "reader ran before the writer finished")
			atomic.StoreInt32(&inR[me], 1)
			for atomic.LoadInt32(&inR[other]) == 0 {
				// The peer can only get here if R is truly shared.
			}
			l.RUnlock()
		}(i, 1-i)
	}

	time.Sleep(20 * time.Millisecond)
	counter++
	l.WUnlock()

	wg.Wait()
	assert.Equal(t, int64(1), counter)
	assert.Zero(t, l.Load(), "lock word drifted")
}

// The lookup+insert discipline: walk under S, mutate under W after SToW.
// S admits plain readers but no second seeker, so these walks take turns,
// and mutations are exclusive. A plain slice plus an external
// count stand in for the tree: they agree exactly when mutations are
// serialized.
func TestSeekThenWrite(t *testing.T) {
	const threads = 4
	const rounds = 200

	var l Lock64
	var list []int
	var n int64 // mirrors len(list); plain, lock-protected

	var wg sync.WaitGroup
	for i := 0; i < threads; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for r := 0; r < rounds; r++ {
				l.SLock()
				// The walk: the structure must be coherent under S.
				if int64(len(list)) != n {
					t.Errorf("walk saw list len %d but count %d", len(list), n)
				}
				l.SToW()
				list = append(list, r)
				n++
				l.WUnlock()
			}
		}()
	}
	wg.Wait()

	require.Equal(t, int64(threads*rounds), n)
	require.Len(t, list, threads*rounds)
	assert.Zero(t, l.Load(), "lock word drifted")
}

// Atomic fan-in: readers convert to A, and every successful convert does
// its own atomic increment. The total equals the successful conversions.
func TestAtomicFanIn(t *testing.T) {
	const threads = 4

	var l Lock64
	var counter int64
	var converted int64

	var wg sync.WaitGroup
	for i := 0; i < threads; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.RLock()
			if l.TryRToA() {
				atomic.AddInt64(&converted, 1)
				atomic.AddInt64(&counter, 1)
				l.AUnlock()
				return
			}
			// Failed upgrades keep R; drop it, per the contract.
			l.RUnlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, atomic.LoadInt64(&converted), atomic.LoadInt64(&counter))
	assert.NotZero(t, atomic.LoadInt64(&converted), "no reader managed to convert")
	assert.Zero(t, l.Load(), "lock word drifted")
}

// A full join/claim round trip: every reader funnels through C into A,
// stakes its atomic increment, and leaves. The group synchronizes itself.
func TestJoinClaimPipeline(t *testing.T) {
	const threads = 3

	var l Lock64
	var counter int64

	var wg sync.WaitGroup
	for i := 0; i < threads; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.RLock()
			l.RToC()
			l.CToA()
			atomic.AddInt64(&counter, 1)
			l.AUnlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(threads), counter)
	assert.Zero(t, l.Load(), "lock word drifted")
}

// No two threads may believe they hold the seek at once.
func TestSeekerUniqueness(t *testing.T) {
	const threads = 6

	var l Lock64
	var inSeek int32
	var grants int64

	var wg sync.WaitGroup
	deadline := time.Now().Add(raceWindow / 2)
	for i := 0; i < threads; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for time.Now().Before(deadline) {
				if !l.TrySLock() {
					continue
				}
				if atomic.AddInt32(&inSeek, 1) != 1 {
					t.Error("two seekers at once")
				}
				atomic.AddInt32(&inSeek, -1)
				l.SUnlock()
				atomic.AddInt64(&grants, 1)
			}
		}()
	}
	wg.Wait()

	assert.NotZero(t, atomic.LoadInt64(&grants), "no seek was ever granted")
	assert.Zero(t, l.Load(), "lock word drifted")
}
