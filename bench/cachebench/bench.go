package cachebench

import (
	"math/rand"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wtarreau/plock"
)

// Cfg configures one cache benchmark run.
type Cfg struct {
	// Workers is the count of goroutines sharing the cache.
	Workers int
	// Keys is the keyspace breadth; smaller than Capacity means all hits
	// after warmup, much larger means a steady miss/insert churn.
	Keys uint64
	// Capacity bounds the cache.
	Capacity int
	// Duration is the wall-clock period to run for.
	Duration time.Duration
}

// Results aggregates one run.
type Results struct {
	Hits    int64
	Misses  int64
	Inserts int64
}

// Run drives Workers goroutines over one shared cache under progressive-
// lock discipline: lookup under R; on miss, re-check under S and insert
// under W after the seek upgrade. The cache's integrity is verified after
// the run; a violation is returned as an error.
func Run(cfg Cfg) (Results, error) {
	var lock plock.Lock64
	cache := New(cfg.Capacity)
	var res Results

	deadline := time.Now().Add(cfg.Duration)
	var g errgroup.Group
	for i := 0; i < cfg.Workers; i++ {
		rng := rand.New(rand.NewSource(int64(i) + 1))
		g.Go(func() error {
			var hits, misses, inserts int64
			for time.Now().Before(deadline) {
				key := rng.Uint64() % cfg.Keys

				lock.RLock()
				_, ok := cache.Get(key)
				lock.RUnlock()
				if ok {
					hits++
					continue
				}
				misses++

				// Miss path: seek, re-check (someone may have inserted
				// while we were unlocked), then upgrade and insert.
				lock.SLock()
				if _, ok := cache.Get(key); ok {
					lock.SUnlock()
					continue
				}
				lock.SToW()
				cache.Put(key, key^0x9e3779b97f4a7c15)
				lock.WUnlock()
				inserts++
			}
			atomic.AddInt64(&res.Hits, hits)
			atomic.AddInt64(&res.Misses, misses)
			atomic.AddInt64(&res.Inserts, inserts)
			return nil
		})
	}
	_ = g.Wait() // workers only return nil; Wait is the join point

	lock.RLock()
	err := cache.Check()
	lock.RUnlock()
	return res, err
}
