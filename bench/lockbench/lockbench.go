// Package lockbench benchmarks acquire/release patterns against one shared
// progressive lock.
package lockbench

import (
	"math/rand"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/wtarreau/plock"
	"github.com/wtarreau/plock/bench/etime"
)

var nowOverhead int64

func init() {
	iters := int64(1000000)
	start := etime.Now()
	for i := int64(0); i < iters; i++ {
		_ = etime.Now()
	}
	end := etime.Now()
	nowOverhead = (end - start) / iters
}

// Pattern names one acquire/release shape a worker runs in a loop.
type Pattern string

const (
	// PatternR is a plain read: RLock, RUnlock.
	PatternR Pattern = "r"
	// PatternS is a seek without upgrade: SLock, SUnlock.
	PatternS Pattern = "s"
	// PatternW is an exclusive write: WLock, WUnlock.
	PatternW Pattern = "w"
	// PatternSW is the descent discipline: SLock, SToW, WUnlock.
	PatternSW Pattern = "sw"
	// PatternA is an atomic write: ALock, AUnlock.
	PatternA Pattern = "a"
	// PatternMixed is 90% PatternR, 10% PatternSW, the cache-like blend.
	PatternMixed Pattern = "mixed"
)

// Patterns lists every supported pattern, for CLI validation.
var Patterns = []Pattern{PatternR, PatternS, PatternW, PatternSW, PatternA, PatternMixed}

// Cfg is the configuration used to run a benchmark.
type Cfg struct {
	// Workers is the count of goroutines hammering the lock.
	Workers int
	// Pattern is the acquire/release shape each worker runs.
	Pattern Pattern
	// Duration is the wall-clock period to run for.
	Duration time.Duration
	// CapHint pre-sizes each worker's timing slice so appends do not
	// reallocate mid-benchmark. Zero means 1<<20 per worker; users must
	// ensure their RAM can support the total.
	CapHint int
}

// Results contains the results of one benchmark for a given Cfg.
type Results struct {
	// GOMAXPROCS is the GOMAXPROCS setting for this benchmark.
	GOMAXPROCS int
	// Workers is how many workers ran.
	Workers int
	// Pattern is the shape they ran.
	Pattern Pattern
	// Timings contains etime deltas for every acquire/release pair, per
	// worker.
	Timings [][]int64
	// Loops is the per-worker loop count.
	Loops []int64
	// TotalTiming captures the etime delta from immediately before
	// allowing all workers to start and immediately after all end.
	TotalTiming int64
}

// benchWorker runs one pattern loop against the shared lock until stopped,
// tracking the runtime of each acquire/release pair.
type benchWorker struct {
	lock    *plock.Lock64
	pattern Pattern
	rng     *rand.Rand
	stop    *uint32
	timings []int64
	loops   int64
}

func (bw *benchWorker) one() {
	p := bw.pattern
	if p == PatternMixed {
		if bw.rng.Intn(10) == 0 {
			p = PatternSW
		} else {
			p = PatternR
		}
	}
	switch p {
	case PatternR:
		bw.lock.RLock()
		bw.lock.RUnlock()
	case PatternS:
		bw.lock.SLock()
		bw.lock.SUnlock()
	case PatternW:
		bw.lock.WLock()
		bw.lock.WUnlock()
	case PatternSW:
		bw.lock.SLock()
		bw.lock.SToW()
		bw.lock.WUnlock()
	case PatternA:
		bw.lock.ALock()
		bw.lock.AUnlock()
	}
}

func (bw *benchWorker) run(begin chan struct{}, wg *sync.WaitGroup) {
	<-begin
	for atomic.LoadUint32(bw.stop) == 0 {
		start := etime.Now()
		bw.one()
		end := etime.Now()
		bw.timings = append(bw.timings, end-start-nowOverhead)
		bw.loops++
	}
	wg.Done() // defer is currently slow; avoid the overhead in timings
}

// Bench runs concurrent workers based off the given config, returning the
// timing results on completion.
func Bench(cfg Cfg) Results {
	capHint := cfg.CapHint
	if capHint == 0 {
		capHint = 1 << 20
	}

	var lock plock.Lock64
	var stop uint32
	begin := make(chan struct{})
	var wg sync.WaitGroup

	workers := make([]*benchWorker, 0, cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		bw := &benchWorker{
			lock:    &lock,
			pattern: cfg.Pattern,
			rng:     rand.New(rand.NewSource(int64(i) + 1)),
			stop:    &stop,
			timings: make([]int64, 0, capHint),
		}
		workers = append(workers, bw)
		wg.Add(1)
		go bw.run(begin, &wg)
	}

	start := etime.Now()
	close(begin)
	time.Sleep(cfg.Duration)
	atomic.StoreUint32(&stop, 1)
	wg.Wait()
	end := etime.Now()
	total := end - start - nowOverhead

	r := Results{
		GOMAXPROCS:  runtime.GOMAXPROCS(0),
		Workers:     cfg.Workers,
		Pattern:     cfg.Pattern,
		Timings:     make([][]int64, 0, len(workers)),
		Loops:       make([]int64, 0, len(workers)),
		TotalTiming: total,
	}
	for _, bw := range workers {
		r.Timings = append(r.Timings, bw.timings)
		r.Loops = append(r.Loops, bw.loops)
	}
	return r
}
