package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/exp/slices"
	"gopkg.in/yaml.v3"

	"github.com/wtarreau/plock/bench/etime"
	"github.com/wtarreau/plock/bench/lockbench"
)

var (
	clock     = flag.Int64("clock-rate", 2600000000, "clock rate for processors (cat /proc/cpuinfo | grep model - 2.2GHz is 2,200,000,000)")
	workers   = flag.Int("workers", 8, "count of goroutines hammering the lock")
	pattern   = flag.String("pattern", "mixed", "acquire/release pattern (r, s, w, sw, a, mixed)")
	duration  = flag.Duration("duration", 2*time.Second, "wall-clock period per run")
	scenarios = flag.String("scenarios", "", "optional YAML file listing {workers, pattern, duration} runs; overrides the single-run flags")
)

// scenario is one benchmark run read from the -scenarios file.
type scenario struct {
	Workers  int    `yaml:"workers"`
	Pattern  string `yaml:"pattern"`
	Duration string `yaml:"duration"`
}

func loadScenarios(path string) ([]lockbench.Cfg, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read %s: %w", path, err)
	}
	var list []scenario
	if err := yaml.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("unable to parse %s: %w", path, err)
	}
	cfgs := make([]lockbench.Cfg, 0, len(list))
	for i, s := range list {
		d, err := time.ParseDuration(s.Duration)
		if err != nil {
			return nil, fmt.Errorf("scenario %d: bad duration %q: %w", i, s.Duration, err)
		}
		if !validPattern(s.Pattern) {
			return nil, fmt.Errorf("scenario %d: unknown pattern %q", i, s.Pattern)
		}
		cfgs = append(cfgs, lockbench.Cfg{
			Workers:  s.Workers,
			Pattern:  lockbench.Pattern(s.Pattern),
			Duration: d,
		})
	}
	return cfgs, nil
}

func validPattern(p string) bool {
	for _, known := range lockbench.Patterns {
		if lockbench.Pattern(p) == known {
			return true
		}
	}
	return false
}

func dur(d int64) time.Duration {
	return etime.Duration(d, *clock)
}

func avg(times []int64) time.Duration {
	sum := float64(0)
	for _, t := range times {
		sum += float64(t)
	}
	return time.Duration(sum / float64(len(times)))
}

func processResults(results lockbench.Results) {
	totLen := 0
	for _, timing := range results.Timings {
		totLen += len(timing)
	}
	if totLen == 0 {
		fmt.Println("no loops completed")
		return
	}

	all := make([]int64, 0, totLen)
	for _, timing := range results.Timings {
		all = append(all, timing...)
	}
	slices.Sort(all)

	rawMin, rawMax, rawAvg := dur(all[0]), dur(all[len(all)-1]), avg(all)
	// Trim the extremes to account for random system jitter. Forget about
	// safety checks, just benchmark lots of loops.
	cutLen := int64(0.0001 * float64(len(all)))
	all = all[cutLen : int64(len(all))-cutLen]
	min, q1, median, q3, max, gAvg, tot :=
		dur(all[0]),
		dur(all[len(all)/4]),
		dur(all[len(all)/2]),
		dur(all[3*len(all)/4]),
		dur(all[len(all)-1]),
		avg(all),
		dur(results.TotalTiming)

	var loops int64
	for _, n := range results.Loops {
		loops += n
	}
	perSec := float64(loops) / tot.Seconds()

	fmt.Printf("%s rmin[%v] min[%v] q1[%v] med[%v] q3[%v] max[%v] rmax[%v] ravg[%v] avg[%v] tot[%v] loops/s[%.0f]\n",
		results.Pattern, rawMin, min, q1, median, q3, max, rawMax, rawAvg, gAvg, tot, perSec)

	fname := fmt.Sprintf("w%d.%s.dat", results.Workers, results.Pattern)
	f, err := os.OpenFile(fname, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0666)
	if err != nil {
		fmt.Fprintf(os.Stderr, "unable to open %s: %v\n", fname, err)
		os.Exit(1)
	}
	_, err = fmt.Fprintf(f, "%d\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t%.0f\n",
		results.GOMAXPROCS, min, q1, median, q3, max, rawMin, rawMax, gAvg, perSec)
	if err != nil {
		fmt.Fprintf(os.Stderr, "unable to write to %s: %v\n", fname, err)
		os.Exit(1)
	}
	if err = f.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "unable to close %s: %v\n", fname, err)
		os.Exit(1)
	}
}

func bench(cfgs []lockbench.Cfg, quit, dead chan struct{}) {
	for _, cfg := range cfgs {
		select {
		case <-quit:
			fmt.Println("Quitting.")
			close(dead)
			return
		default:
		}
		fmt.Printf("Bench on: %dworkers, %s, %v\n", cfg.Workers, cfg.Pattern, cfg.Duration)
		results := lockbench.Bench(cfg)
		processResults(results)
	}
	close(dead)
}

func main() {
	flag.Parse()

	var cfgs []lockbench.Cfg
	if *scenarios != "" {
		var err error
		cfgs, err = loadScenarios(*scenarios)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	} else {
		if !validPattern(*pattern) {
			fmt.Fprintf(os.Stderr, "unknown pattern %q\n", *pattern)
			os.Exit(1)
		}
		cfgs = []lockbench.Cfg{{
			Workers:  *workers,
			Pattern:  lockbench.Pattern(*pattern),
			Duration: *duration,
		}}
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGHUP)
	quit := make(chan struct{})
	dead := make(chan struct{})

	fmt.Println("Starting benchmarks...")
	go bench(cfgs, quit, dead)
	select {
	case <-stop:
		fmt.Println("\nStop intercepted, waiting for current benchmark to finish.")
		close(quit)
		<-dead
	case <-dead:
		fmt.Println("Benchmarks finished.")
	}
}
