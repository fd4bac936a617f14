package main

import (
	"flag"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/wtarreau/plock/bench/cachebench"
)

var (
	workers  = flag.Int("workers", 8, "count of goroutines sharing the cache")
	keys     = flag.Uint64("keys", 1<<16, "keyspace breadth")
	capacity = flag.Int("capacity", 1<<14, "cache capacity")
	duration = flag.Duration("duration", 2*time.Second, "wall-clock period to run for")
)

func main() {
	flag.Parse()
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	if *keys == 0 || *capacity <= 0 || *workers <= 0 {
		log.Fatal().Msg("keys, capacity, and workers must be positive")
	}

	log.Info().
		Int("workers", *workers).
		Uint64("keys", *keys).
		Int("capacity", *capacity).
		Dur("duration", *duration).
		Msg("starting cache benchmark")

	start := time.Now()
	res, err := cachebench.Run(cachebench.Cfg{
		Workers:  *workers,
		Keys:     *keys,
		Capacity: *capacity,
		Duration: *duration,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("cache integrity check failed")
	}

	elapsed := time.Since(start)
	total := res.Hits + res.Misses
	log.Info().
		Int64("hits", res.Hits).
		Int64("misses", res.Misses).
		Int64("inserts", res.Inserts).
		Float64("hit_ratio", float64(res.Hits)/float64(total)).
		Float64("lookups_per_sec", float64(total)/elapsed.Seconds()).
		Msg("done")
}
