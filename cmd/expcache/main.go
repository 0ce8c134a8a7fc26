package main

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/prometheus/client_golang/prometheus"

	promadapter "expcache/internal/adapters/prometheus"
	"expcache/internal/cache"
	"expcache/internal/config"
	"expcache/internal/logger"
)

const shortTTL = 250 * time.Millisecond

func main() {
	// Signal-aware context: SIGINT/SIGTERM cuts the walk-through short.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "expcache:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logOpts, err := cfg.LoggerOptions()
	if err != nil {
		return err
	}
	log := logger.New(logOpts...)

	reg := prometheus.NewRegistry()

	c, err := cache.New[int, string](cfg.TTL, cfg.CacheOptions(
		cache.WithLogger(log.With(slog.String("cache", "main"))),
		cache.WithMetrics(promadapter.NewCacheMetrics(reg, "main")),
	)...)
	if err != nil {
		return fmt.Errorf("main cache: %w", err)
	}

	log.Info("expcache demo starting",
		slog.Duration("ttl", c.TTL()),
		slog.Int("max_size", c.MaxSize()),
		slog.Bool("weak_values", cfg.WeakValues),
	)

	// -------------------------------------------------------------------
	// 1) Bulk load and insertion-order eviction
	// -------------------------------------------------------------------
	c.PutAll(hexValues(1000))
	log.Info("bulk load done", slog.Int("len", c.Len()))

	if v, ok := c.Get(255); ok {
		log.Info("GET 255", slog.String("value", v))
	} else {
		log.Info("GET 255: missing (evicted or expired)")
	}
	if snap := c.Snapshot(); len(snap) > 0 {
		log.Info("oldest surviving key", slog.Int("key", snap[0].Key))
	}

	// -------------------------------------------------------------------
	// 2) PutIfAbsent race: one winner for everyone
	// -------------------------------------------------------------------
	const racers = 16
	winners := make([]string, racers)
	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			winners[i] = c.PutIfAbsent(-1, "racer-"+strconv.Itoa(i))
		}(i)
	}
	wg.Wait()
	log.Info("putIfAbsent race settled", slog.String("winner", winners[0]), slog.Bool("unanimous", unanimous(winners)))

	// -------------------------------------------------------------------
	// 3) Lazy expiration: reads don't sweep, the next write does
	// -------------------------------------------------------------------
	short, err := cache.New[string, string](shortTTL,
		cache.WithLogger(log.With(slog.String("cache", "short"))),
		cache.WithMetrics(promadapter.NewCacheMetrics(reg, "short")),
	)
	if err != nil {
		return fmt.Errorf("short cache: %w", err)
	}

	short.Put("session", "abc")

	wait := time.NewTimer(shortTTL + 50*time.Millisecond)
	defer wait.Stop()

	select {
	case <-ctx.Done():
		log.Info("received shutdown signal")
		return nil
	case <-wait.C:
	}

	_, ok := short.Get("session")
	log.Info("after ttl", slog.Bool("get_hit", ok), slog.Bool("contains_key", short.ContainsKey("session")))

	short.Put("other", "x")
	log.Info("after next write", slog.Bool("contains_key", short.ContainsKey("session")), slog.Int("len", short.Len()))

	// -------------------------------------------------------------------
	// 4) Metrics summary
	// -------------------------------------------------------------------
	if err := printMetrics(reg); err != nil {
		return err
	}

	fmt.Println("Done.")
	return nil
}

// hexValues yields i -> hex(i) for i in [0, n).
func hexValues(n int) iter.Seq2[int, string] {
	return func(yield func(int, string) bool) {
		for i := 0; i < n; i++ {
			if !yield(i, strconv.FormatInt(int64(i), 16)) {
				return
			}
		}
	}
}

func unanimous(values []string) bool {
	for _, v := range values[1:] {
		if v != values[0] {
			return false
		}
	}
	return true
}

func printMetrics(reg *prometheus.Registry) error {
	mfs, err := reg.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}

	for _, mf := range mfs {
		for _, m := range mf.GetMetric() {
			labels := make([]string, 0, len(m.GetLabel()))
			for _, lp := range m.GetLabel() {
				labels = append(labels, lp.GetName()+"="+lp.GetValue())
			}

			var value float64
			switch {
			case m.GetCounter() != nil:
				value = m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				value = m.GetGauge().GetValue()
			}

			fmt.Printf("%-28s {%s} %s\n", mf.GetName(), strings.Join(labels, ","), humanize.Comma(int64(value)))
		}
	}
	return nil
}
