// Command refresh-loadtest drives an Engine against Redis (or an in-process
// miniredis) and reports Authorize and Refresh latency, plus a race phase that
// presents one refresh token from many goroutines at once and counts winners.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type lineage struct {
	subject string
	access  string
	refresh string
	mu      sync.Mutex
}

func main() {
	var (
		subjects    = flag.Int("subjects", 10000, "number of subjects to log in")
		concurrency = flag.Int("concurrency", 256, "number of concurrent workers")
		ops         = flag.Int("ops", 100000, "operations per phase (authorize + refresh)")
		races       = flag.Int("races", 1000, "refresh tokens to present concurrently in the race phase")
		racers      = flag.Int("racers", 16, "goroutines presenting each raced token")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "refresh", "refresh entry key prefix")
	)
	flag.Parse()

	if *subjects <= 0 || *concurrency <= 0 || *ops <= 0 || *races < 0 || *racers <= 0 {
		fmt.Fprintln(os.Stderr, "subjects, concurrency, ops and racers must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		client  redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		addr = mr.Addr()
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	cfg := goSession.DefaultConfig()
	cfg.JWT.Secret = []byte("refresh-loadtest-secret-0123456789abcdef")
	cfg.Session.RedisPrefix = *prefix
	cfg.Metrics.Enabled = true

	engine, err := goSession.New().
		WithConfig(cfg).
		WithRedis(client).
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))).
		Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "build engine: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	lineages := make([]lineage, *subjects)
	fmt.Printf("logging in %d subjects...\n", *subjects)
	startSeed := time.Now()
	for i := range lineages {
		subject := strconv.Itoa(i + 1)
		pair, err := engine.Login(ctx, subject, goSession.WithRole(goSession.RoleUser))
		if err != nil {
			fmt.Fprintf(os.Stderr, "login failed: %v\n", err)
			os.Exit(1)
		}
		lineages[i] = lineage{subject: subject, access: pair.AccessToken, refresh: pair.RefreshToken}
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	authorizeStats := runAuthorizePhase(ctx, engine, lineages, *ops, *concurrency)
	refreshStats := runRefreshPhase(ctx, engine, lineages, *ops, *concurrency)
	race := runRacePhase(ctx, engine, *races, *racers)

	fmt.Println("---- results ----")
	printStats("authorize", authorizeStats)
	printStats("refresh", refreshStats)
	fmt.Printf("race: tokens=%d racers=%d single_winner=%d multi_winner=%d no_winner=%d\n",
		race.tokens, *racers, race.single, race.multi, race.none)

	snap := engine.MetricsSnapshot()
	fmt.Printf("metrics: refresh_success=%d reuse_detected=%d store_errors=%d\n",
		snap.Counters[goSession.MetricRefreshSuccess],
		snap.Counters[goSession.MetricRefreshReuseDetected],
		snap.Counters[goSession.MetricStoreError],
	)

	if race.multi > 0 {
		fmt.Fprintln(os.Stderr, "refresh token accepted more than once")
		os.Exit(1)
	}
}

func runAuthorizePhase(ctx context.Context, engine *goSession.Engine, lineages []lineage, ops, concurrency int) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				l := &lineages[r.Intn(len(lineages))]
				l.mu.Lock()
				token := l.access
				l.mu.Unlock()

				t0 := time.Now()
				_, err := engine.Authorize(ctx, token)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures)
}

func runRefreshPhase(ctx context.Context, engine *goSession.Engine, lineages []lineage, ops, concurrency int) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*6151))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				l := &lineages[r.Intn(len(lineages))]

				// one rotation per lineage at a time; a lost race would end the lineage
				l.mu.Lock()
				t0 := time.Now()
				pair, err := engine.Refresh(ctx, l.refresh)
				d := time.Since(t0)
				if err == nil {
					l.access, l.refresh = pair.AccessToken, pair.RefreshToken
				} else {
					atomic.AddInt64(&failures, 1)
				}
				l.mu.Unlock()

				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures)
}

type raceStats struct {
	tokens int
	single int
	multi  int
	none   int
}

func runRacePhase(ctx context.Context, engine *goSession.Engine, tokens, racers int) raceStats {
	out := raceStats{tokens: tokens}
	for i := 0; i < tokens; i++ {
		pair, err := engine.Login(ctx, "race-"+strconv.Itoa(i))
		if err != nil {
			fmt.Fprintf(os.Stderr, "race login failed: %v\n", err)
			os.Exit(1)
		}

		var (
			wg      sync.WaitGroup
			winners int64
			gate    = make(chan struct{})
		)
		for j := 0; j < racers; j++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-gate
				_, err := engine.Refresh(ctx, pair.RefreshToken)
				switch {
				case err == nil:
					atomic.AddInt64(&winners, 1)
				case !errors.Is(err, goSession.ErrTokenReuseOrExpired):
					fmt.Fprintf(os.Stderr, "race refresh: %v\n", err)
				}
			}()
		}
		close(gate)
		wg.Wait()

		switch winners {
		case 1:
			out.single++
		case 0:
			out.none++
		default:
			out.multi++
		}
	}
	return out
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
