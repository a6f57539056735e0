package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"gridquest.gg/internal/persistence/journal"
	persistlog "gridquest.gg/internal/persistence/log"
	"gridquest.gg/internal/protocol"
	"gridquest.gg/internal/sim/engine"
	"gridquest.gg/internal/sim/rules"
	"gridquest.gg/internal/sim/tuning"
	"gridquest.gg/internal/transport/ws"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		shardID    = flag.String("shard", "shard_1", "shard id")
		configDir  = flag.String("configs", "./configs", "config directory")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		disableDB  = flag.Bool("disable_db", false, "disable the sqlite command journal")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	cat, err := rules.Load(*configDir)
	if err != nil {
		logger.Fatalf("load rules: %v", err)
	}

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Printf("tuning not found (%s); using defaults", tp)
			tune = tuning.Defaults()
		} else {
			logger.Fatalf("load tuning: %v", err)
		}
	}

	shardDir := filepath.Join(*dataDir, "shards", *shardID)
	_ = os.MkdirAll(shardDir, 0o755)

	positions := engine.NewPositions()
	eng := engine.New(engine.Config{
		ShardID:           *shardID,
		ProximityR:        tune.ProximityR,
		OfferTTLMs:        tune.OfferTTLMs,
		DefenseWindowMs:   tune.DefenseWindowMs,
		OfferRateWindowMs: tune.RateLimits.OfferWindowMs,
		OfferRateMax:      tune.RateLimits.OfferMax,
		StarterItems:      tune.StarterItems,
	}, cat, positions)

	cmdLog := persistlog.NewCommandLogger(shardDir)
	defer cmdLog.Close()
	sinks := []engine.StatusLogger{cmdLog}

	if !*disableDB {
		jnl, err := journal.Open(filepath.Join(shardDir, "journal.db"))
		if err != nil {
			logger.Fatalf("open journal: %v", err)
		}
		defer jnl.Close()
		sinks = append(sinks, jnl)

		loadCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		marks, err := jnl.Watermarks(loadCtx)
		cancel()
		if err != nil {
			logger.Fatalf("restore watermarks: %v", err)
		}
		eng.RestoreWatermarks(marks)
		logger.Printf("restored watermarks players=%d", len(marks))
	}
	eng.SetStatusLogger(multiLogger(sinks))

	ctx, cancel := signalContext()
	defer cancel()

	go func() {
		if err := eng.Run(ctx); err != nil && err != context.Canceled {
			logger.Printf("engine stopped: %v", err)
		}
	}()

	wsServer := ws.NewServer(eng, positions, ws.WelcomeParams{
		Rules: protocol.RuleDigests{
			CombatDigest:  cat.Combat.Digest,
			RecipesDigest: cat.Recipes.Digest,
		},
		Tuning: protocol.TuningParams{
			ProximityR:      tune.ProximityR,
			OfferTTLMs:      tune.OfferTTLMs,
			DefenseWindowMs: tune.DefenseWindowMs,
		},
	}, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/ws", wsServer.Handler())
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutCtx)
	}()

	logger.Printf("listening addr=%s shard=%s combat=%s recipes=%s",
		*addr, *shardID, short(cat.Combat.Digest), short(cat.Recipes.Digest))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("http: %v", err)
	}
}

// multiLogger fans one record out to every sink.
type multiLogger []engine.StatusLogger

func (m multiLogger) WriteStatus(rec engine.CommandRecord) error {
	var first error
	for _, l := range m {
		if err := l.WriteStatus(rec); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func short(digest string) string {
	if len(digest) > 12 {
		return digest[:12]
	}
	return digest
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
