package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/vbops/accessgate/pkg/authz"
	"github.com/vbops/accessgate/pkg/config"
	"github.com/vbops/accessgate/pkg/guard"
	"github.com/vbops/accessgate/pkg/limiter"
)

// headerIdentity is a demo provider that trusts an X-User-ID header. Real
// apps resolve the session against their identity store instead.
type headerIdentity struct{}

func (headerIdentity) CurrentUser(ctx context.Context, req guard.Request) (*authz.User, error) {
	id := req.Header.Get("X-User-ID")
	if id == "" {
		return nil, nil
	}
	return &authz.User{ID: id, Type: req.Header.Get("X-User-Type")}, nil
}

func newLogger(level string) *zap.Logger {
	if level == "debug" {
		l, _ := zap.NewDevelopment()
		return l
	}
	l, _ := zap.NewProduction()
	return l
}

func newStore(cfg *config.Config, logger *zap.Logger) limiter.Limiter {
	if cfg.Backend != "redis" {
		return limiter.NewMemoryLimiter()
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
	lim, err := limiter.NewRedisLimiter(client, limiter.WithPrefix(cfg.Redis.Prefix))
	if err != nil {
		logger.Fatal("redis backend unavailable", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
	}
	return lim
}

func main() {
	cfgPath := flag.String("config", "", "path to YAML config (defaults apply when omitted)")
	flag.Parse()

	cfg := config.Default()
	if *cfgPath != "" {
		loaded, err := config.Load(*cfgPath)
		if err != nil {
			panic(err)
		}
		cfg = loaded
	}

	logger := newLogger(cfg.LogLevel)
	defer logger.Sync()

	gate := guard.New(newStore(cfg, logger), headerIdentity{}, cfg.Gate(), logger)

	ping := guard.PublicAction(gate, guard.ActionMeta{Name: "ping"},
		func(ctx context.Context, in struct{}) (string, error) {
			return "pong", nil
		})

	mux := http.NewServeMux()

	mux.Handle("/", gate.PageMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "rendered %s\n", r.URL.Path)
	})))

	mux.Handle("/api/ping", gate.APIMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		out, err := ping(r.Context(), guard.Request{Path: r.URL.Path, Header: r.Header}, struct{}{})
		if err != nil {
			status := http.StatusInternalServerError
			if guard.IsRateLimited(err) {
				status = http.StatusTooManyRequests
			}
			w.WriteHeader(status)
			json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"message": out})
	})))

	mux.HandleFunc(cfg.Server.NoticePath, func(w http.ResponseWriter, r *http.Request) {
		target := r.URL.Query().Get("url")
		if target == "" {
			target = "/"
		}
		wait := r.URL.Query().Get("retryAfter")
		if wait == "" {
			wait = "1"
		}
		// the browser reloads the original destination once the block lifts
		w.Header().Set("Refresh", wait+";url="+target)
		fmt.Fprintf(w, "Too many requests. Sending you back to %s in %s seconds.\n", target, wait)
	})

	logger.Info("server listening",
		zap.String("addr", cfg.Server.ListenAddr),
		zap.String("backend", cfg.Backend))
	if err := http.ListenAndServe(cfg.Server.ListenAddr, mux); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}
