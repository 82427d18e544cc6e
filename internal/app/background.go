package app

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const keepAliveTimeout = 10 * time.Second

type sweeper interface {
	Sweep(now time.Time) int
}

// runJanitor drops expired OTP sessions from the in-memory store until ctx ends.
func runJanitor(ctx context.Context, store sweeper, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := store.Sweep(now); n > 0 {
				slog.Debug("[janitor] expired sessions removed", "count", n)
			}
		}
	}
}

// runKeepAlive pings target every interval so free-tier hosts do not idle the
// process out. Failures are logged and never stop the loop.
func runKeepAlive(ctx context.Context, target string, interval time.Duration) {
	if interval <= 0 {
		return
	}
	client := &http.Client{Timeout: keepAliveTimeout}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ping(ctx, client, target)
		}
	}
}

func ping(ctx context.Context, client *http.Client, target string) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		slog.Warn("[keepalive] bad url", "url", target, "error", err)
		return
	}
	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() == nil {
			slog.Warn("[keepalive] ping failed", "url", target, "error", err)
		}
		return
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	slog.Debug("[keepalive] ping", "url", target, "status", resp.StatusCode)
}
