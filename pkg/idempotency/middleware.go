// Package idempotency replays the stored response of a mutating HTTP request
// when a client retries it with the same Idempotency-Key.
package idempotency

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/acharyaPawan/ecommerce-platform-sub001/pkg/logger"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	HeaderKey      = "Idempotency-Key"
	HeaderReplayed = "Idempotent-Replayed"

	inFlight = "in-flight"
)

type record struct {
	Status      int    `json:"status"`
	ContentType string `json:"contentType,omitempty"`
	Body        []byte `json:"body"`
}

type Middleware struct {
	client  redis.UniversalClient
	ttl     time.Duration
	lockTTL time.Duration
	logger  *zap.Logger
}

func New(client redis.UniversalClient, ttl time.Duration, l *zap.Logger) *Middleware {
	return &Middleware{client: client, ttl: ttl, lockTTL: 30 * time.Second, logger: l}
}

func redisKey(r *http.Request, key string) string {
	return fmt.Sprintf("idempotency:%s:%s:%s", r.Method, r.URL.Path, key)
}

// Handler wraps next. Requests without the header, and safe methods, pass through.
// Retryable answers are not stored so the client can retry them.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get(HeaderKey)
		if key == "" || r.Method == http.MethodGet || r.Method == http.MethodHead {
			next.ServeHTTP(w, r)
			return
		}
		ctx := r.Context()
		rk := redisKey(r, key)

		acquired, err := m.client.SetNX(ctx, rk, inFlight, m.lockTTL).Result()
		if err != nil {
			logger.Warn(ctx, m.logger, "idempotency store unavailable, passing through", zap.Error(err))
			next.ServeHTTP(w, r)
			return
		}

		if !acquired {
			m.replay(w, r, rk)
			return
		}

		rec := &recorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		if retryable(rec.status) {
			if err := m.client.Del(ctx, rk).Err(); err != nil {
				logger.Warn(ctx, m.logger, "idempotency key release failed", zap.Error(err))
			}
			return
		}

		data, err := json.Marshal(record{
			Status:      rec.status,
			ContentType: rec.Header().Get("Content-Type"),
			Body:        rec.body.Bytes(),
		})
		if err == nil {
			err = m.client.Set(ctx, rk, data, m.ttl).Err()
		}
		if err != nil {
			logger.Warn(ctx, m.logger, "idempotency response not stored", zap.Error(err))
		}
	})
}

// retryable covers server errors and the answers a client resolves by retrying
// after a fresh read or a pause.
func retryable(status int) bool {
	return status >= http.StatusInternalServerError ||
		status == http.StatusConflict ||
		status == http.StatusTooManyRequests
}

func (m *Middleware) replay(w http.ResponseWriter, r *http.Request, rk string) {
	raw, err := m.client.Get(r.Context(), rk).Bytes()
	if errors.Is(err, redis.Nil) || string(raw) == inFlight {
		writeError(w, http.StatusConflict, "request with this idempotency key is in progress", "IDEMPOTENCY_IN_FLIGHT")
		return
	}
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "idempotency store unavailable", "DEPENDENCY_FAILURE")
		return
	}

	var rec record
	if err := json.Unmarshal(raw, &rec); err != nil {
		writeError(w, http.StatusInternalServerError, "corrupt idempotency record", "INTERNAL")
		return
	}
	if rec.ContentType != "" {
		w.Header().Set("Content-Type", rec.ContentType)
	}
	w.Header().Set(HeaderReplayed, "true")
	w.WriteHeader(rec.Status)
	_, _ = w.Write(rec.Body)
}

type recorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
	body        bytes.Buffer
}

func (r *recorder) WriteHeader(code int) {
	if !r.wroteHeader {
		r.status = code
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *recorder) Write(b []byte) (int, error) {
	r.wroteHeader = true
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

func writeError(w http.ResponseWriter, status int, msg, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error":     msg,
		"code":      code,
		"retryable": status == http.StatusConflict || status == http.StatusServiceUnavailable,
	})
}
