package idempotency

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"net/http"
	"time"

	dErrors "misiones/pkg/domain-errors"
	"misiones/pkg/platform/httputil"
	"misiones/pkg/requestcontext"
)

const (
	HeaderKey      = "Idempotency-Key"
	HeaderReplayed = "Idempotent-Replayed"
	maxKeyLength   = 255
)

type captureWriter struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (c *captureWriter) WriteHeader(code int) {
	if c.status == 0 {
		c.status = code
	}
	c.ResponseWriter.WriteHeader(code)
}

func (c *captureWriter) Write(b []byte) (int, error) {
	if c.status == 0 {
		c.status = http.StatusOK
	}
	c.body.Write(b)
	return c.ResponseWriter.Write(b)
}

func (c *captureWriter) Unwrap() http.ResponseWriter { return c.ResponseWriter }

// Middleware stores the first response for a request's Idempotency-Key for
// ttl and replays it for repeats. Requests without the header pass through.
// Only outcomes are stored: successes and 409 conflicts. Other client errors
// and server errors release the key so a corrected or retried request runs.
// If the store is down the request proceeds without protection.
func Middleware(store Store, ttl time.Duration, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := r.Header.Get(HeaderKey)
			if raw == "" {
				next.ServeHTTP(w, r)
				return
			}
			if len(raw) > maxKeyLength {
				httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "Idempotency-Key must be 255 characters or less"))
				return
			}
			ctx := r.Context()
			key := scopedKey(r, raw)

			stored, err := store.Reserve(ctx, key)
			switch {
			case errors.Is(err, ErrInFlight):
				httputil.WriteError(w, dErrors.New(dErrors.CodeConflict, "a request with this Idempotency-Key is still in progress"))
				return
			case err != nil:
				logger.WarnContext(ctx, "idempotency store unavailable",
					"error", err,
					"request_id", requestcontext.RequestID(ctx),
				)
				next.ServeHTTP(w, r)
				return
			case stored != nil:
				if stored.ContentType != "" {
					w.Header().Set("Content-Type", stored.ContentType)
				}
				w.Header().Set(HeaderReplayed, "true")
				w.WriteHeader(stored.Status)
				_, _ = w.Write(stored.Body)
				return
			}

			rec := &captureWriter{ResponseWriter: w}
			next.ServeHTTP(rec, r)

			status := rec.status
			if status == 0 {
				status = http.StatusOK
			}
			if !storable(status) {
				if err := store.Release(ctx, key); err != nil {
					logger.WarnContext(ctx, "failed to release idempotency key", "error", err)
				}
				return
			}
			resp := &Response{
				Status:      status,
				ContentType: rec.Header().Get("Content-Type"),
				Body:        rec.body.Bytes(),
			}
			if err := store.Complete(ctx, key, resp, ttl); err != nil {
				logger.WarnContext(ctx, "failed to store idempotent response", "error", err)
			}
		})
	}
}

// storable reports whether a status records what happened to the submission.
// A 400 or 422 says nothing about state and depends on the body the client
// will fix.
func storable(status int) bool {
	return status < http.StatusBadRequest || status == http.StatusConflict
}

// scopedKey binds the client key to the route it was sent to.
func scopedKey(r *http.Request, raw string) string {
	sum := sha256.Sum256([]byte(r.Method + " " + r.URL.Path + "\x00" + raw))
	return hex.EncodeToString(sum[:])
}
