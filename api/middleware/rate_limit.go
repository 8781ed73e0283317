package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/tradelink-backend/api/responses"
	pkgerrors "github.com/angelmondragon/tradelink-backend/pkg/errors"
	"github.com/angelmondragon/tradelink-backend/pkg/logger"
)

// maxRateLimitedBody bounds how much of a body is buffered to find the
// limited field. Larger bodies are still passed on whole.
const maxRateLimitedBody = 64 << 10

// RateLimitStore counts hits per scope inside a fixed window and reports
// whether the hit is within limit.
type RateLimitStore interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// RateLimitPolicy throttles one public route per client IP and, when Field
// is set, per value of that top-level JSON body field. A zero limit turns
// the matching check off.
type RateLimitPolicy struct {
	Name     string
	Window   time.Duration
	PerIP    int
	Field    string
	PerField int
}

type rateCheck struct {
	kind    string
	subject string
	limit   int
}

func (p RateLimitPolicy) name() string {
	if n := strings.ToLower(strings.TrimSpace(p.Name)); n != "" {
		return n
	}
	return "public"
}

func (p RateLimitPolicy) enabled() bool {
	return p.Window > 0 && (p.PerIP > 0 || p.fieldEnabled())
}

func (p RateLimitPolicy) fieldEnabled() bool {
	return p.PerField > 0 && p.Field != ""
}

// scope is the counter key: "<kind>:<policy>:<subject>". Field values are
// hashed so raw references never land in Redis.
func (p RateLimitPolicy) scope(c rateCheck) string {
	return c.kind + ":" + p.name() + ":" + c.subject
}

// RateLimit enforces the policy with fixed-window counters. A nil store or
// a disabled policy leaves next untouched.
func RateLimit(policy RateLimitPolicy, store RateLimitStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if store == nil || !policy.enabled() {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			checks, err := policy.checksFor(r)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request"))
				return
			}
			for _, c := range checks {
				allowed, count, err := store.FixedWindowAllow(ctx, policy.scope(c), int64(c.limit), policy.Window)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
					return
				}
				if !allowed {
					rejectRateLimited(ctx, logg, w, policy, c, count)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// checksFor lists the counters this request increments. Reading the body
// for the field check restores it for the next handler.
func (p RateLimitPolicy) checksFor(r *http.Request) ([]rateCheck, error) {
	var checks []rateCheck
	if ip := clientIP(r); p.PerIP > 0 && ip != "" {
		checks = append(checks, rateCheck{kind: "ip", subject: ip, limit: p.PerIP})
	}
	if !p.fieldEnabled() || r.Body == nil {
		return checks, nil
	}

	head, err := io.ReadAll(io.LimitReader(r.Body, maxRateLimitedBody))
	if err != nil {
		return nil, err
	}
	r.Body = struct {
		io.Reader
		io.Closer
	}{io.MultiReader(bytes.NewReader(head), r.Body), r.Body}

	if value := stringField(head, p.Field); value != "" {
		sum := sha256.Sum256([]byte(value))
		checks = append(checks, rateCheck{kind: p.Field, subject: hex.EncodeToString(sum[:]), limit: p.PerField})
	}
	return checks, nil
}

func rejectRateLimited(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, policy RateLimitPolicy, c rateCheck, count int64) {
	retryAfter := strconv.Itoa(int(policy.Window.Round(time.Second) / time.Second))
	if logg != nil {
		logg.Warn(logg.WithFields(ctx, map[string]any{
			"policy":         policy.name(),
			"scope":          c.kind,
			"subject":        c.subject,
			"attempts":       count,
			"limit":          c.limit,
			"window_seconds": retryAfter,
		}), "rate_limit.blocked")
	}
	w.Header().Set("Retry-After", retryAfter)
	responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "rate limit exceeded"))
}

// clientIP prefers the left-most X-Forwarded-For entry, which the platform
// router sets, then X-Real-IP, then the socket peer.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		for _, part := range strings.Split(xff, ",") {
			if ip := strings.TrimSpace(part); ip != "" {
				return ip
			}
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}

func stringField(payload []byte, field string) string {
	var body map[string]json.RawMessage
	if json.Unmarshal(payload, &body) != nil {
		return ""
	}
	var value string
	if json.Unmarshal(body[field], &value) != nil {
		return ""
	}
	return strings.TrimSpace(value)
}
