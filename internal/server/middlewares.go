package server

import (
	"bytes"
	"context"
	"io"
	"mime"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/xid"
	"github.com/valyala/fastjson"
	"go.uber.org/zap"

	"minichat/internal/credential"
	"minichat/internal/storage/zapadapter"
)

type contextKey int

const claimsKey contextKey = iota

func newContextWithClaims(ctx context.Context, c credential.Claims) context.Context {
	return context.WithValue(ctx, claimsKey, c)
}

func claimsFromContext(ctx context.Context) (credential.Claims, bool) {
	c, ok := ctx.Value(claimsKey).(credential.Claims)
	return c, ok
}

// statusRecorder remembers the status code written by the wrapped handler
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// enforceJSON is a middleware pre-processing each HTTP request with a body
// it checks for application/json Content-Type header and valid json body
// it also sets blank Content-Type header to application/json
func (h *handler) enforceJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// check "Content-Type" header
		contentType := r.Header.Get("Content-Type")
		if contentType != "" {
			mt, _, err := mime.ParseMediaType(contentType)
			if err != nil {
				_ = writeError(w, http.StatusBadRequest, "Malformed Content-Type header")
				return
			}

			if mt != "application/json" {
				_ = writeError(w, http.StatusUnsupportedMediaType, "Content-Type header must be application/json")
				return
			}
		} else {
			r.Header.Set("Content-Type", "application/json")
		}

		// check if provided request body is valid JSON
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
		if err != nil {
			_ = writeError(w, http.StatusBadRequest, "Can not read request body")
			return
		}

		if len(body) == 0 {
			_ = writeError(w, http.StatusBadRequest, "No body provided")
			return
		}

		if err := fastjson.ValidateBytes(body); err != nil {
			_ = writeError(w, http.StatusBadRequest, "Malformed JSON")
			return
		}

		r.Body = io.NopCloser(bytes.NewReader(body))

		next.ServeHTTP(w, r)
	})
}

// logRequests tags each request with an id, which pgx queries log alongside,
// and logs the request once it has been served
func logRequests(next http.Handler, logger *zap.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := xid.New().String()
		started := time.Now()

		ctx := zapadapter.NewContextWithID(r.Context(), id)
		w.Header().Set("X-Request-Id", id)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(ctx))

		logger.Info("http request served",
			zap.String("id", id),
			zap.String("method", r.Method),
			zap.String("uri", r.URL.RequestURI()),
			zap.String("ip", r.RemoteAddr),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(started)),
		)
	})
}

// instrument counts requests and observes latency per route template
func (h *handler) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := "unmatched"
		if current := mux.CurrentRoute(r); current != nil {
			if tpl, err := current.GetPathTemplate(); err == nil {
				route = tpl
			}
		}

		started := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		h.metrics.requests.WithLabelValues(route, r.Method, strconv.Itoa(rec.status)).Inc()
		h.metrics.duration.WithLabelValues(route, r.Method).Observe(time.Since(started).Seconds())
	})
}

// authenticate rejects requests without a valid bearer token and stores the caller's claims in the request context
func (h *handler) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			h.writeError(w, http.StatusUnauthorized, "Unauthorized access")
			return
		}

		claims, err := h.credentials.Validate(strings.TrimSpace(token))
		if err != nil {
			h.logger.Debugw("rejected token", append([]interface{}{"error", err}, fieldsOf(r.Context())...)...)
			h.writeError(w, http.StatusUnauthorized, "Unauthorized access")
			return
		}

		ctx := newContextWithClaims(r.Context(), claims)
		ctx = zapadapter.NewContextWithCaller(ctx, claims.UserID.String())

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// recordAudit writes an audit entry for the request after it has been served
func (h *handler) recordAudit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body []byte
		if r.Body != nil {
			var err error
			body, err = io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
			if err != nil {
				h.writeError(w, http.StatusBadRequest, "Can not read request body")
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))
		}

		next.ServeHTTP(w, r)

		var username string
		if claims, ok := claimsFromContext(r.Context()); ok {
			username = claims.Email
		}
		// the request context is cancelled once a handler timeout fires
		h.audit.Record(context.WithoutCancel(r.Context()), clientIP(r, h.trustProxy), username, body)
	})
}

// clientIP returns the peer address, or the first X-Forwarded-For hop when the server sits behind a trusted proxy
func clientIP(r *http.Request, trustProxy bool) string {
	if fwd := r.Header.Get("X-Forwarded-For"); trustProxy && fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// fieldsOf converts the request and caller ids bound to ctx into zap sugared key value pairs
func fieldsOf(ctx context.Context) []interface{} {
	fields := zapadapter.ContextFields(ctx)
	kv := make([]interface{}, 0, len(fields))
	for _, f := range fields {
		kv = append(kv, f)
	}
	return kv
}
