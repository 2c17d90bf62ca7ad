package rest

import (
	"bufio"
	"crypto/subtle"
	"fmt"
	"mime"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/abcfe/hive-wallet/common/logger"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Hijack lets /ws upgrade through the recorder.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

// LoggingMiddleware HTTP request logging middleware
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		logger.Info("Request:", r.Method, r.URL.Path, "Status:", rec.status, "Duration:", time.Since(start))
	})
}

// RecoveryMiddleware panic recovery middleware
func RecoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				logger.Error("API Panic recovered:", err)
				sendResp(w, http.StatusInternalServerError, nil, fmt.Errorf("internal server error"))
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// Guard restricts who may reach the API. Origins lists browser origins
// allowed to call it; requests carrying any other Origin are refused. Token,
// when set, must be presented as a bearer token on signing routes.
type Guard struct {
	Token   string
	Origins []string
}

// OriginMiddleware refuses browser requests from origins not in the allowlist.
// Requests without an Origin header come from local tools and pass.
func (g Guard) OriginMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && !g.allowOrigin(origin) {
			logger.Warn("Refused request from origin ", origin, " to ", r.URL.Path)
			sendResp(w, http.StatusForbidden, nil, fmt.Errorf("origin %s not allowed", origin))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (g Guard) allowOrigin(origin string) bool {
	for _, o := range g.Origins {
		if strings.EqualFold(strings.TrimRight(o, "/"), origin) {
			return true
		}
	}
	return false
}

// RequireToken wraps a signing handler with the bearer token check.
func (g Guard) RequireToken(next http.Handler) http.Handler {
	if g.Token == "" {
		return next
	}
	want := []byte("Bearer " + g.Token)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got := []byte(r.Header.Get("Authorization"))
		if subtle.ConstantTimeCompare(got, want) != 1 {
			sendResp(w, http.StatusUnauthorized, nil, fmt.Errorf("missing or invalid api token"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// JSONMiddleware only lets POST bodies declared as application/json through.
// Browsers send other content types cross-origin without a preflight.
func JSONMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
			if err != nil || mt != "application/json" {
				sendResp(w, http.StatusUnsupportedMediaType, nil, fmt.Errorf("content type must be application/json"))
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
