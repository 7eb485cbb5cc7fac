package middleware

import (
	"net/http"
	"strconv"

	"github.com/akolanti/LegalRAG/internal/adapter/utils"
	"github.com/akolanti/LegalRAG/internal/config"
	"github.com/akolanti/LegalRAG/internal/metrics"
	"github.com/akolanti/LegalRAG/pkg/logger_i"
	"golang.org/x/time/rate"
)

type requestResponseStruct struct {
	writer     http.ResponseWriter
	req        *http.Request
	badRequest failureStruct
	logger     *logger_i.Logger
}

type failureStruct struct {
	isBadRequest bool
	httpCode     int
	errorMessage string
}

// Middleware runs trace injection, authentication and rate limiting in front
// of every wrapped handler.
type Middleware struct {
	authToken    string
	noAuthBypass bool
	limiter      *IPRateLimiter
	logger       *logger_i.Logger
}

func New(s config.Settings) *Middleware {
	return &Middleware{
		authToken:    s.AuthToken,
		noAuthBypass: s.NoAuthBypass,
		limiter:      NewIPRateLimiter(rate.Limit(s.RateLimit), s.RateBurst),
		logger:       logger_i.NewLogger("middleware"),
	}
}

func (m *Middleware) Wrap(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec := &metrics.HttpStatusRecorder{ResponseWriter: w, Status: http.StatusOK}
		re := m.processRequest(requestResponseStruct{req: r, writer: rec, logger: m.logger})

		if !re.badRequest.isBadRequest {
			next(rec, re.req)
		}
		metrics.HttpRequestsTotal.WithLabelValues(utils.RoutePattern(re.req), strconv.Itoa(rec.Status)).Inc()
	}
}

func (m *Middleware) processRequest(re requestResponseStruct) requestResponseStruct {
	re.logger.Debug("New request received", "method", re.req.Method, "path", re.req.URL.Path)
	for _, step := range []func(requestResponseStruct) requestResponseStruct{injectTrace, m.authenticate, m.rateLimiter} {
		re = step(re)
		if re.badRequest.isBadRequest {
			handleBadRequest(re)
			return re
		}
	}
	return re
}
