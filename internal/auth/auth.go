// Package auth guards mutating and private routes with one shared bearer secret.
package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/C-BIAS/ECO-FMM-FASTAPI/internal/apperr"
)

// Recorder receives a line for every rejected attempt.
type Recorder interface {
	Record(msg string)
}

// Gate checks credentials against the secret it was built with. The secret
// is read once at startup and never changes.
type Gate struct {
	secret []byte
	audit  Recorder
	logger *zap.Logger
}

// NewGate creates a Gate. An empty secret makes every credential fail.
// audit and logger may be nil.
func NewGate(secret string, audit Recorder, logger *zap.Logger) *Gate {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gate{
		secret: []byte(secret),
		audit:  audit,
		logger: logger,
	}
}

// Authorize returns nil iff credential equals the secret byte for byte.
// The comparison runs in constant time for equal-length inputs.
func (g *Gate) Authorize(credential string) error {
	if len(g.secret) == 0 || credential == "" {
		return apperr.Unauthorized()
	}
	if subtle.ConstantTimeCompare([]byte(credential), g.secret) != 1 {
		return apperr.Unauthorized()
	}
	return nil
}

// AuthorizeRequest checks the request's bearer token and records a rejected
// attempt in the audit log.
func (g *Gate) AuthorizeRequest(r *http.Request) error {
	err := g.Authorize(BearerToken(r))
	if err == nil {
		return nil
	}

	g.logger.Warn("unauthorized request",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.String("remote", r.RemoteAddr),
	)
	if g.audit != nil {
		g.audit.Record("Unauthorized access attempt: " + r.Method + " " + r.URL.Path)
	}
	return err
}

// bearerPrefix is the scheme and the single separating space. The scheme
// matches case-insensitively; the token after it is taken verbatim.
const bearerPrefix = "Bearer "

// BearerToken returns everything after "Bearer " in the Authorization
// header, unmodified. Returns "" if the header is absent or uses another scheme.
func BearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if len(header) <= len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return header[len(bearerPrefix):]
}
