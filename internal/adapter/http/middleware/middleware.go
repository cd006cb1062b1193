package middleware

import (
	"context"
	"net/http"

	"github.com/Temutjin2k/dispatch-ops/internal/domain/models"
	"github.com/Temutjin2k/dispatch-ops/pkg/logger"
)

// AuthService resolves a bearer token to the caller identity.
type AuthService interface {
	Validate(ctx context.Context, token string) (*models.Identity, error)
}

type Middleware struct {
	auth AuthService
	log  logger.Logger
}

func NewMiddleware(auth AuthService, log logger.Logger) *Middleware {
	return &Middleware{
		auth: auth,
		log:  log,
	}
}

// Chain wraps next in the full request pipeline, outermost first:
// recover, request id, logging, metrics, authentication.
func (m *Middleware) Chain(next http.Handler, serviceName string) http.Handler {
	return m.Recover(m.RequestID(m.Logging(m.Metrics(serviceName)(m.Auth(next)))))
}
