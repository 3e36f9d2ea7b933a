package session

import (
	"context"
	"fmt"

	"github.com/acme/inbound-call-desk/internal/repository"
	apperrors "github.com/acme/inbound-call-desk/pkg/errors"
)

// Identity is the authenticated caller of a presence request.
type Identity struct {
	SessionID string
	WorkerSID string
}

// Resolver maps request credentials to a session identity. Session issuance
// is external; this service only consumes the result.
type Resolver interface {
	Resolve(ctx context.Context, sessionID, workerSID string) (Identity, error)
}

// GatewayResolver trusts the identity headers set by the auth gateway in
// front of this service and verifies the worker against the roster.
type GatewayResolver struct {
	workers repository.WorkerRepository
}

// NewGatewayResolver builds a resolver backed by the worker roster.
func NewGatewayResolver(workers repository.WorkerRepository) *GatewayResolver {
	return &GatewayResolver{workers: workers}
}

// Resolve validates the forwarded identity.
func (r *GatewayResolver) Resolve(ctx context.Context, sessionID, workerSID string) (Identity, error) {
	if sessionID == "" || workerSID == "" {
		return Identity{}, fmt.Errorf("%w: missing session identity", apperrors.ErrValidation)
	}
	if _, err := r.workers.Get(ctx, workerSID); err != nil {
		return Identity{}, err
	}
	return Identity{SessionID: sessionID, WorkerSID: workerSID}, nil
}
