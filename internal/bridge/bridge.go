// Package bridge composes the registry, the overload resolver, the endpoint
// configuration, and the channel manager into the single call surface the
// ingress layer consumes.
package bridge

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shhac/soapbridge/internal/bind"
	"github.com/shhac/soapbridge/internal/channel"
	"github.com/shhac/soapbridge/internal/contract"
	"github.com/shhac/soapbridge/internal/domain"
	apperrors "github.com/shhac/soapbridge/internal/errors"
)

// EndpointResolver maps a logical service name to its remote endpoint URL.
// It is supplied by the configuration layer.
type EndpointResolver interface {
	Endpoint(service string) (string, bool)
}

// Bridge is the invocation facade.
type Bridge struct {
	registry  *contract.Registry
	endpoints EndpointResolver
	channels  *channel.Manager
	transport domain.TransportConfig
	logger    *slog.Logger
}

// New wires a bridge from its collaborators.
func New(
	registry *contract.Registry,
	endpoints EndpointResolver,
	channels *channel.Manager,
	transport domain.TransportConfig,
	logger *slog.Logger,
) *Bridge {
	return &Bridge{
		registry:  registry,
		endpoints: endpoints,
		channels:  channels,
		transport: transport,
		logger:    logger,
	}
}

// Call resolves (service, operation, document) and performs the remote call.
// Resolution, binding, and configuration errors are returned before any
// channel or factory is touched.
func (b *Bridge) Call(ctx context.Context, service, operation string, document any) (any, error) {
	svc, ok := b.registry.Service(service)
	if !ok {
		return nil, fmt.Errorf("%w: %q", apperrors.ErrServiceNotFound, service)
	}

	res, err := bind.Resolve(svc, operation, document)
	if err != nil {
		return nil, err
	}

	endpoint, ok := b.endpoints.Endpoint(svc.Name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", apperrors.ErrNotConfigured, svc.Name)
	}

	b.logger.Debug("dispatching invocation",
		slog.String("service", svc.Name),
		slog.String("operation", res.Operation.Name),
		slog.Int("score", res.Score),
		slog.String("endpoint", endpoint),
	)

	return b.channels.Invoke(ctx, svc.Contract, endpoint, b.transport, res.Operation, res.Arguments)
}

// Handle performs Call for a parsed request and packages the outcome,
// including the elapsed time, as a Response. It never returns a process-
// terminating condition; every failure is a structured error value.
func (b *Bridge) Handle(ctx context.Context, req domain.Request) domain.Response {
	start := time.Now()
	result, err := b.Call(ctx, req.Service, req.Operation, req.Document)
	return domain.Response{
		Result:   result,
		Err:      err,
		Duration: time.Since(start),
	}
}
