package channel

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/shhac/soapbridge/internal/domain"
	apperrors "github.com/shhac/soapbridge/internal/errors"
)

// Manager drives the per-call channel lifecycle: obtain a shared factory from
// the cache, open a fresh channel, perform the late-bound call, then close
// the channel in an orderly way or abort it. Channels always reach a terminal
// state; none are leaked on any path.
type Manager struct {
	cache  *FactoryCache
	logger *slog.Logger
}

// NewManager creates a manager over the given factory cache.
func NewManager(cache *FactoryCache, logger *slog.Logger) *Manager {
	return &Manager{cache: cache, logger: logger}
}

// Invoke performs one remote call. Resolution/binding errors never reach
// here; every error returned is a TransportError or RemoteFault. If ctx is
// cancelled before the call completes, the channel is aborted promptly
// without waiting for the transport's own timeout.
func (m *Manager) Invoke(
	ctx context.Context,
	contract, endpoint string,
	cfg domain.TransportConfig,
	op domain.Operation,
	args []any,
) (any, error) {
	inv := &invocation{
		id:       uuid.NewString(),
		contract: contract,
		endpoint: endpoint,
		op:       op,
		args:     args,
	}
	inv.logger = m.logger.With(
		slog.String("invocation", inv.id),
		slog.String("contract", contract),
		slog.String("endpoint", endpoint),
		slog.String("operation", op.Name),
	)

	factory, err := m.cache.GetOrCreate(contract, endpoint, cfg)
	if err != nil {
		return nil, &apperrors.TransportError{Op: "open", Err: err}
	}

	// Every invocation gets a new channel; only factories are shared.
	ch, err := factory.NewChannel()
	if err != nil {
		inv.logger.Error("failed to open channel", slog.Any("error", err))
		return nil, &apperrors.TransportError{Op: "open", Err: err}
	}
	inv.channel = ch

	return inv.run(ctx)
}

// invocation is the ephemeral per-call state: the bound arguments, the
// channel serving the call, and its outcome. It is owned exclusively by one
// call and destroyed when the call completes.
type invocation struct {
	id       string
	contract string
	endpoint string
	op       domain.Operation
	args     []any
	channel  RemoteChannel
	logger   *slog.Logger
}

func (inv *invocation) run(ctx context.Context) (any, error) {
	start := time.Now()

	// Cancellation must hard-abort the channel rather than wait for a
	// graceful shutdown. The watcher is released once the call returns.
	watcherDone := make(chan struct{})
	defer close(watcherDone)
	go func() {
		select {
		case <-ctx.Done():
			inv.logger.Info("cancellation signalled, aborting channel",
				slog.Any("cause", context.Cause(ctx)))
			inv.channel.Abort()
		case <-watcherDone:
		}
	}()

	result, err := inv.channel.Invoke(ctx, inv.op, inv.args)
	if err != nil {
		// The channel is never left open on the failure path.
		inv.channel.Abort()
		err = apperrors.Classify("invoke", err)
		inv.logger.Warn("invocation failed",
			slog.Duration("duration", time.Since(start)),
			slog.String("state", inv.channel.State().String()),
			slog.Any("error", err),
		)
		return nil, err
	}

	inv.finish()
	inv.logger.Debug("invocation completed",
		slog.Duration("duration", time.Since(start)),
		slog.String("state", inv.channel.State().String()),
	)
	return result, nil
}

// finish releases the channel after a successful call: orderly close when the
// channel is healthy, abort when it is faulted or the close itself fails.
// Abort is best-effort and swallows its own errors, so finish cannot fail.
func (inv *invocation) finish() {
	if inv.channel.State() == StateFaulted {
		inv.logger.Warn("channel faulted after call, aborting")
		inv.channel.Abort()
		return
	}
	if err := inv.channel.Close(); err != nil {
		inv.logger.Warn("orderly close failed, aborting", slog.Any("error", err))
		inv.channel.Abort()
	}
}
