package grpcchannel

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/jhump/protoreflect/desc"
	"github.com/jhump/protoreflect/dynamic"
	"github.com/jhump/protoreflect/dynamic/grpcdynamic"
	"google.golang.org/grpc"

	"github.com/shhac/soapbridge/internal/channel"
	"github.com/shhac/soapbridge/internal/domain"
	apperrors "github.com/shhac/soapbridge/internal/errors"
)

// Channel performs one late-bound call through a dynamic stub. Abort cancels
// the in-flight exchange; it is safe to call concurrently with Invoke.
type Channel struct {
	stub    grpcdynamic.Stub
	methods map[string]*desc.MethodDescriptor
	cfg     domain.TransportConfig
	logger  *slog.Logger

	mu     sync.Mutex
	state  channel.State
	cancel context.CancelFunc
}

func newChannel(conn grpc.ClientConnInterface, methods map[string]*desc.MethodDescriptor, cfg domain.TransportConfig, logger *slog.Logger) *Channel {
	return &Channel{
		stub:    grpcdynamic.NewStub(conn),
		methods: methods,
		cfg:     cfg,
		logger:  logger,
		state:   channel.StateCreated,
	}
}

// State returns the channel's lifecycle state.
func (c *Channel) State() channel.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Invoke dispatches the operation with the bound arguments. The argument
// list is assembled into the method's request message by field name.
func (c *Channel) Invoke(ctx context.Context, op domain.Operation, args []any) (any, error) {
	md, ok := c.methods[strings.ToLower(op.Name)]
	if !ok {
		return nil, &apperrors.TransportError{
			Op:  "invoke",
			Err: fmt.Errorf("operation %s not exposed by remote contract", op.Name),
		}
	}

	var (
		callCtx context.Context
		cancel  context.CancelFunc
	)
	if c.cfg.CallTimeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, c.cfg.CallTimeout)
	} else {
		callCtx, cancel = context.WithCancel(ctx)
	}

	c.mu.Lock()
	if c.state != channel.StateCreated {
		state := c.state
		c.mu.Unlock()
		cancel()
		return nil, &apperrors.TransportError{
			Op:  "invoke",
			Err: fmt.Errorf("channel is %s, channels serve a single call", state),
		}
	}
	c.state = channel.StateCalling
	c.cancel = cancel
	c.mu.Unlock()

	reqMsg, err := c.requestMessage(md, op, args)
	if err != nil {
		c.fault()
		return nil, &apperrors.TransportError{Op: "invoke", Err: err}
	}

	c.logger.Debug("invoking RPC",
		slog.String("method", md.GetFullyQualifiedName()))

	respMsg, err := c.stub.InvokeRpc(callCtx, md, reqMsg)
	if err != nil {
		c.fault()
		return nil, apperrors.ClassifyRPC(err)
	}

	if op.Returns == domain.KindNone {
		return nil, nil
	}
	return decodeResponse(respMsg)
}

// requestMessage builds the dynamic request message from the bound argument
// list, matching parameters to message fields by name via the JSON codec.
func (c *Channel) requestMessage(md *desc.MethodDescriptor, op domain.Operation, args []any) (*dynamic.Message, error) {
	doc := make(map[string]any, len(op.Params))
	for i, p := range op.Params {
		if i >= len(args) || args[i] == nil {
			continue
		}
		doc[p.Name] = args[i]
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode request document: %w", err)
	}

	reqMsg := dynamic.NewMessage(md.GetInputType())
	if err := reqMsg.UnmarshalJSON(data); err != nil {
		return nil, fmt.Errorf("build request message: %w", err)
	}
	return reqMsg, nil
}

// decodeResponse converts the dynamic response message to a JSON-serializable
// value.
func decodeResponse(respMsg any) (any, error) {
	dm, ok := respMsg.(*dynamic.Message)
	if !ok {
		return nil, &apperrors.TransportError{
			Op:  "invoke",
			Err: fmt.Errorf("unexpected response message type %T", respMsg),
		}
	}

	data, err := dm.MarshalJSON()
	if err != nil {
		return nil, &apperrors.TransportError{
			Op:  "invoke",
			Err: fmt.Errorf("decode response message: %w", err),
		}
	}

	var result any
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, &apperrors.TransportError{
			Op:  "invoke",
			Err: fmt.Errorf("decode response document: %w", err),
		}
	}
	return result, nil
}

// Close performs the orderly shutdown of a healthy channel. The underlying
// connection belongs to the factory, so closing releases only per-call
// resources.
func (c *Channel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Terminal() {
		return nil
	}
	if c.state == channel.StateFaulted {
		return fmt.Errorf("channel is faulted, orderly close refused")
	}
	c.release()
	c.state = channel.StateClosed
	return nil
}

// Abort hard-terminates the channel, cancelling any in-flight exchange.
// It never reports an error.
func (c *Channel) Abort() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Terminal() {
		return
	}
	c.release()
	c.state = channel.StateAborted
}

// fault marks the channel faulted after a failed exchange. Terminal states
// are preserved (an abort may already have raced the failure in).
func (c *Channel) fault() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Terminal() {
		return
	}
	c.state = channel.StateFaulted
}

// release cancels the per-call context. Callers hold c.mu.
func (c *Channel) release() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}
