package channel_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/shhac/soapbridge/internal/channel"
	"github.com/shhac/soapbridge/internal/domain"
)

// fakeChannel is a scriptable RemoteChannel recording its state transitions.
type fakeChannel struct {
	mu    sync.Mutex
	state channel.State

	result       any
	invokeErr    error
	closeErr     error
	faultOnReply bool // enter Faulted even though Invoke succeeds

	block   bool // block Invoke until cancellation or abort
	started chan struct{}
	aborted chan struct{}
	once    sync.Once
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{
		state:   channel.StateCreated,
		started: make(chan struct{}),
		aborted: make(chan struct{}),
	}
}

func (c *fakeChannel) setState(s channel.State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Terminal() {
		return
	}
	c.state = s
}

func (c *fakeChannel) State() channel.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *fakeChannel) Invoke(ctx context.Context, op domain.Operation, args []any) (any, error) {
	c.setState(channel.StateCalling)
	close(c.started)

	if c.block {
		// Whether the context or the abort wins the race, the transport
		// reports the exchange as cancelled.
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-c.aborted:
			return nil, context.Canceled
		}
	}

	if c.invokeErr != nil {
		c.setState(channel.StateFaulted)
		return nil, c.invokeErr
	}
	if c.faultOnReply {
		c.setState(channel.StateFaulted)
	}
	return c.result, nil
}

func (c *fakeChannel) Close() error {
	if c.closeErr != nil {
		return c.closeErr
	}
	c.setState(channel.StateClosed)
	return nil
}

func (c *fakeChannel) Abort() {
	c.setState(channel.StateAborted)
	c.once.Do(func() { close(c.aborted) })
}

// fakeFactory hands out pre-scripted channels in order and counts usage.
type fakeFactory struct {
	mu       sync.Mutex
	channels []*fakeChannel
	handed   int
	closed   atomic.Bool
}

func (f *fakeFactory) NewChannel() (channel.RemoteChannel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.handed >= len(f.channels) {
		return nil, errors.New("fake factory exhausted")
	}
	ch := f.channels[f.handed]
	f.handed++
	return ch, nil
}

func (f *fakeFactory) Close() error {
	f.closed.Store(true)
	return nil
}

// countingBuilder builds fakeFactories and counts constructions.
type countingBuilder struct {
	constructions atomic.Int64
	factories     sync.Map // key → *fakeFactory
	err           error
	nextChannels  func() []*fakeChannel
}

func (b *countingBuilder) build(contract, endpoint string, cfg domain.TransportConfig) (channel.Factory, error) {
	if b.err != nil {
		return nil, b.err
	}
	b.constructions.Add(1)

	var channels []*fakeChannel
	if b.nextChannels != nil {
		channels = b.nextChannels()
	}
	f := &fakeFactory{channels: channels}
	b.factories.Store(contract+"|"+endpoint+"|"+cfg.Signature(), f)
	return f, nil
}
