// Package grpcchannel implements the channel abstraction over dynamic gRPC:
// the factory owns an expensive client connection and a resolved method
// index, and every invocation gets a fresh single-call channel dispatching
// through a dynamic stub. No generated code is required; contracts are
// resolved at runtime through server reflection.
package grpcchannel

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jhump/protoreflect/desc"
	"github.com/jhump/protoreflect/grpcreflect"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/protobuf/reflect/protoregistry"

	"github.com/shhac/soapbridge/internal/channel"
	"github.com/shhac/soapbridge/internal/domain"
)

// Builder returns a channel.FactoryBuilder backed by this package, for wiring
// into the factory cache.
func Builder(logger *slog.Logger) channel.FactoryBuilder {
	return func(contract, endpoint string, cfg domain.TransportConfig) (channel.Factory, error) {
		return NewFactory(contract, endpoint, cfg, logger)
	}
}

// Factory holds the long-lived pieces shared by every call to one contract at
// one endpoint: the client connection and the method descriptor index.
type Factory struct {
	conn     *grpc.ClientConn
	contract string
	endpoint string
	cfg      domain.TransportConfig
	methods  map[string]*desc.MethodDescriptor
	logger   *slog.Logger
}

// NewFactory dials the endpoint and resolves the contract's service
// descriptor through server reflection. The contract identity must be the
// fully qualified gRPC service name.
func NewFactory(contract, endpoint string, cfg domain.TransportConfig, logger *slog.Logger) (*Factory, error) {
	conn, err := dial(endpoint, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", endpoint, err)
	}

	ctx := context.Background()
	if cfg.OpenTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.OpenTimeout)
		defer cancel()
	}

	svcDesc, err := resolveService(ctx, conn, contract)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("resolve contract %s at %s: %w", contract, endpoint, err)
	}

	methods := make(map[string]*desc.MethodDescriptor)
	for _, m := range svcDesc.GetMethods() {
		if m.IsClientStreaming() || m.IsServerStreaming() {
			logger.Debug("skipping streaming method",
				slog.String("method", m.GetFullyQualifiedName()))
			continue
		}
		methods[strings.ToLower(m.GetName())] = m
	}

	logger.Info("channel factory ready",
		slog.String("contract", contract),
		slog.String("endpoint", endpoint),
		slog.Int("methods", len(methods)),
	)

	return &Factory{
		conn:     conn,
		contract: contract,
		endpoint: endpoint,
		cfg:      cfg,
		methods:  methods,
		logger:   logger,
	}, nil
}

// NewChannel returns a fresh single-call channel sharing this factory's
// connection.
func (f *Factory) NewChannel() (channel.RemoteChannel, error) {
	return newChannel(f.conn, f.methods, f.cfg, f.logger), nil
}

// Close releases the underlying client connection.
func (f *Factory) Close() error {
	return f.conn.Close()
}

func dial(endpoint string, cfg domain.TransportConfig, logger *slog.Logger) (*grpc.ClientConn, error) {
	// Keepalive tuned for long-lived pooled connections
	kaParams := keepalive.ClientParameters{
		Time:                10 * time.Second,
		Timeout:             3 * time.Second,
		PermitWithoutStream: true,
	}

	opts := []grpc.DialOption{
		grpc.WithKeepaliveParams(kaParams),
	}

	if cfg.Scheme == "grpcs" {
		opts = append(opts, grpc.WithTransportCredentials(credentials.NewTLS(nil)))
	} else {
		opts = append(opts, grpc.WithTransportCredentials(insecure.NewCredentials()))
		logger.Warn("using insecure plaintext connection", slog.String("endpoint", endpoint))
	}

	if cfg.MaxMessageSize > 0 {
		opts = append(opts, grpc.WithDefaultCallOptions(
			grpc.MaxCallRecvMsgSize(cfg.MaxMessageSize),
			grpc.MaxCallSendMsgSize(cfg.MaxMessageSize),
		))
	}

	return grpc.NewClient(endpoint, opts...)
}

// resolveService resolves a service descriptor through server reflection,
// configured permissively so that servers with slightly broken descriptors
// still work.
func resolveService(ctx context.Context, conn *grpc.ClientConn, name string) (*desc.ServiceDescriptor, error) {
	refClient := grpcreflect.NewClientAuto(ctx, conn)
	defer refClient.Reset()

	refClient.AllowFallbackResolver(
		protoregistry.GlobalFiles, // Fall back to local well-known types
		protoregistry.GlobalTypes, // Extension types
	)
	refClient.AllowMissingFileDescriptors()

	return refClient.ResolveService(name)
}
