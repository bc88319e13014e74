// Command soapbridge performs a single bridged invocation: it resolves the
// target service's contracts through server reflection, binds a JSON document
// against the requested operation, performs the call, and prints the result.
//
// Usage:
//
//	soapbridge <service> <operation> ['{"field": "value"}']
//
// The document may also be piped on stdin. Configuration comes from
// SOAPBRIDGE_* environment variables; SOAPBRIDGE_ENDPOINTS must point at the
// JSON service→endpoint map.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/shhac/soapbridge/internal/bridge"
	"github.com/shhac/soapbridge/internal/channel"
	"github.com/shhac/soapbridge/internal/config"
	"github.com/shhac/soapbridge/internal/contract"
	"github.com/shhac/soapbridge/internal/domain"
	"github.com/shhac/soapbridge/internal/logging"
	"github.com/shhac/soapbridge/internal/transport/grpcchannel"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "soapbridge: %v\n", err)
		os.Exit(1)
	}
}

func run() (err error) {
	// Recover from panics so cleanup still runs
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "panic: %v\n%s", r, debug.Stack())
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	if len(os.Args) < 3 {
		return fmt.Errorf("usage: soapbridge <service> <operation> [json-document]")
	}
	service, operation := os.Args[1], os.Args[2]

	cfg := config.FromEnv()
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := logging.InitLogger(cfg.LogPath, cfg.Debug)
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	logger.Info("starting soapbridge",
		slog.String("service", service),
		slog.String("operation", operation),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	endpoints, err := config.LoadEndpoints(cfg.EndpointsPath, logger)
	if err != nil {
		return err
	}
	endpoint, ok := endpoints.Endpoint(service)
	if !ok {
		return fmt.Errorf("no endpoint configured for service %q", service)
	}

	defs, err := grpcchannel.Discover(ctx, endpoint, cfg.Transport, logger)
	if err != nil {
		return fmt.Errorf("discover contracts: %w", err)
	}
	registry := contract.Discover(defs, logger)

	cache := channel.NewFactoryCache(grpcchannel.Builder(logger), logger)
	defer func() {
		if cerr := cache.Close(); cerr != nil {
			logger.Warn("factory cache teardown reported errors", slog.Any("error", cerr))
		}
	}()

	b := bridge.New(registry, endpoints, channel.NewManager(cache, logger), cfg.Transport, logger)

	document, err := readDocument()
	if err != nil {
		return err
	}

	resp := b.Handle(ctx, domain.Request{
		Service:   service,
		Operation: operation,
		Document:  document,
	})
	if resp.Err != nil {
		return resp.Err
	}

	out, err := json.MarshalIndent(resp.Result, "", "  ")
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	fmt.Println(string(out))

	logger.Info("invocation completed", slog.Duration("duration", resp.Duration))
	return nil
}

// readDocument decodes the request document from argv, or from stdin when it
// is piped. A missing document binds like an empty object.
func readDocument() (any, error) {
	var data []byte
	if len(os.Args) > 3 {
		data = []byte(os.Args[3])
	} else if stat, err := os.Stdin.Stat(); err == nil && stat.Mode()&os.ModeCharDevice == 0 {
		data, err = io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("read document from stdin: %w", err)
		}
	}
	if len(data) == 0 {
		return nil, nil
	}

	var document any
	if err := json.Unmarshal(data, &document); err != nil {
		return nil, fmt.Errorf("parse request document: %w", err)
	}
	return document, nil
}
