package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
)

// EndpointMap maps logical service names to remote endpoint URLs, looked up
// case-insensitively. It implements the bridge's EndpointResolver.
type EndpointMap struct {
	entries map[string]string
}

// NewEndpointMap builds a map from explicit entries (mainly for tests).
func NewEndpointMap(entries map[string]string) *EndpointMap {
	m := &EndpointMap{entries: make(map[string]string, len(entries))}
	for name, endpoint := range entries {
		m.entries[strings.ToLower(name)] = endpoint
	}
	return m
}

// LoadEndpoints reads the service→endpoint map from a JSON file of the form
// {"serviceName": "host:port", ...}. Entries with an unparsable endpoint are
// dropped with a warning rather than failing the whole load.
func LoadEndpoints(path string, logger *slog.Logger) (*EndpointMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read endpoints file: %w", err)
	}

	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("unmarshal endpoints file %s: %w", path, err)
	}

	m := &EndpointMap{entries: make(map[string]string, len(raw))}
	for name, endpoint := range raw {
		if name == "" || endpoint == "" {
			logger.Warn("dropping empty endpoint entry", slog.String("service", name))
			continue
		}
		if _, err := url.Parse(endpoint); err != nil {
			logger.Warn("dropping unparsable endpoint",
				slog.String("service", name),
				slog.String("endpoint", endpoint),
				slog.Any("error", err),
			)
			continue
		}
		m.entries[strings.ToLower(name)] = endpoint
	}

	logger.Debug("loaded endpoint map",
		slog.String("path", path),
		slog.Int("services", len(m.entries)),
	)
	return m, nil
}

// Endpoint returns the endpoint URL configured for a service.
func (m *EndpointMap) Endpoint(service string) (string, bool) {
	endpoint, ok := m.entries[strings.ToLower(service)]
	return endpoint, ok
}
