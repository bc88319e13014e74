// Package contract implements the registry mapping logical service names to
// their callable operations. The registry is built once from discovered
// contract definitions and is read-only afterwards, so concurrent readers
// need no synchronization.
package contract

import (
	"log/slog"
	"sort"
	"strings"

	"github.com/shhac/soapbridge/internal/domain"
)

// Service is a frozen view of one bridgeable service: its declared name, the
// identity of the contract it fronts, and its operations grouped into
// overload sets.
type Service struct {
	Name     string
	Contract string

	// overloads are keyed by lower-cased operation name; each set preserves
	// declaration order.
	overloads map[string][]domain.Operation
}

// Overloads returns the overload set for an operation, matched
// case-insensitively. The returned slice must not be mutated.
func (s *Service) Overloads(operation string) ([]domain.Operation, bool) {
	ops, ok := s.overloads[strings.ToLower(operation)]
	return ops, ok
}

// Operations returns the sorted operation names of this service.
func (s *Service) Operations() []string {
	names := make([]string, 0, len(s.overloads))
	for _, set := range s.overloads {
		names = append(names, set[0].Name)
	}
	sort.Strings(names)
	return names
}

// Registry holds every discovered service, looked up case-insensitively by
// declared name.
type Registry struct {
	services map[string]*Service
}

// Discover builds a registry from the given contract definitions. Definitions
// not marked bridgeable, or malformed ones (empty service name, no
// operations), are excluded without failing the discovery as a whole. When
// two bridgeable definitions declare the same service name the first wins.
//
// Discovery is expected to run once at process start; the result is immutable.
func Discover(defs []domain.ContractDefinition, logger *slog.Logger) *Registry {
	r := &Registry{services: make(map[string]*Service, len(defs))}

	for _, def := range defs {
		if !def.Bridgeable {
			continue
		}
		if def.Service == "" || len(def.Operations) == 0 {
			logger.Warn("excluding malformed contract definition",
				slog.String("service", def.Service),
				slog.String("contract", def.Contract),
			)
			continue
		}

		key := strings.ToLower(def.Service)
		if _, exists := r.services[key]; exists {
			logger.Warn("duplicate service name, keeping first definition",
				slog.String("service", def.Service),
				slog.String("contract", def.Contract),
			)
			continue
		}

		svc := &Service{
			Name:      def.Service,
			Contract:  def.Contract,
			overloads: make(map[string][]domain.Operation),
		}
		for _, op := range def.Operations {
			if op.Name == "" {
				logger.Warn("excluding unnamed operation",
					slog.String("service", def.Service))
				continue
			}
			opKey := strings.ToLower(op.Name)
			svc.overloads[opKey] = append(svc.overloads[opKey], op)
		}
		if len(svc.overloads) == 0 {
			logger.Warn("excluding contract with no usable operations",
				slog.String("service", def.Service))
			continue
		}

		r.services[key] = svc
		logger.Debug("registered service",
			slog.String("service", def.Service),
			slog.String("contract", def.Contract),
			slog.Int("operations", len(svc.overloads)),
		)
	}

	return r
}

// Service returns the service registered under the given name, matched
// case-insensitively.
func (r *Registry) Service(name string) (*Service, bool) {
	svc, ok := r.services[strings.ToLower(name)]
	return svc, ok
}

// Services returns the sorted names of all registered services.
func (r *Registry) Services() []string {
	names := make([]string, 0, len(r.services))
	for _, svc := range r.services {
		names = append(names, svc.Name)
	}
	sort.Strings(names)
	return names
}
