// Package bind turns a loosely-typed request document into a concrete,
// type-matched argument list for a declared operation, and picks the best
// overload when several share a name. Everything here is pure computation:
// no I/O, no hidden state, identical inputs give identical outputs.
package bind

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shhac/soapbridge/internal/contract"
	"github.com/shhac/soapbridge/internal/domain"
	apperrors "github.com/shhac/soapbridge/internal/errors"
)

// Resolution is the outcome of resolving an operation against a document:
// the chosen overload, its fully bound argument list (one entry per declared
// parameter, in declaration order), and the match score.
type Resolution struct {
	Operation domain.Operation
	Arguments []any
	Score     int
}

// Resolve looks up the named operation on the service (case-insensitively)
// and binds the document against each of its overloads.
//
// Scoring rewards explicitly matched fields: a parameter filled from the
// document counts one point, a defaulted parameter counts nothing. The
// overload with the strictly highest score wins; on a tie the earliest
// declared overload is kept. A conversion failure hard-fails that overload
// attempt. If every overload hard-failed or none exist for the document's
// shape, the first binding error is surfaced; a missing field alone never
// causes a failure.
func Resolve(svc *contract.Service, operation string, document any) (*Resolution, error) {
	overloads, ok := svc.Overloads(operation)
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", apperrors.ErrOperationNotFound, svc.Name, operation)
	}

	doc, err := documentObject(svc.Name, overloads[0].Name, document)
	if err != nil {
		return nil, err
	}

	var (
		best     *Resolution
		firstErr error
	)
	for _, op := range overloads {
		args, score, err := bindArguments(svc.Name, op, doc)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if best == nil || score > best.Score {
			best = &Resolution{Operation: op, Arguments: args, Score: score}
		}
	}

	if best == nil {
		if firstErr != nil {
			return nil, firstErr
		}
		return nil, fmt.Errorf("%w: %s.%s", apperrors.ErrNoMatchingOverload, svc.Name, operation)
	}
	return best, nil
}

// documentObject enforces the structural requirement: the request document
// must be an object-shaped key→value map (or absent, which binds like an
// empty object).
func documentObject(service, operation string, document any) (map[string]any, error) {
	switch doc := document.(type) {
	case nil:
		return nil, nil
	case map[string]any:
		return doc, nil
	default:
		return nil, &apperrors.BindingError{
			Service:   service,
			Operation: operation,
			Kind:      domain.KindObject.String(),
			Value:     document,
			Reason:    "request document is not a JSON object",
		}
	}
}

// bindArguments produces the argument list for one overload. Parameters whose
// field is present in the document are converted (a failed conversion aborts
// the whole attempt); absent parameters take their kind's zero value and do
// not score.
func bindArguments(service string, op domain.Operation, doc map[string]any) ([]any, int, error) {
	args := make([]any, len(op.Params))
	score := 0

	for i, p := range op.Params {
		value, found := lookupField(doc, p.Name)
		if !found {
			args[i] = p.Kind.ZeroValue()
			continue
		}

		converted, err := convert(value, p.Kind)
		if err != nil {
			return nil, 0, &apperrors.BindingError{
				Service:   service,
				Operation: op.Name,
				Field:     p.Name,
				Kind:      p.Kind.String(),
				Value:     value,
				Reason:    err.Error(),
			}
		}
		args[i] = converted
		score++
	}

	return args, score, nil
}

// lookupField finds a document field by parameter name, preferring an exact
// match and falling back to a case-insensitive scan.
func lookupField(doc map[string]any, name string) (any, bool) {
	if v, ok := doc[name]; ok {
		return v, true
	}
	for k, v := range doc {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return nil, false
}

// convert coerces a decoded JSON value into the parameter's semantic kind.
// A JSON null converts to the kind's zero value (the field was explicitly
// supplied, so it still scores as a match).
func convert(value any, kind domain.Kind) (any, error) {
	if value == nil {
		return kind.ZeroValue(), nil
	}

	switch kind {
	case domain.KindString:
		if s, ok := value.(string); ok {
			return s, nil
		}
		return nil, fmt.Errorf("expected string, got %T", value)

	case domain.KindInt:
		return convertInt(value)

	case domain.KindFloat:
		return convertFloat(value)

	case domain.KindBool:
		switch v := value.(type) {
		case bool:
			return v, nil
		case string:
			b, err := strconv.ParseBool(v)
			if err != nil {
				return nil, fmt.Errorf("not a boolean: %q", v)
			}
			return b, nil
		}
		return nil, fmt.Errorf("expected bool, got %T", value)

	case domain.KindBytes:
		s, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("expected base64 string, got %T", value)
		}
		b, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return nil, fmt.Errorf("invalid base64: %v", err)
		}
		return b, nil

	case domain.KindTime:
		s, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("expected RFC 3339 string, got %T", value)
		}
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return nil, fmt.Errorf("invalid timestamp: %v", err)
		}
		return t, nil

	case domain.KindObject:
		if m, ok := value.(map[string]any); ok {
			return m, nil
		}
		return nil, fmt.Errorf("expected object, got %T", value)

	case domain.KindList:
		if l, ok := value.([]any); ok {
			return l, nil
		}
		return nil, fmt.Errorf("expected array, got %T", value)

	default:
		return nil, fmt.Errorf("unsupported parameter kind %s", kind)
	}
}

func convertInt(value any) (int64, error) {
	switch v := value.(type) {
	case float64:
		if v != math.Trunc(v) || math.Abs(v) >= 1<<53 {
			return 0, fmt.Errorf("not an integer: %v", v)
		}
		return int64(v), nil
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, fmt.Errorf("not an integer: %q", v)
		}
		return n, nil
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("not an integer: %q", v)
		}
		return n, nil
	}
	return 0, fmt.Errorf("expected integer, got %T", value)
}

func convertFloat(value any) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, fmt.Errorf("not a number: %q", v)
		}
		return f, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, fmt.Errorf("not a number: %q", v)
		}
		return f, nil
	}
	return 0, fmt.Errorf("expected number, got %T", value)
}
