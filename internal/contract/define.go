package contract

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"time"

	typetostring "github.com/samber/go-type-to-string"

	"github.com/shhac/soapbridge/internal/domain"
)

var (
	ctxType  = reflect.TypeOf((*context.Context)(nil)).Elem()
	errType  = reflect.TypeOf((*error)(nil)).Elem()
	timeType = reflect.TypeOf(time.Time{})
)

// Define builds a ContractDefinition from a compile-time-known Go interface.
// Each exported method becomes one operation. A method may take an optional
// leading context.Context followed by at most one request struct; the struct's
// exported fields become the operation's parameters (the `json` tag, when
// present, names the field). The first non-error return value determines the
// return kind.
//
// This is the typed counterpart of reflection-based discovery: both meet in
// the same registry.
func Define[T any](service string) (domain.ContractDefinition, error) {
	t := reflect.TypeOf((*T)(nil)).Elem()
	if t.Kind() != reflect.Interface {
		return domain.ContractDefinition{}, fmt.Errorf("contract type %s is not an interface", t)
	}
	if service == "" {
		return domain.ContractDefinition{}, fmt.Errorf("contract %s: empty service name", t)
	}

	def := domain.ContractDefinition{
		Service:    service,
		Contract:   typetostring.GetType[T](),
		Bridgeable: true,
	}

	for i := 0; i < t.NumMethod(); i++ {
		m := t.Method(i)
		op, err := operationFromMethod(m)
		if err != nil {
			return domain.ContractDefinition{}, fmt.Errorf("contract %s: %w", t, err)
		}
		def.Operations = append(def.Operations, op)
	}
	if len(def.Operations) == 0 {
		return domain.ContractDefinition{}, fmt.Errorf("contract %s declares no operations", t)
	}

	return def, nil
}

func operationFromMethod(m reflect.Method) (domain.Operation, error) {
	op := domain.Operation{Name: m.Name, Returns: domain.KindNone}

	in := 0
	if m.Type.NumIn() > 0 && m.Type.In(0).Implements(ctxType) {
		in = 1
	}
	switch m.Type.NumIn() - in {
	case 0:
		// No request payload, operation binds an empty document
	case 1:
		params, err := paramsFromRequest(m.Type.In(in))
		if err != nil {
			return domain.Operation{}, fmt.Errorf("operation %s: %w", m.Name, err)
		}
		op.Params = params
	default:
		return domain.Operation{}, fmt.Errorf("operation %s: expected at most one request struct", m.Name)
	}

	for i := 0; i < m.Type.NumOut(); i++ {
		out := m.Type.Out(i)
		if out.Implements(errType) {
			continue
		}
		op.Returns = kindOf(out)
		break
	}

	return op, nil
}

func paramsFromRequest(t reflect.Type) ([]domain.Parameter, error) {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("request type %s is not a struct", t)
	}

	var params []domain.Parameter
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name := f.Name
		if tag, ok := f.Tag.Lookup("json"); ok {
			tagName, _, _ := strings.Cut(tag, ",")
			if tagName == "-" {
				continue
			}
			if tagName != "" {
				name = tagName
			}
		}
		ft := f.Type
		optional := ft.Kind() == reflect.Pointer
		if optional {
			ft = ft.Elem()
		}
		params = append(params, domain.Parameter{
			Name:     name,
			Kind:     kindOf(ft),
			Optional: optional,
		})
	}
	return params, nil
}

func kindOf(t reflect.Type) domain.Kind {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == timeType {
		return domain.KindTime
	}
	switch t.Kind() {
	case reflect.String:
		return domain.KindString
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return domain.KindInt
	case reflect.Float32, reflect.Float64:
		return domain.KindFloat
	case reflect.Bool:
		return domain.KindBool
	case reflect.Slice, reflect.Array:
		if t.Elem().Kind() == reflect.Uint8 {
			return domain.KindBytes
		}
		return domain.KindList
	case reflect.Struct, reflect.Map, reflect.Interface:
		return domain.KindObject
	default:
		return domain.KindObject
	}
}
