package bind_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shhac/soapbridge/internal/bind"
	"github.com/shhac/soapbridge/internal/contract"
	"github.com/shhac/soapbridge/internal/domain"
	apperrors "github.com/shhac/soapbridge/internal/errors"
	"github.com/shhac/soapbridge/internal/logging"
)

func testService(t *testing.T, ops ...domain.Operation) *contract.Service {
	t.Helper()
	reg := contract.Discover([]domain.ContractDefinition{{
		Service:    "calc",
		Contract:   "test.Calculator",
		Bridgeable: true,
		Operations: ops,
	}}, logging.NewNopLogger())
	svc, ok := reg.Service("calc")
	require.True(t, ok)
	return svc
}

func intParam(name string) domain.Parameter {
	return domain.Parameter{Name: name, Kind: domain.KindInt}
}

func strParam(name string) domain.Parameter {
	return domain.Parameter{Name: name, Kind: domain.KindString}
}

func TestResolve_OverloadScoring(t *testing.T) {
	short := domain.Operation{Name: "F", Params: []domain.Parameter{intParam("a")}, Returns: domain.KindInt}
	long := domain.Operation{Name: "F", Params: []domain.Parameter{intParam("a"), strParam("b")}, Returns: domain.KindInt}
	svc := testService(t, short, long)

	t.Run("one explicit field prefers first declared on tie", func(t *testing.T) {
		res, err := bind.Resolve(svc, "F", map[string]any{"a": float64(1)})
		require.NoError(t, err)
		assert.Equal(t, 1, res.Score)
		assert.Len(t, res.Operation.Params, 1)
		assert.Equal(t, []any{int64(1)}, res.Arguments)
	})

	t.Run("two explicit fields pick the wider overload", func(t *testing.T) {
		res, err := bind.Resolve(svc, "F", map[string]any{"a": float64(1), "b": "x"})
		require.NoError(t, err)
		assert.Equal(t, 2, res.Score)
		assert.Len(t, res.Operation.Params, 2)
		assert.Equal(t, []any{int64(1), "x"}, res.Arguments)
	})

	t.Run("empty document default-fills the first overload", func(t *testing.T) {
		res, err := bind.Resolve(svc, "F", map[string]any{})
		require.NoError(t, err)
		assert.Equal(t, 0, res.Score)
		assert.Len(t, res.Operation.Params, 1)
		assert.Equal(t, []any{int64(0)}, res.Arguments)
	})
}

func TestResolve_OperationLookupIsCaseInsensitive(t *testing.T) {
	svc := testService(t, domain.Operation{Name: "Add", Params: []domain.Parameter{intParam("a")}})

	res, err := bind.Resolve(svc, "ADD", map[string]any{"a": float64(3)})
	require.NoError(t, err)
	assert.Equal(t, "Add", res.Operation.Name)
}

func TestResolve_FieldMatchingIsCaseInsensitive(t *testing.T) {
	svc := testService(t, domain.Operation{Name: "F", Params: []domain.Parameter{intParam("a")}})

	res, err := bind.Resolve(svc, "F", map[string]any{"A": float64(1)})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Score)
	assert.Equal(t, []any{int64(1)}, res.Arguments)
}

func TestResolve_UnknownOperation(t *testing.T) {
	svc := testService(t, domain.Operation{Name: "F"})

	_, err := bind.Resolve(svc, "G", map[string]any{})
	require.ErrorIs(t, err, apperrors.ErrOperationNotFound)
}

func TestResolve_ConversionFailureIsABindingError(t *testing.T) {
	svc := testService(t, domain.Operation{Name: "F", Params: []domain.Parameter{intParam("a")}})

	_, err := bind.Resolve(svc, "F", map[string]any{"a": "not-a-number"})
	var bindErr *apperrors.BindingError
	require.ErrorAs(t, err, &bindErr)
	assert.Equal(t, "a", bindErr.Field)
	assert.Equal(t, "int", bindErr.Kind)
}

func TestResolve_HardFailedOverloadIsExcluded(t *testing.T) {
	asInt := domain.Operation{Name: "F", Params: []domain.Parameter{intParam("a")}}
	asString := domain.Operation{Name: "F", Params: []domain.Parameter{strParam("a")}}
	svc := testService(t, asInt, asString)

	// The int overload hard-fails; the string overload still matches.
	res, err := bind.Resolve(svc, "F", map[string]any{"a": "x"})
	require.NoError(t, err)
	assert.Equal(t, domain.KindString, res.Operation.Params[0].Kind)
	assert.Equal(t, []any{"x"}, res.Arguments)

	// Both overloads hard-fail: the first binding error surfaces, never a
	// silent NoMatch.
	_, err = bind.Resolve(svc, "F", map[string]any{"a": []any{}})
	var bindErr *apperrors.BindingError
	require.ErrorAs(t, err, &bindErr)
}

func TestResolve_StructuralMismatch(t *testing.T) {
	svc := testService(t, domain.Operation{Name: "F", Params: []domain.Parameter{intParam("a")}})

	_, err := bind.Resolve(svc, "F", []any{"not", "an", "object"})
	var bindErr *apperrors.BindingError
	require.ErrorAs(t, err, &bindErr)
	assert.Contains(t, bindErr.Reason, "not a JSON object")
}

func TestResolve_NilDocumentBindsLikeEmptyObject(t *testing.T) {
	svc := testService(t, domain.Operation{Name: "F", Params: []domain.Parameter{intParam("a"), strParam("b")}})

	res, err := bind.Resolve(svc, "F", nil)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Score)
	assert.Equal(t, []any{int64(0), ""}, res.Arguments)
}

func TestResolve_MissingFieldsDefaultInDeclarationOrder(t *testing.T) {
	op := domain.Operation{Name: "F", Params: []domain.Parameter{
		intParam("a"),
		strParam("b"),
		{Name: "c", Kind: domain.KindBool},
	}}
	svc := testService(t, op)

	res, err := bind.Resolve(svc, "F", map[string]any{"c": true})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Score)
	assert.Equal(t, []any{int64(0), "", true}, res.Arguments)
}

func TestResolve_NullFieldCountsAsExplicitMatch(t *testing.T) {
	svc := testService(t, domain.Operation{Name: "F", Params: []domain.Parameter{intParam("a")}})

	res, err := bind.Resolve(svc, "F", map[string]any{"a": nil})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Score)
	assert.Equal(t, []any{int64(0)}, res.Arguments)
}

func TestResolve_ValueConversions(t *testing.T) {
	when := time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)
	op := domain.Operation{Name: "F", Params: []domain.Parameter{
		{Name: "s", Kind: domain.KindString},
		{Name: "i", Kind: domain.KindInt},
		{Name: "f", Kind: domain.KindFloat},
		{Name: "b", Kind: domain.KindBool},
		{Name: "raw", Kind: domain.KindBytes},
		{Name: "at", Kind: domain.KindTime},
		{Name: "obj", Kind: domain.KindObject},
		{Name: "list", Kind: domain.KindList},
	}}
	svc := testService(t, op)

	res, err := bind.Resolve(svc, "F", map[string]any{
		"s":    "hello",
		"i":    "42", // numeric strings convert
		"f":    float64(2.5),
		"b":    "true",
		"raw":  "aGk=",
		"at":   when.Format(time.RFC3339),
		"obj":  map[string]any{"k": "v"},
		"list": []any{float64(1)},
	})
	require.NoError(t, err)
	assert.Equal(t, 8, res.Score)
	assert.Equal(t, "hello", res.Arguments[0])
	assert.Equal(t, int64(42), res.Arguments[1])
	assert.Equal(t, 2.5, res.Arguments[2])
	assert.Equal(t, true, res.Arguments[3])
	assert.Equal(t, []byte("hi"), res.Arguments[4])
	bound, ok := res.Arguments[5].(time.Time)
	require.True(t, ok)
	assert.True(t, when.Equal(bound))
	assert.Equal(t, map[string]any{"k": "v"}, res.Arguments[6])
	assert.Equal(t, []any{float64(1)}, res.Arguments[7])
}

func TestResolve_RejectsLossyConversions(t *testing.T) {
	cases := []struct {
		name  string
		kind  domain.Kind
		value any
	}{
		{"fractional number to int", domain.KindInt, float64(1.5)},
		{"number to string", domain.KindString, float64(1)},
		{"word to bool", domain.KindBool, "yes-ish"},
		{"invalid base64 to bytes", domain.KindBytes, "!!not-base64!!"},
		{"invalid timestamp", domain.KindTime, "yesterday"},
		{"scalar to object", domain.KindObject, "x"},
		{"object to list", domain.KindList, map[string]any{}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := testService(t, domain.Operation{Name: "F", Params: []domain.Parameter{{Name: "a", Kind: tc.kind}}})
			_, err := bind.Resolve(svc, "F", map[string]any{"a": tc.value})
			var bindErr *apperrors.BindingError
			require.ErrorAs(t, err, &bindErr)
		})
	}
}

func TestResolve_IsPureAndIdempotent(t *testing.T) {
	svc := testService(t,
		domain.Operation{Name: "F", Params: []domain.Parameter{intParam("a")}},
		domain.Operation{Name: "F", Params: []domain.Parameter{intParam("a"), strParam("b")}},
	)
	doc := map[string]any{"a": float64(1), "b": "x"}

	first, err := bind.Resolve(svc, "F", doc)
	require.NoError(t, err)
	second, err := bind.Resolve(svc, "F", doc)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, map[string]any{"a": float64(1), "b": "x"}, doc, "document must not be mutated")
}
