package tools

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoTool struct{}

func (echoTool) Schema() Schema {
	return NewSchema("echo", "Echo text").AddParam("text", "string", "Text to echo", true).Build()
}

func (echoTool) Invoke(_ context.Context, args map[string]string) (string, error) {
	if args["text"] == "fail" {
		return "", errors.New("boom")
	}
	return args["text"], nil
}

func TestRegistry_ListKeepsRegistrationOrder(t *testing.T) {
	t.Parallel()

	r := NewDefaultRegistry()
	r.Register(echoTool{})
	r.Register(echoTool{})

	names := make([]string, 0)
	for _, s := range r.List() {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{BankAccountName, "echo"}, names)
}

func TestRegistry_Invoke(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	r.Register(echoTool{})

	out, err := r.Invoke(context.Background(), "echo", map[string]string{"text": "hi"})
	require.NoError(t, err)
	assert.Equal(t, "hi", out)

	_, err = r.Invoke(context.Background(), "missing", nil)
	require.ErrorIs(t, err, ErrUnknownTool)

	_, err = r.Invoke(context.Background(), "echo", map[string]string{"text": "fail"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invoke echo")
}

func TestRegistry_CatalogSkipsUnknown(t *testing.T) {
	t.Parallel()

	r := NewDefaultRegistry()
	got := r.Catalog([]string{"nope", BankAccountName})
	require.Len(t, got, 1)
	assert.Equal(t, []string{ParamFirstName, ParamSecondName, ParamIDNumber}, got[0].Required())
}

func TestStringArgs(t *testing.T) {
	t.Parallel()

	got := StringArgs(map[string]any{
		"name":      "John",
		"id_number": float64(123456789),
		"count":     3,
		"empty":     nil,
	})
	assert.Equal(t, map[string]string{"name": "John", "id_number": "123456789", "count": "3"}, got)
}
