package ssestream

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hatsunemiku3939/ssestream/pkg/jsonschema"
	"github.com/hatsunemiku3939/ssestream/types"
)

func collect(t *testing.T, src Source) ([]string, []error) {
	t.Helper()
	var (
		vals []string
		errs []error
	)
	for i := 0; i < 100; i++ {
		v, err := src.Next(context.Background())
		if errors.Is(err, io.EOF) {
			return vals, errs
		}
		if err != nil {
			errs = append(errs, err)
			continue
		}
		vals = append(vals, v)
	}
	t.Fatal("source did not terminate")
	return nil, nil
}

func TestSliceSource(t *testing.T) {
	in := []string{"a", "b"}
	src := NewSliceSource(in...)
	in[0] = "mutated"

	vals, errs := collect(t, src)
	assert.Equal(t, []string{"a", "b"}, vals)
	assert.Empty(t, errs)

	_, err := src.Next(context.Background())
	assert.ErrorIs(t, err, io.EOF, "exhaustion is sticky")
}

func TestFailAt(t *testing.T) {
	boom := errors.New("boom")
	src := FailAt(NewSliceSource("0", "1", "2"), 1, boom)

	v, err := src.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "0", v)

	_, err = src.Next(context.Background())
	assert.ErrorIs(t, err, boom)

	vals, errs := collect(t, src)
	assert.Equal(t, []string{"1", "2"}, vals)
	assert.Empty(t, errs)
}

func TestParseInt(t *testing.T) {
	item, err := ParseInt("12")
	require.NoError(t, err)
	assert.Equal(t, 12, item)

	_, err = ParseInt("A")
	assert.EqualError(t, err, `strconv.Atoi: parsing "A": invalid syntax`)
}

func TestJSONSchemaTransform(t *testing.T) {
	_, err := JSONSchemaTransform(`{"type": "invalid"`)
	assert.ErrorIs(t, err, jsonschema.ErrInvalidSchema)

	tr, err := JSONSchemaTransform(`{"type": "object", "required": ["id"]}`)
	require.NoError(t, err)

	item, err := tr(`{"id": "x"}`)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"id": "x"}, item)

	_, err = tr(`{}`)
	assert.ErrorIs(t, err, jsonschema.ErrSchemaValidationFailed)
}

func TestTransformApplyRecoversPanic(t *testing.T) {
	var fn Transform = func(string) (types.Item, error) { panic("nope") }

	item, err := fn.apply("x")
	assert.Nil(t, item)
	assert.ErrorIs(t, err, ErrTransformPanic)
	assert.Contains(t, err.Error(), "nope")
}
