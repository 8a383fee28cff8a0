package ssestream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/hatsunemiku3939/ssestream/pkg/jsonschema"
	"github.com/hatsunemiku3939/ssestream/types"
)

// Source is a single-pass, finite, pull-based generator of raw values.
// Next returns io.EOF once the sequence is exhausted; any other error is a
// failure to produce the value at the current position. Every call advances
// the position by one.
type Source interface {
	Next(ctx context.Context) (string, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) (string, error)

// Next calls fn.
func (fn SourceFunc) Next(ctx context.Context) (string, error) {
	return fn(ctx)
}

// SliceSource yields a fixed list of values in order.
type SliceSource struct {
	values []string
	pos    int
}

// NewSliceSource copies values into a new SliceSource.
func NewSliceSource(values ...string) *SliceSource {
	cp := make([]string, len(values))
	copy(cp, values)
	return &SliceSource{values: cp}
}

// Next returns the next value or io.EOF.
func (s *SliceSource) Next(_ context.Context) (string, error) {
	if s.pos >= len(s.values) {
		return "", io.EOF
	}
	v := s.values[s.pos]
	s.pos++
	return v, nil
}

// FailAt wraps src so that the pull at position index fails with err instead of
// yielding a value. Pulls after the failure continue from src.
func FailAt(src Source, index int, err error) Source {
	pos := 0
	return SourceFunc(func(ctx context.Context) (string, error) {
		defer func() { pos++ }()
		if pos == index {
			return "", err
		}
		return src.Next(ctx)
	})
}

// Transform converts one raw value into an Item. It must not have side effects.
type Transform func(raw string) (types.Item, error)

// Identity passes raw values through unchanged.
func Identity(raw string) (types.Item, error) {
	return raw, nil
}

// ParseInt parses each raw value as a base-10 integer.
func ParseInt(raw string) (types.Item, error) {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil, err
	}
	return n, nil
}

// JSONSchemaTransform validates each raw value against schema and decodes it.
// The schema is compiled once; an invalid schema is reported immediately.
func JSONSchemaTransform(schema string) (Transform, error) {
	v, err := jsonschema.Compile(schema)
	if err != nil {
		return nil, err
	}
	return func(raw string) (types.Item, error) {
		if err := v.Validate([]byte(raw)); err != nil {
			return nil, err
		}
		var item any
		if err := json.Unmarshal([]byte(raw), &item); err != nil {
			return nil, fmt.Errorf("failed to decode payload: %w", err)
		}
		return item, nil
	}, nil
}

// apply runs fn, converting a panic into an error so a misbehaving transform
// fails the stream instead of the host.
func (fn Transform) apply(raw string) (item types.Item, err error) {
	defer func() {
		if r := recover(); r != nil {
			item, err = nil, fmt.Errorf("%w: %v", ErrTransformPanic, r)
		}
	}()
	return fn(raw)
}
