package ssestream

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/hatsunemiku3939/ssestream/types"
)

func TestMarshal(t *testing.T) {
	cases := []struct {
		name string
		ev   types.Event
		want string
	}{
		{"data", types.DataEvent{Payload: "42"}, "data:42\n\n"},
		{"empty data", types.DataEvent{}, "data:\n\n"},
		{"named", types.NamedEvent{Name: "error", Payload: "boom"}, "event:error\ndata:boom\n\n"},
		{"line breaks collapsed", types.DataEvent{Payload: "a\nb\r\nc"}, "data:a b c\n\n"},
		{"nil", nil, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, string(Marshal(tc.ev)))
		})
	}
}

func TestEncoder_EncodeData(t *testing.T) {
	text := NewEncoder(nil)
	assert.Equal(t, types.DataEvent{Payload: "3"}, text.EncodeData(3))
	assert.Equal(t, "text/plain", text.Format().ContentType())

	js := NewEncoder(JSONFormat{})
	assert.Equal(t, types.DataEvent{Payload: `{"a":[1,2]}`}, js.EncodeData(map[string]any{"a": []int{1, 2}}))
	assert.Equal(t, types.DataEvent{Payload: `"x"`}, js.EncodeData("x"))
	assert.Equal(t, "application/json", js.Format().ContentType())
}

func TestJSONFormat_FallsBackToQuotedText(t *testing.T) {
	assert.Equal(t, `"NaN"`, JSONFormat{}.Format(math.NaN()))
}

func TestEncoder_EncodeError(t *testing.T) {
	f := types.NewFailure(types.OriginTransform, errors.New("bad\nvalue"), 4, time.Time{})
	ev := NewEncoder(nil).EncodeError(f)

	assert.True(t, types.IsError(ev))
	assert.Equal(t, types.NamedEvent{Name: "error", Payload: "bad value"}, ev)
	assert.Equal(t, "event:error\ndata:bad value\n\n", string(Marshal(ev)))
}
