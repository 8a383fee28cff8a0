package ssestream

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/hatsunemiku3939/ssestream/types"
)

// PayloadFormat renders an Item into the text carried by a data field.
type PayloadFormat interface {
	Format(item types.Item) string
	// ContentType is the media type of each rendered element.
	ContentType() string
}

// TextFormat renders items with their default textual form.
type TextFormat struct{}

func (TextFormat) Format(item types.Item) string {
	return fmt.Sprint(item)
}

func (TextFormat) ContentType() string { return "text/plain" }

// JSONFormat renders items as compact JSON. Values that cannot be marshaled
// fall back to a quoted JSON string of their textual form.
type JSONFormat struct{}

func (JSONFormat) Format(item types.Item) string {
	b, err := json.Marshal(item)
	if err != nil {
		return strconv.Quote(fmt.Sprint(item))
	}
	return string(b)
}

func (JSONFormat) ContentType() string { return "application/json" }

// Encoder turns items and failures into wire events. Encoding never fails.
type Encoder struct {
	format PayloadFormat
}

// NewEncoder returns an Encoder using format, or TextFormat when nil.
func NewEncoder(format PayloadFormat) *Encoder {
	if format == nil {
		format = TextFormat{}
	}
	return &Encoder{format: format}
}

// Format returns the payload format in use.
func (e *Encoder) Format() PayloadFormat {
	return e.format
}

// EncodeData wraps item in a DataEvent.
func (e *Encoder) EncodeData(item types.Item) types.Event {
	return types.DataEvent{Payload: types.Sanitize(e.format.Format(item))}
}

// EncodeError wraps f in the terminal error event.
func (e *Encoder) EncodeError(f types.Failure) types.Event {
	return types.NamedEvent{Name: types.ErrorEventName, Payload: f.Message()}
}

// Marshal renders ev in the event-stream wire format: one field per line,
// terminated by a blank line.
func Marshal(ev types.Event) []byte {
	var buf bytes.Buffer
	switch ev := ev.(type) {
	case types.DataEvent:
		writeField(&buf, "data", ev.Payload)
	case types.NamedEvent:
		writeField(&buf, "event", ev.Name)
		writeField(&buf, "data", ev.Payload)
	default:
		return nil
	}
	buf.WriteByte('\n')
	return buf.Bytes()
}

func writeField(buf *bytes.Buffer, name, value string) {
	buf.WriteString(name)
	buf.WriteByte(':')
	buf.WriteString(types.Sanitize(value))
	buf.WriteByte('\n')
}
