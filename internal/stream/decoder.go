// Package stream decodes the backend's server-sent event stream into typed
// event records.
package stream

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"

	"github.com/rs/zerolog"

	apierrors "github.com/diogo/agentdeck/internal/errors"
	"github.com/diogo/agentdeck/internal/models"
)

// frameDelimiter separates complete frames in the transport payload.
const frameDelimiter = "\n\n"

// dataPrefix marks frames that carry a JSON payload. Anything else
// (comments, keepalives) is discarded.
const dataPrefix = "data:"

// Event is one decoded frame from the stream. A content frame may carry any
// combination of Content, Option and Component; every other Type is a
// reasoning frame described by Content, SearchQuery and Icon.
type Event struct {
	Type        string             `json:"type"`
	Content     string             `json:"content,omitempty"`
	Option      json.RawMessage    `json:"option,omitempty"`
	Component   models.UIEventList `json:"component,omitempty"`
	SearchQuery string             `json:"search_query,omitempty"`
	Icon        string             `json:"icon,omitempty"`
}

// IsContent reports whether the event mutates the transcript rather than the
// reasoning trace.
func (e *Event) IsContent() bool {
	return e.Type == models.EventContent
}

// Decoder splits a byte stream into frames and parses each into an Event.
// The transport may deliver chunks at arbitrary boundaries; the decoded
// event sequence is the same for every fragmentation of the same bytes.
type Decoder struct {
	r       io.Reader
	buf     []byte
	pending []string
	scratch []byte
	err     error
	logger  zerolog.Logger
}

// DecoderOption configures a Decoder.
type DecoderOption func(*Decoder)

// WithLogger sets the logger used to report malformed frames.
func WithLogger(logger zerolog.Logger) DecoderOption {
	return func(d *Decoder) {
		d.logger = logger
	}
}

// NewDecoder creates a Decoder reading from r.
func NewDecoder(r io.Reader, opts ...DecoderOption) *Decoder {
	d := &Decoder{
		r:       r,
		scratch: make([]byte, 4096),
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Next returns the next decoded event. Malformed frames are logged and
// skipped. When the transport signals completion, any trailing partial
// buffer is discarded and io.EOF is returned.
func (d *Decoder) Next() (*Event, error) {
	for {
		for len(d.pending) > 0 {
			frame := d.pending[0]
			d.pending = d.pending[1:]

			if ev, ok := d.parseFrame(frame); ok {
				return ev, nil
			}
		}

		if d.err != nil {
			return nil, d.err
		}

		d.fill()
	}
}

// fill performs one transport read and splits any newly completed frames off
// the buffer. The last split segment may be a partial frame and becomes the
// new buffer.
func (d *Decoder) fill() {
	n, err := d.r.Read(d.scratch)
	if n > 0 {
		d.buf = append(d.buf, d.scratch[:n]...)

		segments := bytes.Split(d.buf, []byte(frameDelimiter))
		for _, seg := range segments[:len(segments)-1] {
			d.pending = append(d.pending, string(seg))
		}
		tail := segments[len(segments)-1]
		d.buf = append(d.buf[:0], tail...)
	}
	if err != nil {
		d.err = err
	}
}

// parseFrame parses one complete frame. Non-data frames and frames with
// malformed JSON yield (nil, false).
func (d *Decoder) parseFrame(frame string) (*Event, bool) {
	frame = strings.TrimRight(frame, "\r")

	if !strings.HasPrefix(frame, dataPrefix) {
		return nil, false
	}

	payload := strings.TrimLeft(strings.TrimPrefix(frame, dataPrefix), " \t")

	var ev Event
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		decErr := apierrors.NewDecodeError(payload, err)
		d.logger.Warn().Err(decErr).Str("frame", truncateFrame(payload)).Msg("skipping malformed frame")
		return nil, false
	}
	return &ev, true
}

// truncateFrame bounds logged frame payloads.
func truncateFrame(s string) string {
	const max = 256
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
