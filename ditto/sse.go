package ditto

import (
	"bufio"
	"io"
	"strings"
)

// maxLineBytes bounds a single line of the event stream. A registry payload
// is one data line, so this also bounds the largest accepted thing.
const maxLineBytes = 1 << 20

// Event is one decoded server-sent event block: the key/value fields that
// appeared before the terminating blank line. Lines without a colon are
// dropped during decoding.
type Event map[string]string

// EventDecoder incrementally reassembles event blocks from a
// text/event-stream body. It holds no state between events beyond the
// scanner position, so a decoder is good for exactly one stream.
type EventDecoder struct {
	scanner *bufio.Scanner
}

// NewEventDecoder wraps r in a decoder. The reader is normally an HTTP
// response body; the decoder does not close it.
func NewEventDecoder(r io.Reader) *EventDecoder {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	return &EventDecoder{scanner: scanner}
}

// Next returns the next complete event block. A block is complete only when
// its terminating blank line has been read: a partial block at stream end is
// discarded, never delivered. Returns io.EOF when the stream ends cleanly
// and the underlying read error otherwise.
func (d *EventDecoder) Next() (Event, error) {
	var block []string

	for d.scanner.Scan() {
		line := strings.TrimSpace(d.scanner.Text())
		if line != "" {
			block = append(block, line)
			continue
		}
		if len(block) == 0 {
			continue
		}

		event := Event{}
		for _, field := range block {
			if key, value, ok := strings.Cut(field, ":"); ok {
				event[strings.TrimSpace(key)] = strings.TrimSpace(value)
			}
		}
		block = nil
		if len(event) > 0 {
			return event, nil
		}
	}

	if err := d.scanner.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}
