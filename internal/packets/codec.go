package packets

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
)

// MaxPacketSize bounds the declared length of an inbound frame. Anything
// larger is treated as a protocol violation rather than an allocation request.
const MaxPacketSize = 1 << 20

const headerSize = 4

// Write frames the envelope as a 4 byte big-endian length followed by the
// JSON encoding and writes the whole frame to w.
func Write(w io.Writer, env *Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshaling envelope: %w", err)
	}
	if len(data) > MaxPacketSize {
		return fmt.Errorf("packet of size %d exceeds limit", len(data))
	}

	frame := make([]byte, headerSize+len(data))
	binary.BigEndian.PutUint32(frame[:headerSize], uint32(len(data)))
	copy(frame[headerSize:], data)

	sent := 0
	for sent < len(frame) {
		n, err := w.Write(frame[sent:])
		if err != nil {
			return fmt.Errorf("writing packet: %w", err)
		}
		sent += n
	}
	return nil
}

// Read is a blocking call that only returns once the next complete frame has
// arrived on r. io.EOF is passed through untouched so callers can tell an
// orderly close from a protocol error.
func Read(r io.Reader) (*Envelope, error) {
	header := make([]byte, headerSize)
	if _, err := io.ReadFull(r, header); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("reading packet header: %w", err)
	}

	size := binary.BigEndian.Uint32(header)
	if size == 0 || size > MaxPacketSize {
		return nil, fmt.Errorf("invalid packet size %d", size)
	}

	body := make([]byte, size)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, fmt.Errorf("reading packet body: %w", err)
	}

	env := &Envelope{}
	if err := json.Unmarshal(body, env); err != nil {
		return nil, fmt.Errorf("unmarshaling envelope: %w", err)
	}
	return env, nil
}
