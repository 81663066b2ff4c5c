package ttsproto

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/murmurlabs/murmur/pkg/errorsx"
)

// maxMessageSize bounds a single frame so a corrupt length prefix
// cannot trigger an arbitrary allocation.
const maxMessageSize = 1 << 20

// WriteMessage writes one frame: a 4-byte little-endian length prefix
// followed by the payload.
func WriteMessage(w io.Writer, payload []byte) error {
	if len(payload) > maxMessageSize {
		return errorsx.New(errorsx.ReasonTTSProtocol,
			fmt.Sprintf("message of %d bytes exceeds frame limit", len(payload)))
	}
	var prefix [4]byte
	binary.LittleEndian.PutUint32(prefix[:], uint32(len(payload)))
	if _, err := w.Write(prefix[:]); err != nil {
		return errorsx.Wrap(err, errorsx.ReasonTTSProtocol)
	}
	if _, err := w.Write(payload); err != nil {
		return errorsx.Wrap(err, errorsx.ReasonTTSProtocol)
	}
	return nil
}

// ReadMessage reads one length-prefixed frame.
func ReadMessage(r io.Reader) ([]byte, error) {
	var prefix [4]byte
	if _, err := io.ReadFull(r, prefix[:]); err != nil {
		return nil, errorsx.Wrap(err, errorsx.ReasonTTSProtocol)
	}
	size := binary.LittleEndian.Uint32(prefix[:])
	if size > maxMessageSize {
		return nil, errorsx.New(errorsx.ReasonTTSProtocol,
			fmt.Sprintf("frame length %d exceeds limit", size))
	}
	payload := make([]byte, size)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, errorsx.Wrap(err, errorsx.ReasonTTSProtocol)
	}
	return payload, nil
}

// WriteCommand frames and writes one command.
func WriteCommand(w io.Writer, cmd Command) error {
	payload, err := EncodeCommand(cmd)
	if err != nil {
		return err
	}
	return WriteMessage(w, payload)
}

// ReadCommand reads and parses one command frame.
func ReadCommand(r io.Reader) (Command, error) {
	payload, err := ReadMessage(r)
	if err != nil {
		return Command{}, err
	}
	return DecodeCommand(payload)
}

// WriteResponse frames and writes one response.
func WriteResponse(w io.Writer, resp Response) error {
	payload, err := EncodeResponse(resp)
	if err != nil {
		return err
	}
	return WriteMessage(w, payload)
}

// ReadResponse reads and parses one response frame.
func ReadResponse(r io.Reader) (Response, error) {
	payload, err := ReadMessage(r)
	if err != nil {
		return Response{}, err
	}
	return DecodeResponse(payload)
}
