// Package ipc implements the bootstrap-to-runtime wire framing.
package ipc

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/kolsys/allure-phpunit/phpunit"
)

// Frame size constants.
const (
	// MaxFrameSize is the maximum frame size (16 MiB), including length prefix.
	MaxFrameSize = 16 * 1024 * 1024
	// MaxPayloadSize is the maximum payload size (MaxFrameSize - 4 bytes).
	MaxPayloadSize = MaxFrameSize - LengthPrefixSize
	// MaxChunkSize is the maximum attachment chunk size (8 MiB raw bytes).
	MaxChunkSize = 8 * 1024 * 1024
	// LengthPrefixSize is the size of the length prefix in bytes.
	LengthPrefixSize = 4
)

// AttachmentChunkType is the type discriminant for attachment chunk frames.
const AttachmentChunkType = "attachment_chunk"

// FrameErrorKind classifies frame decoding errors.
type FrameErrorKind int

const (
	// FrameErrorPartial indicates a truncated or incomplete frame.
	FrameErrorPartial FrameErrorKind = iota
	// FrameErrorTooLarge indicates a frame exceeding MaxFrameSize.
	FrameErrorTooLarge
	// FrameErrorDecode indicates a msgpack decoding error.
	FrameErrorDecode
)

// FrameError represents a frame decoding error.
type FrameError struct {
	Kind FrameErrorKind
	Msg  string
	Err  error
}

func (e *FrameError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *FrameError) Unwrap() error {
	return e.Err
}

// IsFatal returns true if this error is fatal (terminate run).
// Partial and oversized frames leave the stream unrecoverable.
func (e *FrameError) IsFatal() bool {
	return e.Kind == FrameErrorPartial || e.Kind == FrameErrorTooLarge
}

// IsFatalFrameError returns true if the error is a fatal frame error.
func IsFatalFrameError(err error) bool {
	var frameErr *FrameError
	if errors.As(err, &frameErr) {
		return frameErr.IsFatal()
	}
	return false
}

// FrameDecoder decodes length-prefixed msgpack frames from a stream.
type FrameDecoder struct {
	reader io.Reader
}

// NewFrameDecoder creates a new frame decoder.
func NewFrameDecoder(r io.Reader) *FrameDecoder {
	return &FrameDecoder{reader: r}
}

// ReadFrame reads a single frame from the stream.
// Returns the raw payload bytes (msgpack-encoded).
//
// Errors:
//   - io.EOF: stream ended cleanly (no more frames)
//   - *FrameError with Kind=FrameErrorPartial: incomplete frame (fatal)
//   - *FrameError with Kind=FrameErrorTooLarge: frame exceeds limit (fatal)
func (d *FrameDecoder) ReadFrame() ([]byte, error) {
	// Read 4-byte big-endian length prefix
	var lengthBuf [LengthPrefixSize]byte
	_, err := io.ReadFull(d.reader, lengthBuf[:])
	if err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		// Partial read of length prefix
		return nil, &FrameError{
			Kind: FrameErrorPartial,
			Msg:  "failed to read length prefix",
			Err:  err,
		}
	}

	payloadSize := binary.BigEndian.Uint32(lengthBuf[:])

	if payloadSize > MaxPayloadSize {
		return nil, &FrameError{
			Kind: FrameErrorTooLarge,
			Msg:  fmt.Sprintf("payload size %d exceeds maximum %d", payloadSize, MaxPayloadSize),
		}
	}

	// Read payload
	payload := make([]byte, payloadSize)
	_, err = io.ReadFull(d.reader, payload)
	if err != nil {
		return nil, &FrameError{
			Kind: FrameErrorPartial,
			Msg:  "failed to read payload",
			Err:  err,
		}
	}

	return payload, nil
}

// probeFrameType extracts the "type" field from a msgpack map payload
// without decoding the other fields. Values of non-matching keys are
// skipped in place.
func probeFrameType(payload []byte) (string, error) {
	dec := msgpack.NewDecoder(bytes.NewReader(payload))
	n, err := dec.DecodeMapLen()
	if err != nil {
		return "", err
	}
	for range n {
		key, err := dec.DecodeString()
		if err != nil {
			return "", err
		}
		if key == "type" {
			return dec.DecodeString()
		}
		if err := dec.Skip(); err != nil {
			return "", err
		}
	}
	return "", nil
}

// DecodeFrame decodes a payload and returns one of *phpunit.Notification,
// *phpunit.AttachmentChunkFrame, *phpunit.HelloFrame, or
// *phpunit.GoodbyeFrame, discriminated by the type field.
func DecodeFrame(payload []byte) (any, error) {
	frameType, err := probeFrameType(payload)
	if err != nil {
		return nil, &FrameError{
			Kind: FrameErrorDecode,
			Msg:  "failed to decode frame type",
			Err:  err,
		}
	}

	switch frameType {
	case AttachmentChunkType:
		return DecodeAttachmentChunk(payload)
	case phpunit.HelloType:
		return DecodeHello(payload)
	case phpunit.GoodbyeType:
		return DecodeGoodbye(payload)
	default:
		return DecodeNotification(payload)
	}
}

// DecodeNotification decodes a payload as a lifecycle Notification.
func DecodeNotification(payload []byte) (*phpunit.Notification, error) {
	var notification phpunit.Notification
	if err := msgpack.Unmarshal(payload, &notification); err != nil {
		return nil, &FrameError{
			Kind: FrameErrorDecode,
			Msg:  "failed to decode notification",
			Err:  err,
		}
	}
	return &notification, nil
}

// DecodeAttachmentChunk decodes a payload as an AttachmentChunkFrame.
func DecodeAttachmentChunk(payload []byte) (*phpunit.AttachmentChunkFrame, error) {
	var chunk phpunit.AttachmentChunkFrame
	if err := msgpack.Unmarshal(payload, &chunk); err != nil {
		return nil, &FrameError{
			Kind: FrameErrorDecode,
			Msg:  "failed to decode attachment chunk",
			Err:  err,
		}
	}
	return &chunk, nil
}

// DecodeHello decodes a payload as a HelloFrame.
func DecodeHello(payload []byte) (*phpunit.HelloFrame, error) {
	var hello phpunit.HelloFrame
	if err := msgpack.Unmarshal(payload, &hello); err != nil {
		return nil, &FrameError{
			Kind: FrameErrorDecode,
			Msg:  "failed to decode hello frame",
			Err:  err,
		}
	}
	return &hello, nil
}

// DecodeGoodbye decodes a payload as a GoodbyeFrame.
func DecodeGoodbye(payload []byte) (*phpunit.GoodbyeFrame, error) {
	var goodbye phpunit.GoodbyeFrame
	if err := msgpack.Unmarshal(payload, &goodbye); err != nil {
		return nil, &FrameError{
			Kind: FrameErrorDecode,
			Msg:  "failed to decode goodbye frame",
			Err:  err,
		}
	}
	return &goodbye, nil
}

// EncodeFrame encodes a record as a length-prefixed msgpack frame.
// Used by the capture tooling and tests; the production emitter is the
// PHP bootstrap.
func EncodeFrame(record any) ([]byte, error) {
	payload, err := msgpack.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	if len(payload) > MaxPayloadSize {
		return nil, &FrameError{
			Kind: FrameErrorTooLarge,
			Msg:  fmt.Sprintf("payload size %d exceeds maximum %d", len(payload), MaxPayloadSize),
		}
	}

	frame := make([]byte, LengthPrefixSize+len(payload))
	binary.BigEndian.PutUint32(frame[:LengthPrefixSize], uint32(len(payload)))
	copy(frame[LengthPrefixSize:], payload)
	return frame, nil
}
