package ipc

import (
	"bufio"
	"bytes"
	"io"
	"testing"
	"testing/iotest"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/kolsys/allure-phpunit/allure"
	"github.com/kolsys/allure-phpunit/phpunit"
)

// frameTypeProbe is the old approach: unmarshal the entire payload into a
// struct just to read the "type" field. Kept here as baseline for benchmarks.
type frameTypeProbe struct {
	Type string `msgpack:"type"`
}

// probeFrameTypeOld is the previous implementation that does a full
// msgpack.Unmarshal to extract just the type field.
func probeFrameTypeOld(payload []byte) (string, error) {
	var probe frameTypeProbe
	if err := msgpack.Unmarshal(payload, &probe); err != nil {
		return "", err
	}
	return probe.Type, nil
}

// buildNotificationStream encodes n test_started notifications into a
// contiguous byte buffer.
func buildNotificationStream(b *testing.B, n int) []byte {
	b.Helper()
	var buf bytes.Buffer
	for i := range n {
		notification := &phpunit.Notification{
			Type: phpunit.NotificationTestStarted,
			Seq:  int64(i + 1),
			Test: &phpunit.TestRef{Class: "CalculatorTest", Name: "testAdd"},
		}
		frame, err := EncodeFrame(notification)
		if err != nil {
			b.Fatalf("EncodeFrame: %v", err)
		}
		buf.Write(frame)
	}
	return buf.Bytes()
}

// buildMixedStream encodes a realistic mixed workload: hello, lifecycle
// notifications, attachment chunks, and a goodbye.
func buildMixedStream(b *testing.B) []byte {
	b.Helper()
	var buf bytes.Buffer

	write := func(record any) {
		frame, err := EncodeFrame(record)
		if err != nil {
			b.Fatalf("EncodeFrame: %v", err)
		}
		buf.Write(frame)
	}

	write(&phpunit.HelloFrame{
		Type:            phpunit.HelloType,
		ProtocolVersion: allure.ProtocolVersion,
		Runner:          "phpunit",
		RunnerVersion:   "9.6.19",
		RunID:           "run-001",
	})

	write(&phpunit.Notification{
		Type:  phpunit.NotificationSuiteStarted,
		Seq:   1,
		Suite: &phpunit.SuiteRef{Name: "CalculatorTest"},
	})
	for i := range 5 {
		write(&phpunit.Notification{
			Type: phpunit.NotificationTestStarted,
			Seq:  int64(2 + i),
			Test: &phpunit.TestRef{Class: "CalculatorTest", Name: "testAdd"},
		})
	}

	for i := range 2 {
		write(&phpunit.AttachmentChunkFrame{
			Type:         AttachmentChunkType,
			AttachmentID: "att-001",
			Seq:          int64(i + 1),
			IsLast:       i == 1,
			Data:         bytes.Repeat([]byte("x"), 4096),
		})
	}

	write(&phpunit.Notification{
		Type:  phpunit.NotificationSuiteFinished,
		Seq:   7,
		Suite: &phpunit.SuiteRef{Name: "CalculatorTest"},
	})
	write(&phpunit.GoodbyeFrame{
		Type:    phpunit.GoodbyeType,
		Summary: phpunit.RunSummary{Tests: 5, TimeSeconds: 0.42},
	})

	return buf.Bytes()
}

// --- Type probe benchmarks ---

// BenchmarkProbeFrameType_Old measures the previous approach: full
// msgpack.Unmarshal into a struct to extract one field.
func BenchmarkProbeFrameType_Old(b *testing.B) {
	notification := &phpunit.Notification{
		Type:  phpunit.NotificationTestFailed,
		Seq:   1,
		Test:  &phpunit.TestRef{Class: "CalculatorTest", Name: "testDivide"},
		Cause: &phpunit.ExceptionInfo{Class: "ExpectationFailedException", Message: "expected 1, got 2", Trace: "CalculatorTest.php:42"},
	}
	payload, err := msgpack.Marshal(notification)
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	b.ReportAllocs()
	for range b.N {
		typ, err := probeFrameTypeOld(payload)
		if err != nil {
			b.Fatal(err)
		}
		if typ != string(phpunit.NotificationTestFailed) {
			b.Fatalf("got %q", typ)
		}
	}
}

// BenchmarkProbeFrameType_New measures the streaming msgpack decoder that
// skips non-"type" fields without allocating.
func BenchmarkProbeFrameType_New(b *testing.B) {
	notification := &phpunit.Notification{
		Type:  phpunit.NotificationTestFailed,
		Seq:   1,
		Test:  &phpunit.TestRef{Class: "CalculatorTest", Name: "testDivide"},
		Cause: &phpunit.ExceptionInfo{Class: "ExpectationFailedException", Message: "expected 1, got 2", Trace: "CalculatorTest.php:42"},
	}
	payload, err := msgpack.Marshal(notification)
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	b.ReportAllocs()
	for range b.N {
		typ, err := probeFrameType(payload)
		if err != nil {
			b.Fatal(err)
		}
		if typ != string(phpunit.NotificationTestFailed) {
			b.Fatalf("got %q", typ)
		}
	}
}

// BenchmarkProbeFrameType_AttachmentChunk exercises probing on chunk
// payloads where "type" is typically the first field.
func BenchmarkProbeFrameType_AttachmentChunk(b *testing.B) {
	chunk := &phpunit.AttachmentChunkFrame{
		Type:         AttachmentChunkType,
		AttachmentID: "att-001",
		Seq:          1,
		IsLast:       false,
		Data:         bytes.Repeat([]byte("x"), 4096),
	}
	payload, err := msgpack.Marshal(chunk)
	if err != nil {
		b.Fatal(err)
	}

	b.Run("old", func(b *testing.B) {
		b.ReportAllocs()
		for range b.N {
			typ, err := probeFrameTypeOld(payload)
			if err != nil {
				b.Fatal(err)
			}
			if typ != AttachmentChunkType {
				b.Fatalf("got %q", typ)
			}
		}
	})

	b.Run("new", func(b *testing.B) {
		b.ReportAllocs()
		for range b.N {
			typ, err := probeFrameType(payload)
			if err != nil {
				b.Fatal(err)
			}
			if typ != AttachmentChunkType {
				b.Fatalf("got %q", typ)
			}
		}
	})
}

// --- DecodeFrame benchmarks (type probe + full decode combined) ---

// BenchmarkDecodeFrame_Notification measures full DecodeFrame throughput
// for lifecycle notifications. This exercises probeFrameType plus
// DecodeNotification.
func BenchmarkDecodeFrame_Notification(b *testing.B) {
	notification := &phpunit.Notification{
		Type:  phpunit.NotificationTestFailed,
		Seq:   1,
		Test:  &phpunit.TestRef{Class: "CalculatorTest", Name: "testDivide"},
		Cause: &phpunit.ExceptionInfo{Class: "ExpectationFailedException", Message: "expected 1, got 2", Trace: "CalculatorTest.php:42"},
	}
	payload, err := msgpack.Marshal(notification)
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	b.ReportAllocs()
	for range b.N {
		result, err := DecodeFrame(payload)
		if err != nil {
			b.Fatal(err)
		}
		if _, ok := result.(*phpunit.Notification); !ok {
			b.Fatalf("got %T", result)
		}
	}
}

// --- FrameDecoder + ReadFrame benchmarks ---

// BenchmarkReadFrame_BufferedReader measures ReadFrame with the stream
// wrapped in a bufio.Reader, the way the runtime wraps the bootstrap pipe.
func BenchmarkReadFrame_BufferedReader(b *testing.B) {
	data := buildNotificationStream(b, 100)

	b.ResetTimer()
	b.ReportAllocs()
	for range b.N {
		decoder := NewFrameDecoder(bufio.NewReader(bytes.NewReader(data)))
		for {
			_, err := decoder.ReadFrame()
			if err == io.EOF {
				break
			}
			if err != nil {
				b.Fatal(err)
			}
		}
	}
}

// BenchmarkReadFrame_OneByteReader measures ReadFrame through
// iotest.OneByteReader, simulating worst-case small-read behavior
// (e.g., unbuffered pipe returning 1 byte per read(2)).
func BenchmarkReadFrame_OneByteReader(b *testing.B) {
	data := buildNotificationStream(b, 20)

	b.ResetTimer()
	b.ReportAllocs()
	for range b.N {
		reader := iotest.OneByteReader(bytes.NewReader(data))
		decoder := NewFrameDecoder(bufio.NewReader(reader))
		for {
			_, err := decoder.ReadFrame()
			if err == io.EOF {
				break
			}
			if err != nil {
				b.Fatal(err)
			}
		}
	}
}

// BenchmarkReadFrame_MixedStream measures ReadFrame + DecodeFrame on a
// realistic mixed workload (control frames + notifications + chunks).
func BenchmarkReadFrame_MixedStream(b *testing.B) {
	data := buildMixedStream(b)

	b.ResetTimer()
	b.ReportAllocs()
	for range b.N {
		decoder := NewFrameDecoder(bytes.NewReader(data))
		for {
			payload, err := decoder.ReadFrame()
			if err == io.EOF {
				break
			}
			if err != nil {
				b.Fatal(err)
			}
			if _, err := DecodeFrame(payload); err != nil {
				b.Fatal(err)
			}
		}
	}
}
