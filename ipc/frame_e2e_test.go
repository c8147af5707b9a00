// E2E tests for the bootstrap wire framing.
//
// These tests spawn a real PHP process that emits length-prefixed
// msgpack frames with the same minimal encoder the bootstrap bundles,
// and validate that the Go FrameDecoder handles its output.
//
// Test gating:
//   - Live E2E tests require ALLURE_PHPUNIT_E2E=1 and a php binary on PATH
package ipc

import (
	"bytes"
	"errors"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/kolsys/allure-phpunit/phpunit"
)

// emitterScript is a standalone PHP program that encodes a fixed frame
// sequence: hello, one suite with a failing test and an attachment, and
// a goodbye. The mp_* helpers mirror the bootstrap's encoder.
const emitterScript = `<?php
function mp_str(string $s): string {
    $n = strlen($s);
    if ($n < 32) return chr(0xa0 | $n) . $s;
    if ($n < 256) return "\xd9" . chr($n) . $s;
    return "\xda" . pack('n', $n) . $s;
}
function mp_int(int $i): string {
    if ($i < 128) return chr($i);
    if ($i < 256) return "\xcc" . chr($i);
    if ($i < 65536) return "\xcd" . pack('n', $i);
    if ($i < 4294967296) return "\xce" . pack('N', $i);
    return "\xcf" . pack('J', $i);
}
function mp_bool(bool $b): string { return $b ? "\xc3" : "\xc2"; }
function mp_float(float $f): string { return "\xcb" . pack('E', $f); }
function mp_bin(string $d): string {
    $n = strlen($d);
    if ($n < 256) return "\xc4" . chr($n) . $d;
    if ($n < 65536) return "\xc5" . pack('n', $n) . $d;
    return "\xc6" . pack('N', $n) . $d;
}
function mp_map(array $pairs): string {
    $out = chr(0x80 | count($pairs));
    foreach ($pairs as $k => $v) $out .= mp_str($k) . $v;
    return $out;
}
function emit(string $payload): void {
    fwrite(STDOUT, pack('N', strlen($payload)) . $payload);
}

$test = mp_map(['class' => mp_str('CalculatorTest'), 'name' => mp_str('testDivide')]);

emit(mp_map([
    'type' => mp_str('hello'),
    'protocol_version' => mp_str('1.0.0'),
    'runner' => mp_str('phpunit'),
    'runner_version' => mp_str('9.6.19'),
    'run_id' => mp_str('run-e2e-001'),
]));
emit(mp_map([
    'type' => mp_str('suite_started'),
    'seq' => mp_int(1),
    'suite' => mp_map(['name' => mp_str('CalculatorTest')]),
]));
emit(mp_map([
    'type' => mp_str('test_started'),
    'seq' => mp_int(2),
    'test' => $test,
]));
emit(mp_map([
    'type' => mp_str('test_failed'),
    'seq' => mp_int(3),
    'test' => $test,
    'cause' => mp_map([
        'class' => mp_str('PHPUnit\\Framework\\ExpectationFailedException'),
        'message' => mp_str('expected 1, got 2'),
        'trace' => mp_str('CalculatorTest.php:42'),
        'comparison' => mp_map([
            'expected' => mp_str('1'),
            'actual' => mp_str('2'),
            'diff' => mp_str("\n-1\n+2"),
        ]),
    ]),
]));
emit(mp_map([
    'type' => mp_str('attachment_chunk'),
    'attachment_id' => mp_str('att-001'),
    'seq' => mp_int(1),
    'is_last' => mp_bool(false),
    'data' => mp_bin(str_repeat('a', 4096)),
]));
emit(mp_map([
    'type' => mp_str('attachment_chunk'),
    'attachment_id' => mp_str('att-001'),
    'seq' => mp_int(2),
    'is_last' => mp_bool(true),
    'data' => mp_bin(str_repeat('b', 512)),
]));
emit(mp_map([
    'type' => mp_str('attachment'),
    'seq' => mp_int(4),
    'test' => $test,
    'attachment' => mp_map([
        'attachment_id' => mp_str('att-001'),
        'title' => mp_str('query log'),
        'media_type' => mp_str('text/plain'),
        'size_bytes' => mp_int(4608),
    ]),
]));
emit(mp_map([
    'type' => mp_str('test_ended'),
    'seq' => mp_int(5),
    'test' => $test,
    'time' => mp_float(0.012),
]));
emit(mp_map([
    'type' => mp_str('suite_finished'),
    'seq' => mp_int(6),
    'suite' => mp_map(['name' => mp_str('CalculatorTest')]),
]));
emit(mp_map([
    'type' => mp_str('goodbye'),
    'summary' => mp_map([
        'tests' => mp_int(1),
        'failures' => mp_int(1),
        'errors' => mp_int(0),
        'skipped' => mp_int(0),
        'incomplete' => mp_int(0),
        'risky' => mp_int(0),
        'time' => mp_float(0.012),
    ]),
]));
`

// checkPHPAvailable verifies a php binary is on PATH.
func checkPHPAvailable(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("php"); err != nil {
		t.Skip("php not available, skipping E2E test")
	}
}

// spawnEmitter runs the emitter script and returns its stdout bytes.
func spawnEmitter(t *testing.T) []byte {
	t.Helper()

	scriptPath := filepath.Join(t.TempDir(), "emitter.php")
	if err := os.WriteFile(scriptPath, []byte(emitterScript), 0o644); err != nil {
		t.Fatalf("failed to write emitter script: %v", err)
	}

	cmd := exec.Command("php", scriptPath)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		t.Logf("emitter stderr: %s", stderr.String())
		t.Fatalf("emitter failed: %v", err)
	}
	return stdout.Bytes()
}

// TestE2E_WireHarness spawns the emitter and validates the framing
// without asserting decode correctness.
func TestE2E_WireHarness(t *testing.T) {
	if os.Getenv("ALLURE_PHPUNIT_E2E") != "1" {
		t.Skip("ALLURE_PHPUNIT_E2E=1 not set, skipping live E2E test")
	}
	checkPHPAvailable(t)

	stdout := spawnEmitter(t)
	if len(stdout) == 0 {
		t.Fatal("emitter produced no output")
	}

	decoder := NewFrameDecoder(bytes.NewReader(stdout))
	frameCount := 0
	for {
		payload, err := decoder.ReadFrame()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("ReadFrame failed at frame %d: %v", frameCount, err)
		}
		if len(payload) == 0 {
			t.Errorf("frame %d has empty payload", frameCount)
		}
		frameCount++
	}

	if frameCount != 10 {
		t.Errorf("decoded %d frames, want 10", frameCount)
	}
	t.Logf("wire harness: captured %d bytes, decoded %d frames", len(stdout), frameCount)
}

// TestE2E_LiveDecode decodes the full emitter stream with ordering and
// content assertions.
func TestE2E_LiveDecode(t *testing.T) {
	if os.Getenv("ALLURE_PHPUNIT_E2E") != "1" {
		t.Skip("ALLURE_PHPUNIT_E2E=1 not set, skipping live E2E test")
	}
	checkPHPAvailable(t)

	stdout := spawnEmitter(t)
	decoder := NewFrameDecoder(bytes.NewReader(stdout))

	var frames []any
	goodbyeSeenAt := -1
	for {
		payload, err := decoder.ReadFrame()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("ReadFrame failed: %v", err)
		}
		frame, err := DecodeFrame(payload)
		if err != nil {
			t.Fatalf("DecodeFrame failed: %v", err)
		}

		// No frames may follow the goodbye
		if goodbyeSeenAt >= 0 {
			t.Errorf("frame received after goodbye at index %d: %T", goodbyeSeenAt, frame)
		}
		frames = append(frames, frame)
		if _, ok := frame.(*phpunit.GoodbyeFrame); ok {
			goodbyeSeenAt = len(frames) - 1
		}
	}

	if len(frames) == 0 {
		t.Fatal("no frames decoded")
	}

	hello, ok := frames[0].(*phpunit.HelloFrame)
	if !ok {
		t.Fatalf("first frame is %T, want *phpunit.HelloFrame", frames[0])
	}
	if hello.ProtocolVersion != "1.0.0" {
		t.Errorf("hello protocol version = %q, want %q", hello.ProtocolVersion, "1.0.0")
	}
	if hello.RunID != "run-e2e-001" {
		t.Errorf("hello run id = %q, want %q", hello.RunID, "run-e2e-001")
	}

	if goodbyeSeenAt != len(frames)-1 {
		t.Fatalf("goodbye at index %d, but %d frames total", goodbyeSeenAt, len(frames))
	}
	goodbye := frames[goodbyeSeenAt].(*phpunit.GoodbyeFrame)
	if goodbye.Summary.Tests != 1 || goodbye.Summary.Failures != 1 {
		t.Errorf("goodbye summary = %+v, want 1 test 1 failure", goodbye.Summary)
	}

	// Notification seqs are contiguous from 1; chunks do not participate
	wantSeq := int64(1)
	var failed *phpunit.Notification
	var chunkBytes int
	for _, frame := range frames {
		switch f := frame.(type) {
		case *phpunit.Notification:
			if err := f.Validate(); err != nil {
				t.Errorf("notification seq %d invalid: %v", f.Seq, err)
			}
			if f.Seq != wantSeq {
				t.Errorf("notification seq = %d, want %d", f.Seq, wantSeq)
			}
			wantSeq++
			if f.Type == phpunit.NotificationTestFailed {
				failed = f
			}
		case *phpunit.AttachmentChunkFrame:
			chunkBytes += len(f.Data)
		}
	}

	if failed == nil {
		t.Fatal("no test_failed notification in stream")
	}
	if failed.Cause == nil || failed.Cause.Message != "expected 1, got 2" {
		t.Errorf("failure cause = %+v, want message %q", failed.Cause, "expected 1, got 2")
	}
	if failed.Cause.Comparison == nil || failed.Cause.Comparison.Diff != "\n-1\n+2" {
		t.Errorf("failure comparison = %+v, want diff %q", failed.Cause.Comparison, "\n-1\n+2")
	}

	// Reassembled chunk bytes match the committed size
	if chunkBytes != 4608 {
		t.Errorf("chunk bytes = %d, want 4608", chunkBytes)
	}

	t.Logf("live decode: %d frames, goodbye at index %d", len(frames), goodbyeSeenAt)
}
