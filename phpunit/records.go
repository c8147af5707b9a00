package phpunit

import (
	"fmt"
)

// NotificationType discriminates lifecycle notifications.
type NotificationType string

// Notification type constants. These mirror the bootstrap emitter.
const (
	NotificationSuiteStarted   NotificationType = "suite_started"
	NotificationSuiteFinished  NotificationType = "suite_finished"
	NotificationTestStarted    NotificationType = "test_started"
	NotificationTestEnded      NotificationType = "test_ended"
	NotificationTestErrored    NotificationType = "test_errored"
	NotificationTestFailed     NotificationType = "test_failed"
	NotificationTestWarning    NotificationType = "test_warning"
	NotificationTestIncomplete NotificationType = "test_incomplete"
	NotificationTestRisky      NotificationType = "test_risky"
	NotificationTestSkipped    NotificationType = "test_skipped"
	NotificationAttachment     NotificationType = "attachment"
)

// IsKnown returns true for notification types this runtime dispatches.
func (t NotificationType) IsKnown() bool {
	switch t {
	case NotificationSuiteStarted, NotificationSuiteFinished,
		NotificationTestStarted, NotificationTestEnded,
		NotificationTestErrored, NotificationTestFailed,
		NotificationTestWarning, NotificationTestIncomplete,
		NotificationTestRisky, NotificationTestSkipped,
		NotificationAttachment:
		return true
	default:
		return false
	}
}

// SuiteRef identifies a test suite by its display name.
type SuiteRef struct {
	// Name is the suite name. Data-provider pseudo-suites carry the
	// "Class::method" form.
	Name string `msgpack:"name"`
}

// TestRef identifies a single test method.
type TestRef struct {
	// Class is the fully qualified test class name.
	Class string `msgpack:"class"`
	// Name is the bare test method name.
	Name string `msgpack:"name"`
	// DataSet is the data-provider dataset label, when applicable.
	DataSet string `msgpack:"data_set,omitempty"`
}

// ComparisonFailure carries the expected/actual pair of a failed
// assertion, with the runner-rendered diff.
type ComparisonFailure struct {
	Expected string `msgpack:"expected"`
	Actual   string `msgpack:"actual"`
	// Diff is the rendered diff, already prefixed with its own leading
	// newline by the runner when non-empty.
	Diff string `msgpack:"diff"`
}

// ExceptionInfo carries a throwable raised during a test.
type ExceptionInfo struct {
	// Class is the throwable class name.
	Class string `msgpack:"class"`
	// Message is the throwable message.
	Message string `msgpack:"message"`
	// Trace is the rendered stack trace.
	Trace string `msgpack:"trace"`
	// Comparison is set for assertion failures with a comparison diff.
	Comparison *ComparisonFailure `msgpack:"comparison,omitempty"`
}

// AttachmentRef is the commit record for an attachment transmitted via
// side-channel chunks.
type AttachmentRef struct {
	// AttachmentID correlates chunks with this commit.
	AttachmentID string `msgpack:"attachment_id"`
	// Title is a human-readable name.
	Title string `msgpack:"title"`
	// MediaType is the MIME content type.
	MediaType string `msgpack:"media_type"`
	// SizeBytes is the total size in bytes.
	SizeBytes int64 `msgpack:"size_bytes"`
}

// Notification is the envelope for all lifecycle notifications.
// All fields use msgpack tags to match the bootstrap wire format.
type Notification struct {
	// Type is the notification discriminator.
	Type NotificationType `msgpack:"type"`
	// Seq is the monotonic sequence number, starts at 1.
	Seq int64 `msgpack:"seq"`
	// Suite is set on suite-scoped notifications.
	Suite *SuiteRef `msgpack:"suite,omitempty"`
	// Test is set on test-scoped notifications.
	Test *TestRef `msgpack:"test,omitempty"`
	// Cause is set on error, failure, warning, incomplete, risky, and
	// skipped notifications.
	Cause *ExceptionInfo `msgpack:"cause,omitempty"`
	// Attachment is set on attachment commit notifications.
	Attachment *AttachmentRef `msgpack:"attachment,omitempty"`
	// TimeSeconds is the runner-measured duration, set on test_ended.
	TimeSeconds float64 `msgpack:"time,omitempty"`
}

// Validate checks the notification shape for its type.
func (n *Notification) Validate() error {
	if !n.Type.IsKnown() {
		return fmt.Errorf("unknown notification type %q", n.Type)
	}
	if n.Seq < 1 {
		return fmt.Errorf("%s notification has invalid seq %d", n.Type, n.Seq)
	}

	switch n.Type {
	case NotificationSuiteStarted, NotificationSuiteFinished:
		if n.Suite == nil || n.Suite.Name == "" {
			return fmt.Errorf("%s notification missing suite", n.Type)
		}
	case NotificationAttachment:
		if n.Attachment == nil || n.Attachment.AttachmentID == "" {
			return fmt.Errorf("%s notification missing attachment", n.Type)
		}
	default:
		if n.Test == nil || n.Test.Name == "" {
			return fmt.Errorf("%s notification missing test", n.Type)
		}
	}
	return nil
}

// HelloType is the type discriminant for hello control frames.
const HelloType = "hello"

// ManifestAnnotation is a single annotation entry in the hello manifest.
type ManifestAnnotation struct {
	Name   string   `msgpack:"name"`
	Values []string `msgpack:"values"`
}

// AnnotationManifest carries the docblock annotations the bootstrap
// collected from loaded test classes. Method keys use "Class::method".
type AnnotationManifest struct {
	Classes map[string][]ManifestAnnotation `msgpack:"classes"`
	Methods map[string][]ManifestAnnotation `msgpack:"methods"`
}

// HelloFrame is the handshake control frame. It is the first frame on
// the stream and does not participate in seq numbering.
type HelloFrame struct {
	// Type is always "hello" for hello frames.
	Type string `msgpack:"type"`
	// ProtocolVersion is the bootstrap wire protocol version.
	ProtocolVersion string `msgpack:"protocol_version"`
	// Runner is the host runner name (e.g. "phpunit").
	Runner string `msgpack:"runner"`
	// RunnerVersion is the host runner version string.
	RunnerVersion string `msgpack:"runner_version"`
	// RunID is the run identifier the bootstrap was launched with.
	RunID string `msgpack:"run_id"`
	// Manifest is the collected annotation manifest. May be nil when the
	// bootstrap runs with reflection disabled.
	Manifest *AnnotationManifest `msgpack:"manifest,omitempty"`
}

// GoodbyeType is the type discriminant for goodbye control frames.
const GoodbyeType = "goodbye"

// RunSummary is the host runner's own accounting, carried on goodbye.
type RunSummary struct {
	Tests       int     `msgpack:"tests" json:"tests"`
	Failures    int     `msgpack:"failures" json:"failures"`
	Errors      int     `msgpack:"errors" json:"errors"`
	Skipped     int     `msgpack:"skipped" json:"skipped"`
	Incomplete  int     `msgpack:"incomplete" json:"incomplete"`
	Risky       int     `msgpack:"risky" json:"risky"`
	TimeSeconds float64 `msgpack:"time" json:"time_seconds"`
}

// GoodbyeFrame is the terminal control frame. It does not participate in
// seq numbering; a stream ending without one is a runner crash.
type GoodbyeFrame struct {
	// Type is always "goodbye" for goodbye frames.
	Type string `msgpack:"type"`
	// Summary is the runner's final accounting.
	Summary RunSummary `msgpack:"summary"`
}

// AttachmentChunkFrame is a side-channel frame carrying attachment bytes.
// Discriminated from notifications by Type == "attachment_chunk"; does
// not participate in seq numbering (Seq is per attachment, starts at 1).
type AttachmentChunkFrame struct {
	// Type is always "attachment_chunk" for chunk frames.
	Type string `msgpack:"type"`
	// AttachmentID identifies the attachment this chunk belongs to.
	AttachmentID string `msgpack:"attachment_id"`
	// Seq is the chunk sequence number, starts at 1.
	Seq int64 `msgpack:"seq"`
	// IsLast is true if this is the final chunk.
	IsLast bool `msgpack:"is_last"`
	// Data is the raw binary data.
	Data []byte `msgpack:"data"`
}

// AttachmentChunk is the internal representation of a chunk after decoding.
type AttachmentChunk struct {
	AttachmentID string
	Seq          int64
	IsLast       bool
	Data         []byte
}
