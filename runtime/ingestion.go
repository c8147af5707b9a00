package runtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"

	"github.com/kolsys/allure-phpunit/allure"
	"github.com/kolsys/allure-phpunit/annotations"
	"github.com/kolsys/allure-phpunit/ipc"
	"github.com/kolsys/allure-phpunit/lifecycle"
	"github.com/kolsys/allure-phpunit/log"
	"github.com/kolsys/allure-phpunit/metrics"
	"github.com/kolsys/allure-phpunit/phpunit"
	"github.com/kolsys/allure-phpunit/results"
)

// IngestionError classifies ingestion errors for outcome determination.
type IngestionError struct {
	// Kind indicates how the error maps onto the run outcome.
	Kind IngestionErrorKind
	// Err is the underlying error.
	Err error
}

// IngestionErrorKind classifies ingestion errors.
type IngestionErrorKind int

const (
	// IngestionErrorStream indicates a frame/stream error (runner crash outcome).
	IngestionErrorStream IngestionErrorKind = iota
	// IngestionErrorStore indicates a results store or sink failure.
	IngestionErrorStore
	// IngestionErrorCanceled indicates context cancellation (runner crash outcome).
	IngestionErrorCanceled
	// IngestionErrorProtocol indicates a hello protocol version mismatch.
	IngestionErrorProtocol
)

func (e *IngestionError) Error() string {
	return e.Err.Error()
}

func (e *IngestionError) Unwrap() error {
	return e.Err
}

// IsStreamError returns true if the error is a stream/frame error.
func IsStreamError(err error) bool {
	var ingErr *IngestionError
	if errors.As(err, &ingErr) {
		return ingErr.Kind == IngestionErrorStream
	}
	return false
}

// IsStoreError returns true if the error is a store or sink failure.
func IsStoreError(err error) bool {
	var ingErr *IngestionError
	if errors.As(err, &ingErr) {
		return ingErr.Kind == IngestionErrorStore
	}
	return false
}

// IsCanceledError returns true if the error is due to context cancellation.
func IsCanceledError(err error) bool {
	var ingErr *IngestionError
	if errors.As(err, &ingErr) {
		return ingErr.Kind == IngestionErrorCanceled
	}
	return false
}

// IsProtocolError returns true if the error is a protocol version mismatch.
func IsProtocolError(err error) bool {
	var ingErr *IngestionError
	if errors.As(err, &ingErr) {
		return ingErr.Kind == IngestionErrorProtocol
	}
	return false
}

// IngestionEngine reads the bootstrap frame stream and dispatches it:
//   - the hello frame opens the stream; its protocol version must match
//     and its annotation manifest seeds the registry
//   - lifecycle notifications carry strictly monotonic seq (1, 2, 3...)
//     and dispatch onto the run listener in arrival order
//   - attachment chunks assemble out-of-band; the attachment commit
//     record persists the assembled bytes
//   - the goodbye frame closes the stream; a stream ending without one
//     is a runner crash
//
// Invalid framing is fatal, there is no resync.
type IngestionEngine struct {
	decoder   *ipc.FrameDecoder
	listener  phpunit.RunListener
	sink      lifecycle.Lifecycle
	store     results.Store
	registry  *annotations.Registry
	assembler *AttachmentAssembler
	logger    *log.Logger
	collector *metrics.Collector

	currentSeq int64
	hello      *phpunit.HelloFrame
	goodbye    *phpunit.GoodbyeFrame
	// pendingRefs holds commit records whose chunks are still in flight.
	pendingRefs map[string]*phpunit.AttachmentRef
}

// NewIngestionEngine creates a new ingestion engine.
func NewIngestionEngine(
	reader io.Reader,
	listener phpunit.RunListener,
	sink lifecycle.Lifecycle,
	store results.Store,
	registry *annotations.Registry,
	assembler *AttachmentAssembler,
	logger *log.Logger,
	collector *metrics.Collector,
) *IngestionEngine {
	return &IngestionEngine{
		decoder:     ipc.NewFrameDecoder(reader),
		listener:    listener,
		sink:        sink,
		store:       store,
		registry:    registry,
		assembler:   assembler,
		logger:      logger,
		collector:   collector,
		currentSeq:  0,
		pendingRefs: make(map[string]*phpunit.AttachmentRef),
	}
}

// Run runs the ingestion loop until EOF or fatal error.
// Returns:
//   - nil: stream ended cleanly (EOF)
//   - *IngestionError with Kind=IngestionErrorStream: frame/stream error
//   - *IngestionError with Kind=IngestionErrorStore: store or sink failure
//   - *IngestionError with Kind=IngestionErrorCanceled: context canceled
//   - *IngestionError with Kind=IngestionErrorProtocol: version mismatch
func (e *IngestionEngine) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return &IngestionError{
				Kind: IngestionErrorCanceled,
				Err:  ctx.Err(),
			}
		default:
		}

		payload, err := e.decoder.ReadFrame()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}

			// If the goodbye frame already arrived, pipe closure errors are
			// normal runner exit behavior.
			if e.goodbye != nil {
				e.logger.Debug("pipe closed after goodbye frame (expected)", map[string]any{
					"error": err.Error(),
				})
				return nil
			}

			e.logger.Error("frame error", map[string]any{
				"error": err.Error(),
			})
			e.collector.IncRunnerCrash()
			return &IngestionError{
				Kind: IngestionErrorStream,
				Err:  fmt.Errorf("frame error: %w", err),
			}
		}

		if err := e.processFrame(ctx, payload); err != nil {
			if IsStreamError(err) {
				e.collector.IncRunnerCrash()
			}
			return err
		}
	}
}

// processFrame decodes and processes a single frame.
func (e *IngestionEngine) processFrame(ctx context.Context, payload []byte) error {
	decoded, err := ipc.DecodeFrame(payload)
	if err != nil {
		e.logger.Error("frame decode error", map[string]any{
			"error": err.Error(),
		})
		e.collector.IncIPCDecodeErrors()
		return &IngestionError{
			Kind: IngestionErrorStream,
			Err:  fmt.Errorf("frame decode error: %w", err),
		}
	}

	// The hello frame must open the stream
	if e.hello == nil {
		hello, ok := decoded.(*phpunit.HelloFrame)
		if !ok {
			return &IngestionError{
				Kind: IngestionErrorStream,
				Err:  fmt.Errorf("first frame is %T, expected hello", decoded),
			}
		}
		return e.processHello(hello)
	}

	switch frame := decoded.(type) {
	case *phpunit.HelloFrame:
		e.logger.Warn("ignoring duplicate hello frame", nil)
		return nil
	case *phpunit.GoodbyeFrame:
		return e.processGoodbye(frame)
	case *phpunit.AttachmentChunkFrame:
		return e.processAttachmentChunk(ctx, frame)
	case *phpunit.Notification:
		return e.processNotification(ctx, frame)
	default:
		return &IngestionError{
			Kind: IngestionErrorStream,
			Err:  fmt.Errorf("unexpected frame type: %T", decoded),
		}
	}
}

// processHello validates the handshake and seeds the annotation registry
// from the manifest.
func (e *IngestionEngine) processHello(hello *phpunit.HelloFrame) error {
	if hello.ProtocolVersion != allure.ProtocolVersion {
		e.logger.Error("protocol version mismatch", map[string]any{
			"expected": allure.ProtocolVersion,
			"got":      hello.ProtocolVersion,
		})
		return &IngestionError{
			Kind: IngestionErrorProtocol,
			Err: fmt.Errorf("protocol version mismatch: expected %s, got %s",
				allure.ProtocolVersion, hello.ProtocolVersion),
		}
	}

	e.hello = hello
	e.absorbManifest(hello.Manifest)
	e.logger.Info("handshake complete", map[string]any{
		"runner":         hello.Runner,
		"runner_version": hello.RunnerVersion,
		"run_id":         hello.RunID,
	})
	return nil
}

// absorbManifest loads the hello annotation manifest into the registry.
func (e *IngestionEngine) absorbManifest(manifest *phpunit.AnnotationManifest) {
	if manifest == nil || e.registry == nil {
		return
	}
	for class, anns := range manifest.Classes {
		e.registry.PutClass(class, convertManifestAnnotations(anns))
	}
	for key, anns := range manifest.Methods {
		class, method, ok := strings.Cut(key, "::")
		if !ok {
			e.logger.Warn("malformed manifest method key", map[string]any{
				"key": key,
			})
			continue
		}
		e.registry.PutMethod(class, method, convertManifestAnnotations(anns))
	}
}

func convertManifestAnnotations(anns []phpunit.ManifestAnnotation) []annotations.Annotation {
	converted := make([]annotations.Annotation, 0, len(anns))
	for _, a := range anns {
		converted = append(converted, annotations.Annotation{
			Name:   a.Name,
			Values: a.Values,
		})
	}
	return converted
}

// processGoodbye records the terminal frame. First goodbye wins.
func (e *IngestionEngine) processGoodbye(goodbye *phpunit.GoodbyeFrame) error {
	if e.goodbye != nil {
		e.logger.Warn("ignoring duplicate goodbye frame", nil)
		return nil
	}

	e.goodbye = goodbye
	e.logger.Info("goodbye frame received", map[string]any{
		"tests":    goodbye.Summary.Tests,
		"failures": goodbye.Summary.Failures,
		"errors":   goodbye.Summary.Errors,
		"time":     goodbye.Summary.TimeSeconds,
	})
	return nil
}

// processNotification validates ordering and dispatches onto the listener.
func (e *IngestionEngine) processNotification(ctx context.Context, n *phpunit.Notification) error {
	if err := n.Validate(); err != nil {
		e.logger.Error("notification validation failed", map[string]any{
			"error": err.Error(),
			"type":  n.Type,
			"seq":   n.Seq,
		})
		return &IngestionError{
			Kind: IngestionErrorStream,
			Err:  fmt.Errorf("notification validation failed: %w", err),
		}
	}

	expectedSeq := e.currentSeq + 1
	if n.Seq != expectedSeq {
		e.logger.Error("sequence violation", map[string]any{
			"expected": expectedSeq,
			"got":      n.Seq,
			"type":     n.Type,
		})
		return &IngestionError{
			Kind: IngestionErrorStream,
			Err:  fmt.Errorf("sequence violation: expected %d, got %d", expectedSeq, n.Seq),
		}
	}
	e.currentSeq = n.Seq

	if err := e.dispatchNotification(ctx, n); err != nil {
		e.logger.Error("listener dispatch failed", map[string]any{
			"type":  n.Type,
			"seq":   n.Seq,
			"error": err.Error(),
		})
		return &IngestionError{
			Kind: IngestionErrorStore,
			Err:  fmt.Errorf("listener dispatch failed: %w", err),
		}
	}
	return nil
}

// dispatchNotification maps a notification onto the run listener.
func (e *IngestionEngine) dispatchNotification(ctx context.Context, n *phpunit.Notification) error {
	switch n.Type {
	case phpunit.NotificationSuiteStarted:
		return e.listener.StartTestSuite(ctx, *n.Suite)
	case phpunit.NotificationSuiteFinished:
		return e.listener.EndTestSuite(ctx, *n.Suite)
	case phpunit.NotificationTestStarted:
		return e.listener.StartTest(ctx, *n.Test)
	case phpunit.NotificationTestEnded:
		return e.listener.EndTest(ctx, *n.Test, n.TimeSeconds)
	case phpunit.NotificationTestErrored:
		return e.listener.AddError(ctx, *n.Test, n.Cause)
	case phpunit.NotificationTestFailed:
		return e.listener.AddFailure(ctx, *n.Test, n.Cause)
	case phpunit.NotificationTestWarning:
		return e.listener.AddWarning(ctx, *n.Test, n.Cause)
	case phpunit.NotificationTestIncomplete:
		return e.listener.AddIncomplete(ctx, *n.Test, n.Cause)
	case phpunit.NotificationTestRisky:
		return e.listener.AddRisky(ctx, *n.Test, n.Cause)
	case phpunit.NotificationTestSkipped:
		return e.listener.AddSkipped(ctx, *n.Test, n.Cause)
	case phpunit.NotificationAttachment:
		return e.processAttachmentCommit(ctx, n)
	default:
		// Validate already rejected unknown types
		return fmt.Errorf("unhandled notification type %q", n.Type)
	}
}

// processAttachmentCommit handles the attachment commit record.
func (e *IngestionEngine) processAttachmentCommit(ctx context.Context, n *phpunit.Notification) error {
	ref := n.Attachment
	ready, err := e.assembler.Commit(ref.AttachmentID, ref.SizeBytes)
	if err != nil {
		e.logger.Error("attachment commit failed", map[string]any{
			"attachment_id": ref.AttachmentID,
			"size_bytes":    ref.SizeBytes,
			"error":         err.Error(),
		})
		return &IngestionError{
			Kind: IngestionErrorStream,
			Err:  fmt.Errorf("attachment commit failed: %w", err),
		}
	}

	if !ready {
		// Chunks still in flight; the final chunk triggers persistence
		e.pendingRefs[ref.AttachmentID] = ref
		return nil
	}
	return e.persistAttachment(ctx, ref)
}

// processAttachmentChunk feeds a chunk to the assembler.
func (e *IngestionEngine) processAttachmentChunk(ctx context.Context, frame *phpunit.AttachmentChunkFrame) error {
	if frame.Seq < 1 {
		return &IngestionError{
			Kind: IngestionErrorStream,
			Err:  fmt.Errorf("invalid chunk seq: %d", frame.Seq),
		}
	}

	chunk := &phpunit.AttachmentChunk{
		AttachmentID: frame.AttachmentID,
		Seq:          frame.Seq,
		IsLast:       frame.IsLast,
		Data:         frame.Data,
	}

	ready, err := e.assembler.AddChunk(chunk)
	if err != nil {
		e.logger.Error("attachment chunk rejected", map[string]any{
			"attachment_id": chunk.AttachmentID,
			"seq":           chunk.Seq,
			"is_last":       chunk.IsLast,
			"error":         err.Error(),
		})
		return &IngestionError{
			Kind: IngestionErrorStream,
			Err:  fmt.Errorf("attachment chunk failed: %w", err),
		}
	}

	if !ready {
		return nil
	}
	ref, ok := e.pendingRefs[chunk.AttachmentID]
	if !ok {
		return &IngestionError{
			Kind: IngestionErrorStream,
			Err:  fmt.Errorf("attachment %s ready without pending commit", chunk.AttachmentID),
		}
	}
	delete(e.pendingRefs, chunk.AttachmentID)
	return e.persistAttachment(ctx, ref)
}

// persistAttachment writes the assembled bytes to the store and records
// the reference on the open case.
func (e *IngestionEngine) persistAttachment(ctx context.Context, ref *phpunit.AttachmentRef) error {
	data, ok := e.assembler.Assembled(ref.AttachmentID)
	if !ok {
		return &IngestionError{
			Kind: IngestionErrorStream,
			Err:  fmt.Errorf("attachment %s not assembled", ref.AttachmentID),
		}
	}

	source := results.BuildAttachmentSource(uuid.NewString(), ref.MediaType)
	if err := e.store.WriteAttachment(ctx, source, ref.MediaType, data); err != nil {
		e.logger.Error("attachment write failed", map[string]any{
			"attachment_id": ref.AttachmentID,
			"source":        source,
			"error":         err.Error(),
		})
		return &IngestionError{
			Kind: IngestionErrorStore,
			Err:  fmt.Errorf("attachment write failed: %w", err),
		}
	}

	if err := e.sink.Attach(ctx, allure.Attachment{
		Title:  ref.Title,
		Source: source,
		Type:   ref.MediaType,
	}); err != nil {
		return &IngestionError{
			Kind: IngestionErrorStore,
			Err:  fmt.Errorf("attachment record failed: %w", err),
		}
	}

	e.logger.Debug("attachment persisted", map[string]any{
		"attachment_id": ref.AttachmentID,
		"source":        source,
		"size_bytes":    len(data),
	})
	return nil
}

// Hello returns the handshake frame if received.
func (e *IngestionEngine) Hello() *phpunit.HelloFrame {
	return e.hello
}

// Goodbye returns the terminal frame if received.
func (e *IngestionEngine) Goodbye() *phpunit.GoodbyeFrame {
	return e.goodbye
}

// HasGoodbye returns true if the goodbye frame has been seen.
func (e *IngestionEngine) HasGoodbye() bool {
	return e.goodbye != nil
}

// CurrentSeq returns the current notification sequence number.
func (e *IngestionEngine) CurrentSeq() int64 {
	return e.currentSeq
}
