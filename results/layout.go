package results

import (
	"strings"

	"github.com/google/uuid"
)

// File name grammar for the flat results directory layout.
// Report generators discover suites by the -testsuite.xml suffix; attachment
// sources are referenced from test cases by bare file name.
const (
	// SuiteFileSuffix terminates every suite report file name.
	SuiteFileSuffix = "-testsuite.xml"

	// AttachmentStem joins the attachment UUID and its extension.
	AttachmentStem = "-attachment"
)

// mediaTypeExtensions maps media types to attachment file extensions.
// Unknown types fall back to .bin.
var mediaTypeExtensions = map[string]string{
	"text/plain":       ".txt",
	"text/html":        ".html",
	"text/csv":         ".csv",
	"text/xml":         ".xml",
	"application/xml":  ".xml",
	"application/json": ".json",
	"image/png":        ".png",
	"image/jpeg":       ".jpg",
	"image/gif":        ".gif",
	"image/svg+xml":    ".svg",
	"application/pdf":  ".pdf",
	"video/mp4":        ".mp4",
}

// BuildSuiteFileName returns the report file name for a suite UUID.
func BuildSuiteFileName(suiteUUID string) string {
	return suiteUUID + SuiteFileSuffix
}

// ParseSuiteFileName extracts the suite UUID from a report file name.
// Returns false if the name does not match the suite file grammar.
func ParseSuiteFileName(name string) (string, bool) {
	if !strings.HasSuffix(name, SuiteFileSuffix) {
		return "", false
	}
	id := strings.TrimSuffix(name, SuiteFileSuffix)
	if _, err := uuid.Parse(id); err != nil {
		return "", false
	}
	return id, true
}

// BuildAttachmentSource returns the file name for an attachment with the
// given UUID and media type. The extension is derived from the media type;
// unknown types use .bin.
func BuildAttachmentSource(attachmentUUID, mediaType string) string {
	return attachmentUUID + AttachmentStem + ExtensionForMediaType(mediaType)
}

// ParseAttachmentSource extracts the attachment UUID from a source name.
// Returns false if the name does not match the attachment grammar.
func ParseAttachmentSource(name string) (string, bool) {
	idx := strings.Index(name, AttachmentStem)
	if idx <= 0 {
		return "", false
	}
	id := name[:idx]
	if _, err := uuid.Parse(id); err != nil {
		return "", false
	}
	// Remainder must be the stem plus an optional extension
	rest := name[idx+len(AttachmentStem):]
	if rest != "" && !strings.HasPrefix(rest, ".") {
		return "", false
	}
	return id, true
}

// ExtensionForMediaType returns the file extension for a media type.
// Parameters after ";" are ignored. Unknown types return .bin.
func ExtensionForMediaType(mediaType string) string {
	mt := mediaType
	if i := strings.Index(mt, ";"); i >= 0 {
		mt = mt[:i]
	}
	mt = strings.ToLower(strings.TrimSpace(mt))
	if ext, ok := mediaTypeExtensions[mt]; ok {
		return ext
	}
	return ".bin"
}

// IsSuiteFile reports whether the name matches the suite file grammar.
func IsSuiteFile(name string) bool {
	_, ok := ParseSuiteFileName(name)
	return ok
}

// IsAttachmentFile reports whether the name matches the attachment grammar.
func IsAttachmentFile(name string) bool {
	_, ok := ParseAttachmentSource(name)
	return ok
}

// IsReportFile reports whether the name belongs to the results layout.
func IsReportFile(name string) bool {
	return IsSuiteFile(name) || IsAttachmentFile(name)
}

// ValidateSource rejects attachment source names that could escape the
// results directory.
func ValidateSource(source string) error {
	if source == "" {
		return NewStorageError(ErrInvalidName, "write", source, ErrInvalidName)
	}
	if strings.ContainsAny(source, `/\`) || strings.Contains(source, "..") {
		return NewStorageError(ErrInvalidName, "write", source, ErrInvalidName)
	}
	return nil
}
