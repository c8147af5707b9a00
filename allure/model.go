package allure

import (
	"encoding/xml"
	"fmt"
	"time"
)

// XMLNamespace is the Allure 1 model namespace. Result files declare it
// on the root element so downstream report generators recognize them.
const XMLNamespace = "urn:model.allure.qatools.yandex.ru"

// Status is a test case status in the Allure 1 vocabulary.
type Status string

const (
	StatusPassed   Status = "passed"
	StatusFailed   Status = "failed"
	StatusBroken   Status = "broken"
	StatusCanceled Status = "canceled"
	StatusPending  Status = "pending"
)

// IsTerminal returns true for statuses that end a case.
// All defined statuses are terminal; the zero value is not.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusPassed, StatusFailed, StatusBroken, StatusCanceled, StatusPending:
		return true
	default:
		return false
	}
}

// Label is a name/value pair attached to a suite or case.
type Label struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

// Well-known label names.
const (
	LabelSeverity = "severity"
	LabelStory    = "story"
	LabelFeature  = "feature"
	LabelIssue    = "issue"
	LabelTestID   = "testId"
)

// Attachment references a file written next to the suite XML.
type Attachment struct {
	Title  string `xml:"title,attr"`
	Source string `xml:"source,attr"`
	Type   string `xml:"type,attr"`
}

// Failure holds the message and stack trace of a non-passed case.
type Failure struct {
	Message    string `xml:"message"`
	StackTrace string `xml:"stack-trace"`
}

// Description is a case description with a type discriminator.
type Description struct {
	Type  string `xml:"type,attr"`
	Value string `xml:",chardata"`
}

// TestCase is a single executed test within a suite.
type TestCase struct {
	Start       int64        `xml:"start,attr"`
	Stop        int64        `xml:"stop,attr"`
	Status      Status       `xml:"status,attr"`
	Name        string       `xml:"name"`
	Title       string       `xml:"title,omitempty"`
	Description *Description `xml:"description,omitempty"`
	Failure     *Failure     `xml:"failure,omitempty"`
	Steps       struct{}     `xml:"steps"`
	Attachments []Attachment `xml:"attachments>attachment"`
	Labels      []Label      `xml:"labels>label"`
}

// TestSuite is one result file: a named suite with its executed cases.
// Marshals to `{uuid}-testsuite.xml` with the ns2 prefix the Allure 1
// report generator expects.
type TestSuite struct {
	XMLName xml.Name `xml:"ns2:test-suite"`
	Xmlns   string   `xml:"xmlns:ns2,attr"`

	UUID  string `xml:"-"`
	Start int64  `xml:"start,attr"`
	Stop  int64  `xml:"stop,attr"`

	Name        string       `xml:"name"`
	Title       string       `xml:"title,omitempty"`
	Description *Description `xml:"description,omitempty"`
	TestCases   []TestCase   `xml:"test-cases>test-case"`
	Labels      []Label      `xml:"labels>label"`
}

// NewTestSuite creates a suite opened at the given instant.
func NewTestSuite(uuid, name string, start time.Time) *TestSuite {
	return &TestSuite{
		Xmlns: XMLNamespace,
		UUID:  uuid,
		Start: TimestampMS(start),
		Name:  name,
	}
}

// FileName returns the result file name for this suite.
func (s *TestSuite) FileName() string {
	return s.UUID + "-testsuite.xml"
}

// CountByStatus returns the number of cases carrying the given status.
func (s *TestSuite) CountByStatus(status Status) int {
	n := 0
	for i := range s.TestCases {
		if s.TestCases[i].Status == status {
			n++
		}
	}
	return n
}

// Marshal serializes the suite to indented XML with the standard header.
func (s *TestSuite) Marshal() ([]byte, error) {
	body, err := xml.MarshalIndent(s, "", "    ")
	if err != nil {
		return nil, fmt.Errorf("marshal suite %s: %w", s.UUID, err)
	}
	out := make([]byte, 0, len(xml.Header)+len(body)+1)
	out = append(out, xml.Header...)
	out = append(out, body...)
	out = append(out, '\n')
	return out, nil
}

// TimestampMS converts a time to the millisecond epoch attrs the format uses.
func TimestampMS(t time.Time) int64 {
	return t.UnixMilli()
}
