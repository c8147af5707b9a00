package results

import (
	"encoding/xml"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/kolsys/allure-phpunit/allure"
)

// Reader reads report files back from a results directory.
// Used by the CLI to list, inspect, and aggregate past runs.
type Reader struct {
	dir string
}

// NewReader creates a reader over the given results directory.
func NewReader(dir string) *Reader {
	return &Reader{dir: dir}
}

// Dir returns the directory the reader scans.
func (r *Reader) Dir() string {
	return r.dir
}

// SuiteInfo describes one suite report file.
type SuiteInfo struct {
	UUID    string
	Path    string
	Size    int64
	ModTime time.Time
	Suite   *allure.TestSuite
}

// AttachmentInfo describes one attachment file.
type AttachmentInfo struct {
	UUID string
	Path string
	Size int64
}

// RunStats aggregates all suites in a results directory.
type RunStats struct {
	Suites      int
	Cases       int
	ByStatus    map[allure.Status]int
	Attachments int
	// StartMS and StopMS are the earliest start and latest stop across
	// all suites, in epoch milliseconds. Zero when no suites exist.
	StartMS int64
	StopMS  int64
}

// ListSuites reads every suite file in the directory, sorted by suite name.
func (r *Reader) ListSuites() ([]SuiteInfo, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, WrapReadError(err, r.dir)
	}

	var suites []SuiteInfo
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		id, ok := ParseSuiteFileName(entry.Name())
		if !ok {
			continue
		}
		path := filepath.Join(r.dir, entry.Name())
		suite, err := ReadSuiteFile(path)
		if err != nil {
			return nil, err
		}
		suite.UUID = id

		info, err := entry.Info()
		if err != nil {
			return nil, WrapReadError(err, path)
		}
		suites = append(suites, SuiteInfo{
			UUID:    id,
			Path:    path,
			Size:    info.Size(),
			ModTime: info.ModTime(),
			Suite:   suite,
		})
	}

	sort.Slice(suites, func(i, j int) bool {
		if suites[i].Suite.Name != suites[j].Suite.Name {
			return suites[i].Suite.Name < suites[j].Suite.Name
		}
		return suites[i].UUID < suites[j].UUID
	})

	return suites, nil
}

// ReadSuite reads a single suite by UUID.
func (r *Reader) ReadSuite(id string) (*allure.TestSuite, error) {
	path := filepath.Join(r.dir, BuildSuiteFileName(id))
	suite, err := ReadSuiteFile(path)
	if err != nil {
		return nil, err
	}
	suite.UUID = id
	return suite, nil
}

// ListAttachments lists attachment files in the directory.
func (r *Reader) ListAttachments() ([]AttachmentInfo, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, WrapReadError(err, r.dir)
	}

	var attachments []AttachmentInfo
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		id, ok := ParseAttachmentSource(entry.Name())
		if !ok {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return nil, WrapReadError(err, filepath.Join(r.dir, entry.Name()))
		}
		attachments = append(attachments, AttachmentInfo{
			UUID: id,
			Path: filepath.Join(r.dir, entry.Name()),
			Size: info.Size(),
		})
	}

	sort.Slice(attachments, func(i, j int) bool {
		return attachments[i].Path < attachments[j].Path
	})

	return attachments, nil
}

// Stats aggregates status counts and timing across all suites.
func (r *Reader) Stats() (RunStats, error) {
	suites, err := r.ListSuites()
	if err != nil {
		return RunStats{}, err
	}
	attachments, err := r.ListAttachments()
	if err != nil {
		return RunStats{}, err
	}

	stats := RunStats{
		Suites:      len(suites),
		ByStatus:    make(map[allure.Status]int),
		Attachments: len(attachments),
	}
	for _, info := range suites {
		stats.Cases += len(info.Suite.TestCases)
		for i := range info.Suite.TestCases {
			stats.ByStatus[info.Suite.TestCases[i].Status]++
		}
		if stats.StartMS == 0 || info.Suite.Start < stats.StartMS {
			stats.StartMS = info.Suite.Start
		}
		if info.Suite.Stop > stats.StopMS {
			stats.StopMS = info.Suite.Stop
		}
	}

	return stats, nil
}

// ReadSuiteFile parses one suite report file.
//
// The marshaled form carries the ns2 prefix on the root element, which
// encoding/xml cannot match back against the writer struct tags. Decoding
// goes through mirror structs that match local names only, accepting files
// from any Allure 1 writer regardless of prefix style.
func ReadSuiteFile(path string) (*allure.TestSuite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, WrapReadError(err, path)
	}
	suite, err := ParseSuite(data)
	if err != nil {
		return nil, WrapReadError(err, path)
	}
	if id, ok := ParseSuiteFileName(filepath.Base(path)); ok {
		suite.UUID = id
	}
	return suite, nil
}

// ParseSuite parses suite XML bytes.
func ParseSuite(data []byte) (*allure.TestSuite, error) {
	var raw suiteXML
	if err := xml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	return raw.toModel(), nil
}

// Mirror structs for decoding. Tags carry local names only.

type suiteXML struct {
	XMLName     xml.Name        `xml:"test-suite"`
	Start       int64           `xml:"start,attr"`
	Stop        int64           `xml:"stop,attr"`
	Name        string          `xml:"name"`
	Title       string          `xml:"title"`
	Description *descriptionXML `xml:"description"`
	TestCases   []testCaseXML   `xml:"test-cases>test-case"`
	Labels      []labelXML      `xml:"labels>label"`
}

type testCaseXML struct {
	Start       int64           `xml:"start,attr"`
	Stop        int64           `xml:"stop,attr"`
	Status      string          `xml:"status,attr"`
	Name        string          `xml:"name"`
	Title       string          `xml:"title"`
	Description *descriptionXML `xml:"description"`
	Failure     *failureXML     `xml:"failure"`
	Attachments []attachmentXML `xml:"attachments>attachment"`
	Labels      []labelXML      `xml:"labels>label"`
}

type descriptionXML struct {
	Type  string `xml:"type,attr"`
	Value string `xml:",chardata"`
}

type failureXML struct {
	Message    string `xml:"message"`
	StackTrace string `xml:"stack-trace"`
}

type attachmentXML struct {
	Title  string `xml:"title,attr"`
	Source string `xml:"source,attr"`
	Type   string `xml:"type,attr"`
}

type labelXML struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

func (s *suiteXML) toModel() *allure.TestSuite {
	suite := &allure.TestSuite{
		Xmlns: allure.XMLNamespace,
		Start: s.Start,
		Stop:  s.Stop,
		Name:  s.Name,
		Title: s.Title,
	}
	if s.Description != nil {
		suite.Description = &allure.Description{Type: s.Description.Type, Value: s.Description.Value}
	}
	for _, l := range s.Labels {
		suite.Labels = append(suite.Labels, allure.Label{Name: l.Name, Value: l.Value})
	}
	for i := range s.TestCases {
		suite.TestCases = append(suite.TestCases, s.TestCases[i].toModel())
	}
	return suite
}

func (c *testCaseXML) toModel() allure.TestCase {
	tc := allure.TestCase{
		Start:  c.Start,
		Stop:   c.Stop,
		Status: allure.Status(c.Status),
		Name:   c.Name,
		Title:  c.Title,
	}
	if c.Description != nil {
		tc.Description = &allure.Description{Type: c.Description.Type, Value: c.Description.Value}
	}
	if c.Failure != nil {
		tc.Failure = &allure.Failure{Message: c.Failure.Message, StackTrace: c.Failure.StackTrace}
	}
	for _, a := range c.Attachments {
		tc.Attachments = append(tc.Attachments, allure.Attachment{Title: a.Title, Source: a.Source, Type: a.Type})
	}
	for _, l := range c.Labels {
		tc.Labels = append(tc.Labels, allure.Label{Name: l.Name, Value: l.Value})
	}
	return tc
}
