package reader

import (
	"fmt"

	"github.com/kolsys/allure-phpunit/allure"
	"github.com/kolsys/allure-phpunit/results"
)

// DirSource reads result files from a directory on disk.
type DirSource struct {
	reader *results.Reader
}

// NewDirSource creates a source over the given results directory.
func NewDirSource(dir string) *DirSource {
	return &DirSource{reader: results.NewReader(dir)}
}

var _ Source = (*DirSource)(nil)

// ListSuites returns one row per suite result file.
func (d *DirSource) ListSuites() ([]SuiteRow, error) {
	infos, err := d.reader.ListSuites()
	if err != nil {
		return nil, err
	}
	rows := make([]SuiteRow, 0, len(infos))
	for _, info := range infos {
		rows = append(rows, suiteRow(info.UUID, info.Suite))
	}
	return rows, nil
}

// ListTests returns one row per recorded case across all suites.
func (d *DirSource) ListTests() ([]TestRow, error) {
	infos, err := d.reader.ListSuites()
	if err != nil {
		return nil, err
	}
	var rows []TestRow
	for _, info := range infos {
		for i := range info.Suite.TestCases {
			rows = append(rows, testRow(info.UUID, info.Suite.Name, &info.Suite.TestCases[i]))
		}
	}
	return rows, nil
}

// InspectSuite loads the full view of one suite by UUID.
func (d *DirSource) InspectSuite(id string) (*SuiteDetail, error) {
	suite, err := d.reader.ReadSuite(id)
	if err != nil {
		return nil, err
	}
	detail := &SuiteDetail{
		UUID:       suite.UUID,
		Name:       suite.Name,
		Title:      suite.Title,
		StartMS:    suite.Start,
		StopMS:     suite.Stop,
		DurationMs: suite.Stop - suite.Start,
		Labels:     labelPairs(suite.Labels),
		Tests:      make([]TestRow, 0, len(suite.TestCases)),
	}
	for i := range suite.TestCases {
		detail.Tests = append(detail.Tests, testRow(suite.UUID, suite.Name, &suite.TestCases[i]))
	}
	return detail, nil
}

// InspectTest loads one case by suite UUID and case name.
func (d *DirSource) InspectTest(id, name string) (*TestDetail, error) {
	suite, err := d.reader.ReadSuite(id)
	if err != nil {
		return nil, err
	}
	for i := range suite.TestCases {
		tc := &suite.TestCases[i]
		if tc.Name != name {
			continue
		}
		detail := &TestDetail{
			Suite:      suite.Name,
			SuiteUUID:  suite.UUID,
			Name:       tc.Name,
			Title:      tc.Title,
			Status:     string(tc.Status),
			StartMS:    tc.Start,
			StopMS:     tc.Stop,
			DurationMs: tc.Stop - tc.Start,
			Labels:     labelPairs(tc.Labels),
		}
		if tc.Description != nil {
			detail.Description = tc.Description.Value
		}
		if tc.Failure != nil {
			detail.Message = tc.Failure.Message
			detail.Trace = tc.Failure.StackTrace
		}
		for _, att := range tc.Attachments {
			detail.Attachments = append(detail.Attachments, AttachmentRow{
				Title:     att.Title,
				Source:    att.Source,
				MediaType: att.Type,
			})
		}
		return detail, nil
	}
	return nil, fmt.Errorf("test %q in suite %s: %w", name, id, results.ErrNotFound)
}

// Stats aggregates the whole results directory.
func (d *DirSource) Stats() (*StatsResponse, error) {
	stats, err := d.reader.Stats()
	if err != nil {
		return nil, err
	}
	resp := &StatsResponse{
		Dir:         d.reader.Dir(),
		Suites:      stats.Suites,
		Cases:       stats.Cases,
		Passed:      stats.ByStatus[allure.StatusPassed],
		Failed:      stats.ByStatus[allure.StatusFailed],
		Broken:      stats.ByStatus[allure.StatusBroken],
		Canceled:    stats.ByStatus[allure.StatusCanceled],
		Pending:     stats.ByStatus[allure.StatusPending],
		Attachments: stats.Attachments,
	}
	if stats.StopMS > stats.StartMS {
		resp.DurationMs = stats.StopMS - stats.StartMS
	}
	return resp, nil
}

func suiteRow(uuid string, suite *allure.TestSuite) SuiteRow {
	row := SuiteRow{
		UUID:     uuid,
		Name:     suite.Name,
		Cases:    len(suite.TestCases),
		Passed:   suite.CountByStatus(allure.StatusPassed),
		Failed:   suite.CountByStatus(allure.StatusFailed),
		Broken:   suite.CountByStatus(allure.StatusBroken),
		Canceled: suite.CountByStatus(allure.StatusCanceled),
		Pending:  suite.CountByStatus(allure.StatusPending),
	}
	if suite.Stop > suite.Start {
		row.DurationMs = suite.Stop - suite.Start
	}
	return row
}

func testRow(suiteUUID, suiteName string, tc *allure.TestCase) TestRow {
	row := TestRow{
		Suite:     suiteName,
		SuiteUUID: suiteUUID,
		Name:      tc.Name,
		Status:    string(tc.Status),
	}
	if tc.Stop > tc.Start {
		row.DurationMs = tc.Stop - tc.Start
	}
	return row
}

func labelPairs(labels []allure.Label) []LabelPair {
	if len(labels) == 0 {
		return nil
	}
	pairs := make([]LabelPair, 0, len(labels))
	for _, l := range labels {
		pairs = append(pairs, LabelPair{Name: l.Name, Value: l.Value})
	}
	return pairs
}
