package reader

// StubSource returns shape-correct canned data. Command tests install
// it via SetSource so list/inspect/stats actions run without a results
// directory on disk.
type StubSource struct {
	// Err, when set, is returned by every method.
	Err error
}

// NewStubSource creates a stub source with default canned data.
func NewStubSource() *StubSource {
	return &StubSource{}
}

// ListSuites returns the canned suite rows.
func (s *StubSource) ListSuites() ([]SuiteRow, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	return []SuiteRow{
		{
			UUID:       "11111111-2222-3333-4444-555555555555",
			Name:       "CartTest",
			Cases:      3,
			Passed:     2,
			Failed:     1,
			DurationMs: 412,
		},
		{
			UUID:       "66666666-7777-8888-9999-aaaaaaaaaaaa",
			Name:       "CheckoutTest",
			Cases:      2,
			Passed:     1,
			Pending:    1,
			DurationMs: 98,
		},
	}, nil
}

// ListTests returns the canned test rows.
func (s *StubSource) ListTests() ([]TestRow, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	return []TestRow{
		{Suite: "CartTest", SuiteUUID: "11111111-2222-3333-4444-555555555555", Name: "testAddItem", Status: "passed", DurationMs: 120},
		{Suite: "CartTest", SuiteUUID: "11111111-2222-3333-4444-555555555555", Name: "testRemoveItem", Status: "passed", DurationMs: 101},
		{Suite: "CartTest", SuiteUUID: "11111111-2222-3333-4444-555555555555", Name: "testNegativeQuantity", Status: "failed", DurationMs: 191},
		{Suite: "CheckoutTest", SuiteUUID: "66666666-7777-8888-9999-aaaaaaaaaaaa", Name: "testPlaceOrder", Status: "passed", DurationMs: 77},
		{Suite: "CheckoutTest", SuiteUUID: "66666666-7777-8888-9999-aaaaaaaaaaaa", Name: "testExpressLane", Status: "pending", DurationMs: 21},
	}, nil
}

// InspectSuite returns a canned suite detail for the given UUID.
func (s *StubSource) InspectSuite(id string) (*SuiteDetail, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	return &SuiteDetail{
		UUID:       id,
		Name:       "CartTest",
		StartMS:    1700000000000,
		StopMS:     1700000000412,
		DurationMs: 412,
		Labels: []LabelPair{
			{Name: "feature", Value: "cart"},
		},
		Tests: []TestRow{
			{Suite: "CartTest", SuiteUUID: id, Name: "testAddItem", Status: "passed", DurationMs: 120},
			{Suite: "CartTest", SuiteUUID: id, Name: "testNegativeQuantity", Status: "failed", DurationMs: 191},
		},
	}, nil
}

// InspectTest returns a canned test detail.
func (s *StubSource) InspectTest(id, name string) (*TestDetail, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	return &TestDetail{
		Suite:      "CartTest",
		SuiteUUID:  id,
		Name:       name,
		Status:     "failed",
		StartMS:    1700000000100,
		StopMS:     1700000000291,
		DurationMs: 191,
		Message:    "Failed asserting that -1 is greater than 0.",
		Trace:      "CartTest.php:42",
		Labels: []LabelPair{
			{Name: "severity", Value: "critical"},
		},
		Attachments: []AttachmentRow{
			{Title: "cart state", Source: "11111111-2222-3333-4444-555555555555-attachment.txt", MediaType: "text/plain"},
		},
	}, nil
}

// Stats returns canned directory statistics.
func (s *StubSource) Stats() (*StatsResponse, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	return &StatsResponse{
		Dir:         "build/allure-results",
		Suites:      2,
		Cases:       5,
		Passed:      3,
		Failed:      1,
		Pending:     1,
		Attachments: 1,
		DurationMs:  510,
	}, nil
}

// Verify StubSource implements Source.
var _ Source = (*StubSource)(nil)
