package reader

// Source resolves read-only CLI queries against a results directory.
//
// Production wires DirSource over the on-disk result files; tests swap
// in StubSource via SetSource.
type Source interface {
	// ListSuites returns one row per suite result file, ordered by
	// suite name then UUID.
	ListSuites() ([]SuiteRow, error)

	// ListTests returns one row per recorded case across all suites,
	// in suite order.
	ListTests() ([]TestRow, error)

	// InspectSuite loads the full view of one suite by UUID.
	InspectSuite(id string) (*SuiteDetail, error)

	// InspectTest loads one case by suite UUID and case name.
	InspectTest(id, name string) (*TestDetail, error)

	// Stats aggregates the whole results directory.
	Stats() (*StatsResponse, error)
}

var defaultSource Source

// SetSource installs a package-level source override. Returns the
// previous value so tests can restore it.
func SetSource(s Source) Source {
	prev := defaultSource
	defaultSource = s
	return prev
}

// GetSource returns the current override, or nil when none is set.
func GetSource() Source { return defaultSource }

// Open returns the source for a results directory. An installed
// override wins over the directory-backed implementation.
func Open(dir string) Source {
	if defaultSource != nil {
		return defaultSource
	}
	return NewDirSource(dir)
}
