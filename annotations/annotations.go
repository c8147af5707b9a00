// Package annotations models PHPUnit docblock annotations and maps them
// to report labels. Lookup is interface-driven so hosts can supply their
// own source; the runtime feeds a Registry from the bootstrap manifest.
package annotations

import (
	"strings"
)

// Annotation is a single parsed docblock annotation.
type Annotation struct {
	// Name is the annotation name without the leading @.
	Name string
	// Values are the annotation arguments, one per occurrence line.
	Values []string
}

// Resolver is the metadata lookup capability the adapter consumes.
// Implementations must tolerate unknown classes and methods by returning
// empty slices, never errors.
type Resolver interface {
	// ForClass returns the annotations declared on the class docblock.
	ForClass(class string) []Annotation
	// ForMethod returns the annotations declared on the method docblock.
	ForMethod(class, method string) []Annotation
}

// builtinIgnored lists the PHPUnit structural annotations that never
// become labels. Matching is case-insensitive.
var builtinIgnored = []string{
	"test",
	"testdox",
	"testWith",
	"before",
	"beforeClass",
	"after",
	"afterClass",
	"dataProvider",
	"depends",
	"group",
	"small",
	"medium",
	"large",
	"covers",
	"coversDefaultClass",
	"coversNothing",
	"uses",
	"requires",
	"expectedException",
	"expectedExceptionCode",
	"expectedExceptionMessage",
	"expectedExceptionMessageRegExp",
	"backupGlobals",
	"backupStaticAttributes",
	"preserveGlobalState",
	"runInSeparateProcess",
	"runTestsInSeparateProcesses",
	"doesNotPerformAssertions",
}

// Filter drops ignored annotations from lookup results.
type Filter struct {
	ignored map[string]struct{}
}

// NewFilter creates a filter over the built-in ignore set merged with the
// given extra names. Extra names may be empty; duplicates are harmless.
func NewFilter(extra ...string) *Filter {
	ignored := make(map[string]struct{}, len(builtinIgnored)+len(extra))
	for _, name := range builtinIgnored {
		ignored[strings.ToLower(name)] = struct{}{}
	}
	for _, name := range extra {
		if name == "" {
			continue
		}
		ignored[strings.ToLower(name)] = struct{}{}
	}
	return &Filter{ignored: ignored}
}

// Ignored reports whether the annotation name is filtered out.
func (f *Filter) Ignored(name string) bool {
	_, ok := f.ignored[strings.ToLower(name)]
	return ok
}

// Apply returns the annotations that survive the ignore set.
// The input slice is never mutated.
func (f *Filter) Apply(anns []Annotation) []Annotation {
	if len(anns) == 0 {
		return nil
	}
	kept := make([]Annotation, 0, len(anns))
	for _, a := range anns {
		if f.Ignored(a.Name) {
			continue
		}
		kept = append(kept, a)
	}
	return kept
}

// BuiltinIgnoredCount returns the size of the built-in ignore set.
func BuiltinIgnoredCount() int {
	return len(builtinIgnored)
}
