package annotations

import (
	"sync"
)

// Registry is an in-memory Resolver fed by the bootstrap manifest.
// Safe for concurrent reads after loading; loads and reads may interleave
// because the hello frame arrives before any test notification.
type Registry struct {
	mu      sync.RWMutex
	classes map[string][]Annotation
	methods map[string][]Annotation
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		classes: make(map[string][]Annotation),
		methods: make(map[string][]Annotation),
	}
}

// PutClass records the annotations of a class docblock.
// Replaces any previous entry for the class.
func (r *Registry) PutClass(class string, anns []Annotation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.classes[class] = cloneAnnotations(anns)
}

// PutMethod records the annotations of a method docblock.
// Replaces any previous entry for the class::method pair.
func (r *Registry) PutMethod(class, method string, anns []Annotation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.methods[methodKey(class, method)] = cloneAnnotations(anns)
}

// ForClass returns the annotations declared on the class docblock.
// Unknown classes yield nil.
func (r *Registry) ForClass(class string) []Annotation {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return cloneAnnotations(r.classes[class])
}

// ForMethod returns the annotations declared on the method docblock.
// Unknown pairs yield nil.
func (r *Registry) ForMethod(class, method string) []Annotation {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return cloneAnnotations(r.methods[methodKey(class, method)])
}

// Len returns the number of class and method entries.
func (r *Registry) Len() (classes, methods int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.classes), len(r.methods)
}

func methodKey(class, method string) string {
	return class + "::" + method
}

// cloneAnnotations copies the slice so callers cannot mutate registry state.
func cloneAnnotations(anns []Annotation) []Annotation {
	if anns == nil {
		return nil
	}
	out := make([]Annotation, len(anns))
	for i, a := range anns {
		out[i] = Annotation{Name: a.Name, Values: append([]string(nil), a.Values...)}
	}
	return out
}

// Verify Registry implements Resolver.
var _ Resolver = (*Registry)(nil)
