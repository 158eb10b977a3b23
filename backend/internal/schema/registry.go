// Package schema implements the schema fragment registry and the
// entity/action projection machinery described by the authorization
// framework: it is the Go-idiomatic substitute for a derive-macro based
// compile-time registration, built the same way database/sql drivers
// register themselves — packages call Register* from an init() function,
// and Assemble() merges every fragment registered by process start.
package schema

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/cedar-policy/cedar-go"
)

// EntityDescriptor describes how a Go type projects into a Cedar entity.
type EntityDescriptor struct {
	TypeName     string
	FragmentJSON json.RawMessage
	Project      func(value any) (cedar.Entity, error)
}

// ActionDescriptor describes how a Go action variant projects into a
// Cedar action invocation.
type ActionDescriptor struct {
	// Name is the fully-qualified action name, e.g. `DocApp::Action::"Read"`.
	Name             string
	FragmentJSON     json.RawMessage
	PrincipalTypes   []string
	ResourceTypes    []string
	CreatesResource  bool
	ActionUID        func(value any) cedar.EntityUID
	// Materialize builds the virtual resource entity for a creating
	// action. Nil for non-creating actions.
	Materialize func(value any, ctx RequestContext) (cedar.Entity, error)
}

// RequestContext is the ambient, non-entity context carried alongside a
// projection (tenant id and free-form string attributes).
type RequestContext struct {
	TenantID string
	Attrs    map[string]string
}

var (
	mu       sync.Mutex
	entities = map[string]EntityDescriptor{}
	actions  = map[string]ActionDescriptor{}
)

// RegisterEntity adds an entity descriptor to the process-global
// registry. Intended to be called from an init() function; panics on a
// duplicate type name, since that always indicates two packages fighting
// over the same entity type at link time.
func RegisterEntity(d EntityDescriptor) {
	mu.Lock()
	defer mu.Unlock()
	if d.TypeName == "" {
		panic("schema: entity descriptor has empty TypeName")
	}
	if existing, ok := entities[d.TypeName]; ok {
		panic(fmt.Sprintf("schema: entity type %q already registered (%v)", d.TypeName, existing))
	}
	entities[d.TypeName] = d
}

// RegisterAction adds an action descriptor to the process-global registry.
// Name must be fully qualified (`Namespace::Action::"Variant"`); a bare
// variant name is rejected so the schema never accidentally admits the
// original system's unqualified action form.
//
// Two command unions are allowed to register the same qualified action
// name, as happens when a second package contributes another resource type
// an existing action applies to: as long as both registrations agree on
// the principal type set, the two descriptors merge — ResourceTypes is the
// union of both, CreatesResource is true if either says so. If the
// principal type sets differ, that's a genuine conflict and registration
// panics, since the two packages disagree about who can even invoke the
// action.
func RegisterAction(d ActionDescriptor) {
	mu.Lock()
	defer mu.Unlock()
	if d.Name == "" {
		panic("schema: action descriptor has empty Name")
	}
	if !isQualifiedActionName(d.Name) {
		panic(fmt.Sprintf("schema: action name %q must be namespace-qualified, e.g. Namespace::Action::\"Variant\"", d.Name))
	}
	if d.CreatesResource && d.Materialize == nil {
		panic(fmt.Sprintf("schema: action %q is marked CreatesResource but has no Materialize func", d.Name))
	}

	existing, ok := actions[d.Name]
	if !ok {
		actions[d.Name] = d
		return
	}

	if !stringSetEqual(existing.PrincipalTypes, d.PrincipalTypes) {
		panic(fmt.Sprintf("schema: action %q registered with conflicting principal types %v vs %v", d.Name, existing.PrincipalTypes, d.PrincipalTypes))
	}

	merged := existing
	merged.ResourceTypes = unionStrings(existing.ResourceTypes, d.ResourceTypes)
	merged.CreatesResource = existing.CreatesResource || d.CreatesResource
	if merged.Materialize == nil {
		merged.Materialize = d.Materialize
	}
	merged.FragmentJSON = actionFragmentJSON(d.Name, existing.PrincipalTypes, merged.ResourceTypes)
	actions[d.Name] = merged
}

// stringSetEqual compares two string slices as sets (order-independent).
func stringSetEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	seen := map[string]bool{}
	for _, s := range a {
		seen[s] = true
	}
	for _, s := range b {
		if !seen[s] {
			return false
		}
	}
	return true
}

// unionStrings merges two string slices, preserving first-seen order and
// dropping duplicates.
func unionStrings(a, b []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(a)+len(b))
	for _, s := range append(append([]string{}, a...), b...) {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

func isQualifiedActionName(name string) bool {
	// Qualified form: `Namespace::Action::"Variant"` — at least one
	// namespace segment before the trailing `Action::"..."` part.
	const marker = `Action::"`
	idx := indexOf(name, marker)
	return idx > 2 && name[idx-2:idx] == "::" && len(name) > idx+len(marker) && name[len(name)-1] == '"'
}

func indexOf(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}

// Entities returns a stable, name-sorted snapshot of the registered entity
// descriptors.
func Entities() []EntityDescriptor {
	mu.Lock()
	defer mu.Unlock()
	out := make([]EntityDescriptor, 0, len(entities))
	for _, d := range entities {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TypeName < out[j].TypeName })
	return out
}

// Actions returns a stable, name-sorted snapshot of the registered action
// descriptors.
func Actions() []ActionDescriptor {
	mu.Lock()
	defer mu.Unlock()
	out := make([]ActionDescriptor, 0, len(actions))
	for _, d := range actions {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// LookupEntity returns the descriptor registered for typeName.
func LookupEntity(typeName string) (EntityDescriptor, bool) {
	mu.Lock()
	defer mu.Unlock()
	d, ok := entities[typeName]
	return d, ok
}

// LookupAction returns the descriptor registered for name.
func LookupAction(name string) (ActionDescriptor, bool) {
	mu.Lock()
	defer mu.Unlock()
	d, ok := actions[name]
	return d, ok
}

// reset clears the registry. Test-only: package-internal so production
// code can never call it.
func reset() {
	mu.Lock()
	defer mu.Unlock()
	entities = map[string]EntityDescriptor{}
	actions = map[string]ActionDescriptor{}
}
