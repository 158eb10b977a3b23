package schema

import (
	"encoding/json"
	"strings"

	"github.com/hodei-project/hodei-authz/backend/internal/authzerr"
)

// Document is the merged schema document assembled from every registered
// entity and action fragment, grouped by Cedar namespace.
type Document map[string]namespaceDoc

type namespaceDoc struct {
	EntityTypes map[string]json.RawMessage `json:"entityTypes,omitempty"`
	Actions     map[string]json.RawMessage `json:"actions,omitempty"`
}

// Assemble merges every fragment registered via RegisterEntity/RegisterAction
// into one namespaced schema document, the way auto_discover_schema merges
// per-crate fragments in the system this framework is modeled on. Two
// fragments under one name that differ yield a SchemaConflict; in practice
// the registry already prevents this (RegisterEntity panics on a duplicate
// type name, RegisterAction merges or panics), so each name reaches
// Assemble once.
func Assemble() (Document, error) {
	doc := Document{}
	seen := map[string]string{} // "Namespace::Type" -> raw fragment, for conflict detection

	for _, e := range Entities() {
		ns, short := splitQualified(e.TypeName)
		nd := doc[ns]
		if nd.EntityTypes == nil {
			nd.EntityTypes = map[string]json.RawMessage{}
		}
		key := ns + "::" + short
		if prior, ok := seen[key]; ok && prior != string(e.FragmentJSON) {
			return nil, &authzerr.SchemaConflict{Name: key, First: prior, Second: string(e.FragmentJSON)}
		}
		seen[key] = string(e.FragmentJSON)
		nd.EntityTypes[short] = e.FragmentJSON
		doc[ns] = nd
	}

	for _, a := range Actions() {
		ns, short := splitQualifiedAction(a.Name)
		nd := doc[ns]
		if nd.Actions == nil {
			nd.Actions = map[string]json.RawMessage{}
		}
		key := ns + "::action::" + short
		if prior, ok := seen[key]; ok && prior != string(a.FragmentJSON) {
			return nil, &authzerr.SchemaConflict{Name: key, First: prior, Second: string(a.FragmentJSON)}
		}
		seen[key] = string(a.FragmentJSON)
		nd.Actions[short] = a.FragmentJSON
		doc[ns] = nd
	}

	return doc, nil
}

// MarshalIndent renders the document the same way on every run: entity and
// action keys are sorted lexically by Go's encoding/json map handling, so
// byte-identical re-emission across restarts holds as long as the set of
// registered fragments is unchanged.
func (d Document) MarshalIndent() ([]byte, error) {
	return json.MarshalIndent(d, "", "  ")
}

func splitQualified(typeName string) (ns, short string) {
	idx := strings.LastIndex(typeName, "::")
	if idx < 0 {
		return "", typeName
	}
	return typeName[:idx], typeName[idx+2:]
}

func splitQualifiedAction(name string) (ns, short string) {
	// name is `Namespace::Action::"Variant"`.
	idx := strings.Index(name, `::Action::"`)
	if idx < 0 {
		return "", name
	}
	ns = name[:idx]
	rest := name[idx+len(`::Action::"`):]
	short = strings.TrimSuffix(rest, `"`)
	return ns, short
}
