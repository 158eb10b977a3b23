package schema

import (
	"encoding/json"

	"github.com/cedar-policy/cedar-go"
)

// VirtualResourceMaterializer is implemented by the payload type of any
// action registered with WithCreatesResource: since a Create-style action
// has no pre-existing resource row, the payload itself is projected into a
// transient entity for evaluation.
type VirtualResourceMaterializer interface {
	ToVirtualEntity(ctx RequestContext) (cedar.Entity, error)
}

type actionOptions struct {
	createsResource bool
}

// ActionOption configures RegisterAction.
type ActionOption func(*actionOptions)

// WithCreatesResource marks an action variant as materializing its own
// resource from the request payload rather than looking one up.
func WithCreatesResource() ActionOption {
	return func(o *actionOptions) { o.createsResource = true }
}

// DeriveAction registers the action descriptor for a Go sum-type variant
// Go has no tagged unions, so the command union described by the
// authorization model is realized as one struct per variant implementing a
// marker interface; DeriveAction is called once per variant from an
// init() function, the reflection-free analogue of a derive macro since
// there is exactly one shape to project (the struct itself is the
// payload).
func DeriveAction[T any](name string, principalType string, resourceTypes []string, opts ...ActionOption) {
	var cfg actionOptions
	for _, o := range opts {
		o(&cfg)
	}

	var materialize func(any, RequestContext) (cedar.Entity, error)
	if cfg.createsResource {
		materialize = func(value any, ctx RequestContext) (cedar.Entity, error) {
			m, ok := value.(VirtualResourceMaterializer)
			if !ok {
				var zero T
				return cedar.Entity{}, &typeAssertionError{name: name, want: zero}
			}
			return m.ToVirtualEntity(ctx)
		}
	}

	actionType, variant := splitActionName(name)

	RegisterAction(ActionDescriptor{
		Name:            name,
		FragmentJSON:    actionFragmentJSON(name, []string{principalType}, resourceTypes),
		PrincipalTypes:  []string{principalType},
		ResourceTypes:   resourceTypes,
		CreatesResource: cfg.createsResource,
		ActionUID: func(any) cedar.EntityUID {
			return cedar.NewEntityUID(cedar.EntityType(actionType), cedar.String(variant))
		},
		Materialize: materialize,
	})
}

// splitActionName turns `Namespace::Action::"Variant"` into the Cedar entity
// type `Namespace::Action` and the bare variant id `Variant`, matching how
// cedar-go itself parses an action reference out of policy source.
func splitActionName(name string) (entityType, variant string) {
	const marker = `Action::"`
	idx := indexOf(name, marker)
	if idx < 0 {
		return name, ""
	}
	entityType = name[:idx] + "Action"
	rest := name[idx+len(marker):]
	variant = rest
	if len(rest) > 0 && rest[len(rest)-1] == '"' {
		variant = rest[:len(rest)-1]
	}
	return entityType, variant
}

type typeAssertionError struct {
	name string
	want any
}

func (e *typeAssertionError) Error() string {
	return "schema: action " + e.name + " payload does not implement VirtualResourceMaterializer"
}

func actionFragmentJSON(name string, principalTypes []string, resourceTypes []string) json.RawMessage {
	doc := map[string]any{
		"name":      name,
		"appliesTo": map[string]any{"principalTypes": principalTypes, "resourceTypes": resourceTypes},
	}
	b, err := json.Marshal(doc)
	if err != nil {
		panic(err)
	}
	return b
}
