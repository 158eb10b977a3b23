// Package authz implements the authorization pipeline: it takes a
// principal value, an action value, an optional resource value, and a
// request context, projects them through the schema registry into a
// Cedar request, and evaluates it against the currently active policy
// set. It never auto-hydrates related entities — policies compare uids,
// nothing more.
package authz

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cedar-policy/cedar-go"
	"github.com/hodei-project/hodei-authz/backend/internal/authzerr"
	"github.com/hodei-project/hodei-authz/backend/internal/policycell"
	"github.com/hodei-project/hodei-authz/backend/internal/schema"
)

// Decision is the outcome of an authorization request.
type Decision string

const (
	Allow Decision = "ALLOW"
	Deny  Decision = "DENY"
)

// Action names an action-variant value. It places no constraint on the
// value, and the pipeline does not use it: Authorize dispatches on
// Request.ActionName.
type Action any

// Request carries everything the pipeline needs to build and evaluate one
// Cedar request.
type Request struct {
	// ActionName is the fully-qualified action name, e.g.
	// `DocApp::Action::"Read"`.
	ActionName string
	Principal  any
	// Resource is nil for actions that create their own resource from
	// Payload.
	Resource any
	// Payload is the action's own struct (e.g. DocumentCreate{...}); used
	// for virtual resource materialization.
	Payload any
	Context schema.RequestContext
	// CedarContext is optional caller-supplied JSON merged into the
	// request context record under the "input" key.
	CedarContext json.RawMessage
}

// Pipeline evaluates requests against a policycell.Cell.
type Pipeline struct {
	cell *policycell.Cell
}

// New builds a Pipeline reading from cell.
func New(cell *policycell.Cell) *Pipeline {
	return &Pipeline{cell: cell}
}

// Authorize runs the full projection-and-evaluate pipeline for req.
func (p *Pipeline) Authorize(ctx context.Context, req Request) (Decision, error) {
	actionDesc, ok := schema.LookupAction(req.ActionName)
	if !ok {
		return Deny, fmt.Errorf("authz: action %q is not registered", req.ActionName)
	}

	principalEntity, principalUID, err := projectNamed(actionDesc.PrincipalTypes, req.Principal)
	if err != nil {
		return Deny, &authzerr.ProjectionError{TypeName: "principal", Err: err}
	}

	var resourceEntity cedar.Entity
	var resourceUID cedar.EntityUID

	if actionDesc.CreatesResource {
		if req.Payload == nil {
			return Deny, &authzerr.VirtualResourceError{Err: fmt.Errorf("action %q requires a payload", req.ActionName)}
		}
		resourceEntity, err = actionDesc.Materialize(req.Payload, req.Context)
		if err != nil {
			return Deny, &authzerr.VirtualResourceError{Err: err}
		}
		resourceUID = resourceEntity.UID
	} else {
		if req.Resource == nil {
			return Deny, &authzerr.ResourceNotFound{ResourceType: firstOrEmpty(actionDesc.ResourceTypes)}
		}
		resourceEntity, resourceUID, err = projectNamed(actionDesc.ResourceTypes, req.Resource)
		if err != nil {
			return Deny, &authzerr.ProjectionError{TypeName: "resource", Err: err}
		}
	}

	entities := cedar.EntityMap{
		principalUID: principalEntity,
		resourceUID:  resourceEntity,
	}

	contextRecord := buildContextRecord(req.Context, req.CedarContext)

	cedarReq := cedar.Request{
		Principal: principalUID,
		Action:    actionDesc.ActionUID(req.Payload),
		Resource:  resourceUID,
		Context:   contextRecord,
	}

	ps := p.cell.Load()
	ok, diagnostics := cedar.Authorize(ps, entities, cedarReq)
	if len(diagnostics.Errors) > 0 {
		return Deny, &authzerr.EvaluatorError{Err: fmt.Errorf("%v", diagnostics.Errors)}
	}
	if ok {
		return Allow, nil
	}
	return Deny, nil
}

// projectNamed tries every candidate type name registered for an action's
// principal/resource slot until one of them can project value; this
// supports actions whose appliesTo spans more than one concrete type.
func projectNamed(candidateTypes []string, value any) (cedar.Entity, cedar.EntityUID, error) {
	var lastErr error
	for _, typeName := range candidateTypes {
		desc, ok := schema.LookupEntity(typeName)
		if !ok {
			continue
		}
		entity, err := desc.Project(value)
		if err != nil {
			lastErr = err
			continue
		}
		return entity, entity.UID, nil
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no entity descriptor registered for types %v", candidateTypes)
	}
	return cedar.Entity{}, cedar.EntityUID{}, lastErr
}

func firstOrEmpty(ss []string) string {
	if len(ss) == 0 {
		return ""
	}
	return ss[0]
}

func buildContextRecord(rc schema.RequestContext, raw json.RawMessage) cedar.Record {
	m := cedar.RecordMap{
		"tenant_id": cedar.String(rc.TenantID),
	}
	attrs := cedar.RecordMap{}
	for k, v := range rc.Attrs {
		attrs[k] = cedar.String(v)
	}
	m["attrs"] = cedar.NewRecord(attrs)

	if len(raw) > 0 {
		var generic map[string]any
		if err := json.Unmarshal(raw, &generic); err == nil {
			m["input"] = cedar.NewRecord(jsonToRecordMap(generic))
		}
	}

	return cedar.NewRecord(m)
}

func jsonToRecordMap(m map[string]any) cedar.RecordMap {
	out := cedar.RecordMap{}
	for k, v := range m {
		out[k] = jsonToValue(v)
	}
	return out
}

func jsonToValue(v any) cedar.Value {
	switch t := v.(type) {
	case string:
		return cedar.String(t)
	case bool:
		return cedar.Boolean(t)
	case float64:
		return cedar.Long(int64(t))
	case map[string]any:
		return cedar.NewRecord(jsonToRecordMap(t))
	case []any:
		values := make([]cedar.Value, len(t))
		for i, e := range t {
			values[i] = jsonToValue(e)
		}
		return cedar.NewSet(values...)
	default:
		return cedar.String(fmt.Sprintf("%v", t))
	}
}
