package schema

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/cedar-policy/cedar-go"
	"github.com/hodei-project/hodei-authz/backend/internal/hrn"
)

// fieldPlan is computed once, at DeriveEntity time, so that Project never
// re-walks T's struct tags per request; Project still reads field values
// through reflect on every call.
type fieldPlan struct {
	name       string
	kind       reflect.Kind
	cedarType  string // "String", "Long", "Boolean", "Entity"
	entityType string // set when cedarType == "Entity"
}

// DeriveEntity builds an EntityDescriptor for T by walking its struct tags
// once. T must have exactly one field tagged `cedar:"id"` of type hrn.HRN;
// every other exported field is projected as a Cedar attribute according to
// its Go type (string/int-family/bool map to String/Long/Boolean; an
// hrn.HRN field tagged `cedar:"entity=Type"` maps to an Entity(Type)
// reference). This is the reflection-based stand-in for a derive macro.
func DeriveEntity[T any](entityType string) EntityDescriptor {
	var zero T
	rt := reflect.TypeOf(zero)
	if rt.Kind() != reflect.Struct {
		panic(fmt.Sprintf("schema: DeriveEntity[%s]: T must be a struct", entityType))
	}

	idField := -1
	var plans []fieldPlan

	for i := 0; i < rt.NumField(); i++ {
		f := rt.Field(i)
		if !f.IsExported() {
			continue
		}
		tag := f.Tag.Get("cedar")
		if tag == "id" {
			if f.Type != reflect.TypeOf(hrn.HRN{}) {
				panic(fmt.Sprintf("schema: DeriveEntity[%s]: id field %q must be hrn.HRN", entityType, f.Name))
			}
			idField = i
			continue
		}

		plan := fieldPlan{name: f.Name, kind: f.Type.Kind()}
		switch {
		case len(tag) > len("entity=") && tag[:len("entity=")] == "entity=":
			plan.cedarType = "Entity"
			plan.entityType = tag[len("entity="):]
		case f.Type == reflect.TypeOf(hrn.HRN{}):
			plan.cedarType = "String"
		case plan.kind == reflect.String:
			plan.cedarType = "String"
		case plan.kind == reflect.Int, plan.kind == reflect.Int8, plan.kind == reflect.Int16,
			plan.kind == reflect.Int32, plan.kind == reflect.Int64,
			plan.kind == reflect.Uint, plan.kind == reflect.Uint8, plan.kind == reflect.Uint16,
			plan.kind == reflect.Uint32, plan.kind == reflect.Uint64:
			plan.cedarType = "Long"
		case plan.kind == reflect.Bool:
			plan.cedarType = "Boolean"
		default:
			plan.cedarType = "String"
		}
		plans = append(plans, plan)
	}

	if idField < 0 {
		panic(fmt.Sprintf("schema: DeriveEntity[%s]: no field tagged cedar:\"id\"", entityType))
	}

	project := func(value any) (cedar.Entity, error) {
		rv := reflect.ValueOf(value)
		for rv.Kind() == reflect.Pointer {
			rv = rv.Elem()
		}
		if rv.Type() != rt {
			return cedar.Entity{}, fmt.Errorf("schema: expected %s, got %T", rt, value)
		}

		idVal := rv.Field(idField).Interface().(hrn.HRN)
		uid := cedar.NewEntityUID(cedar.EntityType(entityType), cedar.String(idVal.String()))

		attrs := cedar.RecordMap{}
		var parents []cedar.EntityUID
		for _, p := range plans {
			fv := rv.FieldByName(p.name)
			switch p.cedarType {
			case "String":
				if p.kind == reflect.String {
					attrs[attrToKey(p.name)] = cedar.String(fv.String())
				} else {
					attrs[attrToKey(p.name)] = cedar.String(fmt.Sprintf("%v", fv.Interface()))
				}
			case "Long":
				if fv.CanInt() {
					attrs[attrToKey(p.name)] = cedar.Long(fv.Int())
				} else {
					attrs[attrToKey(p.name)] = cedar.Long(int64(fv.Uint()))
				}
			case "Boolean":
				attrs[attrToKey(p.name)] = cedar.Boolean(fv.Bool())
			case "Entity":
				refHRN, ok := fv.Interface().(hrn.HRN)
				if !ok {
					return cedar.Entity{}, fmt.Errorf("schema: field %q tagged entity= must be hrn.HRN", p.name)
				}
				refUID := cedar.NewEntityUID(cedar.EntityType(p.entityType), cedar.String(refHRN.String()))
				attrs[attrToKey(p.name)] = refUID
				parents = append(parents, refUID)
			}
		}

		// Synthetic tenant_id/service attributes, carried from the HRN
		// identity, so policies can reason about tenant isolation without
		// every struct needing its own tenant field.
		attrs["tenant_id"] = cedar.String(idVal.TenantID)
		attrs["service"] = cedar.String(idVal.Service)

		return cedar.Entity{
			UID:        uid,
			Attributes: cedar.NewRecord(attrs),
			Parents:    parents,
		}, nil
	}

	return EntityDescriptor{
		TypeName:     entityType,
		FragmentJSON: entityFragmentJSON(entityType, plans),
		Project:      project,
	}
}

func attrToKey(fieldName string) string {
	if fieldName == "" {
		return fieldName
	}
	r := []rune(fieldName)
	r[0] = toLower(r[0])
	return string(r)
}

func toLower(r rune) rune {
	if r >= 'A' && r <= 'Z' {
		return r + ('a' - 'A')
	}
	return r
}

func entityFragmentJSON(entityType string, plans []fieldPlan) json.RawMessage {
	shape := map[string]any{}
	attrs := map[string]any{}
	for _, p := range plans {
		switch p.cedarType {
		case "Entity":
			attrs[attrToKey(p.name)] = map[string]string{"type": "Entity", "name": p.entityType}
		default:
			attrs[attrToKey(p.name)] = map[string]string{"type": p.cedarType}
		}
	}
	attrs["tenant_id"] = map[string]string{"type": "String"}
	attrs["service"] = map[string]string{"type": "String"}
	shape["shape"] = map[string]any{"type": "Record", "attributes": attrs}

	doc := map[string]any{entityType: shape}
	b, err := json.Marshal(doc)
	if err != nil {
		panic(err)
	}
	return b
}
