// Package demo implements the worked example from the design brief this
// framework follows: a DocApp namespace with User and Document entities
// and Read/Create/Delete actions, used both as a reference integration and
// as the fixture for the end-to-end scenario tests.
package demo

import (
	"github.com/cedar-policy/cedar-go"
	"github.com/hodei-project/hodei-authz/backend/internal/hrn"
	"github.com/hodei-project/hodei-authz/backend/internal/schema"
)

// User is the principal type for every action in this namespace.
type User struct {
	ID   hrn.HRN `cedar:"id"`
	Role string
}

// Document is the resource type for Read and Delete.
type Document struct {
	ID      hrn.HRN `cedar:"id"`
	Owner   hrn.HRN `cedar:"entity=DocApp::User"`
	Private bool
}

// DocumentRead is the `DocApp::Action::"Read"` variant.
type DocumentRead struct{}

func (DocumentRead) hodeiAction() {}

// DocumentDelete is the `DocApp::Action::"Delete"` variant.
type DocumentDelete struct{}

func (DocumentDelete) hodeiAction() {}

// NewDocumentPayload is the payload of `DocApp::Action::"Create"`: since a
// create action has no pre-existing resource, the payload materializes its
// own transient entity for evaluation.
type NewDocumentPayload struct {
	OwnerID hrn.HRN
	Private bool
}

// DocumentCreate is the `DocApp::Action::"Create"` variant.
type DocumentCreate struct {
	Payload NewDocumentPayload
}

func (DocumentCreate) hodeiAction() {}

// ToVirtualEntity delegates to the payload so DocumentCreate itself
// satisfies VirtualResourceMaterializer: callers pass the action variant
// as Request.Payload, the same value for every action kind.
func (a DocumentCreate) ToVirtualEntity(ctx schema.RequestContext) (cedar.Entity, error) {
	return a.Payload.ToVirtualEntity(ctx)
}

func (p NewDocumentPayload) ToVirtualEntity(ctx schema.RequestContext) (cedar.Entity, error) {
	ownerUID := cedar.NewEntityUID("DocApp::User", cedar.String(p.OwnerID.String()))
	uid := cedar.NewEntityUID("DocApp::Document", cedar.String("pending"))
	return cedar.Entity{
		UID: uid,
		Attributes: cedar.NewRecord(cedar.RecordMap{
			"owner":     ownerUID,
			"private":   cedar.Boolean(p.Private),
			"tenant_id": cedar.String(ctx.TenantID),
			"service":   cedar.String(p.OwnerID.Service),
		}),
		Parents: []cedar.EntityUID{ownerUID},
	}, nil
}

func init() {
	schema.RegisterEntity(schema.DeriveEntity[User]("DocApp::User"))
	schema.RegisterEntity(schema.DeriveEntity[Document]("DocApp::Document"))

	schema.DeriveAction[DocumentRead](`DocApp::Action::"Read"`, "DocApp::User", []string{"DocApp::Document"})
	schema.DeriveAction[DocumentDelete](`DocApp::Action::"Delete"`, "DocApp::User", []string{"DocApp::Document"})
	schema.DeriveAction[DocumentCreate](`DocApp::Action::"Create"`, "DocApp::User", []string{"DocApp::Document"},
		schema.WithCreatesResource())
}
