package schema

import (
	"testing"

	"github.com/cedar-policy/cedar-go"
	"github.com/hodei-project/hodei-authz/backend/internal/hrn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testUser struct {
	ID   hrn.HRN `cedar:"id"`
	Name string
}

type testDocument struct {
	ID      hrn.HRN `cedar:"id"`
	Owner   hrn.HRN `cedar:"entity=DocApp::User"`
	Private bool
}

func TestDeriveEntityProjectsUIDsAndParents(t *testing.T) {
	t.Cleanup(reset)

	userHRN, err := hrn.Build("docs", "tenant-a", "user/alice")
	require.NoError(t, err)
	docHRN, err := hrn.Build("docs", "tenant-a", "document/doc-1")
	require.NoError(t, err)

	userDesc := DeriveEntity[testUser]("DocApp::User")
	docDesc := DeriveEntity[testDocument]("DocApp::Document")

	ownerEntity, err := userDesc.Project(testUser{ID: userHRN, Name: "Alice"})
	require.NoError(t, err)
	assert.Equal(t, cedar.NewEntityUID("DocApp::User", cedar.String(userHRN.String())), ownerEntity.UID)

	docEntity, err := docDesc.Project(testDocument{ID: docHRN, Owner: userHRN, Private: true})
	require.NoError(t, err)
	assert.Equal(t, cedar.NewEntityUID("DocApp::Document", cedar.String(docHRN.String())), docEntity.UID)
	assert.Contains(t, docEntity.Parents, cedar.NewEntityUID("DocApp::User", cedar.String(userHRN.String())))
}

func TestRegisterEntityRejectsDuplicate(t *testing.T) {
	t.Cleanup(reset)
	RegisterEntity(DeriveEntity[testUser]("DocApp::User"))
	assert.Panics(t, func() {
		RegisterEntity(DeriveEntity[testUser]("DocApp::User"))
	})
}

func TestRegisterActionRejectsUnqualifiedName(t *testing.T) {
	t.Cleanup(reset)
	assert.Panics(t, func() {
		RegisterAction(ActionDescriptor{Name: `"Read"`})
	})
}

func TestRegisterActionAcceptsQualifiedName(t *testing.T) {
	t.Cleanup(reset)
	assert.NotPanics(t, func() {
		DeriveAction[struct{}](`DocApp::Action::"Read"`, "DocApp::User", []string{"DocApp::Document"})
	})
	_, ok := LookupAction(`DocApp::Action::"Read"`)
	assert.True(t, ok)
}

func TestRegisterActionMergesOverlappingResourceTypes(t *testing.T) {
	t.Cleanup(reset)
	RegisterAction(ActionDescriptor{
		Name:           `DocApp::Action::"Share"`,
		FragmentJSON:   actionFragmentJSON(`DocApp::Action::"Share"`, []string{"DocApp::User"}, []string{"DocApp::Document"}),
		PrincipalTypes: []string{"DocApp::User"},
		ResourceTypes:  []string{"DocApp::Document"},
	})
	assert.NotPanics(t, func() {
		RegisterAction(ActionDescriptor{
			Name:           `DocApp::Action::"Share"`,
			FragmentJSON:   actionFragmentJSON(`DocApp::Action::"Share"`, []string{"DocApp::User"}, []string{"DocApp::Folder"}),
			PrincipalTypes: []string{"DocApp::User"},
			ResourceTypes:  []string{"DocApp::Folder"},
		})
	})

	merged, ok := LookupAction(`DocApp::Action::"Share"`)
	require.True(t, ok)
	assert.ElementsMatch(t, []string{"DocApp::Document", "DocApp::Folder"}, merged.ResourceTypes)
}

func TestRegisterActionRejectsConflictingPrincipalTypes(t *testing.T) {
	t.Cleanup(reset)
	RegisterAction(ActionDescriptor{
		Name:           `DocApp::Action::"Share"`,
		FragmentJSON:   actionFragmentJSON(`DocApp::Action::"Share"`, []string{"DocApp::User"}, []string{"DocApp::Document"}),
		PrincipalTypes: []string{"DocApp::User"},
		ResourceTypes:  []string{"DocApp::Document"},
	})
	assert.Panics(t, func() {
		RegisterAction(ActionDescriptor{
			Name:           `DocApp::Action::"Share"`,
			FragmentJSON:   actionFragmentJSON(`DocApp::Action::"Share"`, []string{"DocApp::Service"}, []string{"DocApp::Document"}),
			PrincipalTypes: []string{"DocApp::Service"},
			ResourceTypes:  []string{"DocApp::Document"},
		})
	})
}

func TestAssembleMergesFragmentsByNamespace(t *testing.T) {
	t.Cleanup(reset)
	RegisterEntity(DeriveEntity[testUser]("DocApp::User"))
	RegisterEntity(DeriveEntity[testDocument]("DocApp::Document"))
	DeriveAction[struct{}](`DocApp::Action::"Read"`, "DocApp::User", []string{"DocApp::Document"})

	doc, err := Assemble()
	require.NoError(t, err)

	ns, ok := doc["DocApp"]
	require.True(t, ok)
	assert.Contains(t, ns.EntityTypes, "User")
	assert.Contains(t, ns.EntityTypes, "Document")
	assert.Contains(t, ns.Actions, "Read")
}

func TestAssembleIsDeterministic(t *testing.T) {
	t.Cleanup(reset)
	RegisterEntity(DeriveEntity[testUser]("DocApp::User"))
	RegisterEntity(DeriveEntity[testDocument]("DocApp::Document"))

	doc1, err := Assemble()
	require.NoError(t, err)
	b1, err := doc1.MarshalIndent()
	require.NoError(t, err)

	doc2, err := Assemble()
	require.NoError(t, err)
	b2, err := doc2.MarshalIndent()
	require.NoError(t, err)

	assert.Equal(t, string(b1), string(b2))
}
