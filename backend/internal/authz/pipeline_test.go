package authz

import (
	"context"
	"testing"

	"github.com/cedar-policy/cedar-go"
	"github.com/hodei-project/hodei-authz/backend/internal/authzerr"
	"github.com/hodei-project/hodei-authz/backend/internal/hrn"
	"github.com/hodei-project/hodei-authz/backend/internal/policycell"
	"github.com/hodei-project/hodei-authz/backend/internal/schema"
	"github.com/stretchr/testify/require"
)

func cedarPolicySetFrom(t *testing.T, src string) *cedar.PolicySet {
	t.Helper()
	var policy cedar.Policy
	require.NoError(t, policy.UnmarshalCedar([]byte(src)))
	ps := cedar.NewPolicySet()
	ps.Add(cedar.PolicyID("test"), &policy)
	return ps
}

type pipelineTestUser struct {
	ID hrn.HRN `cedar:"id"`
}

type pipelineTestDoc struct {
	ID    hrn.HRN `cedar:"id"`
	Owner hrn.HRN `cedar:"entity=PipelineTest::User"`
}

type pipelineTestRead struct{}

func (pipelineTestRead) hodeiAction() {}

func init() {
	schema.RegisterEntity(schema.DeriveEntity[pipelineTestUser]("PipelineTest::User"))
	schema.RegisterEntity(schema.DeriveEntity[pipelineTestDoc]("PipelineTest::Document"))
	schema.DeriveAction[pipelineTestRead](`PipelineTest::Action::"Read"`, "PipelineTest::User", []string{"PipelineTest::Document"})
}

func newTestPipeline(t *testing.T, policy string) *Pipeline {
	t.Helper()
	cell := policycell.New()
	if policy != "" {
		ps := cedarPolicySetFrom(t, policy)
		cell.Store(ps)
	}
	return New(cell)
}

func TestAuthorizeUnknownActionErrors(t *testing.T) {
	p := newTestPipeline(t, "")
	_, err := p.Authorize(context.Background(), Request{ActionName: `Nope::Action::"X"`})
	require.Error(t, err)
}

func TestAuthorizeDeniesWithEmptyPolicySet(t *testing.T) {
	p := newTestPipeline(t, "")
	userHRN, _ := hrn.Build("docs", "t1", "user/u1")
	docHRN, _ := hrn.Build("docs", "t1", "document/d1")

	decision, err := p.Authorize(context.Background(), Request{
		ActionName: `PipelineTest::Action::"Read"`,
		Principal:  pipelineTestUser{ID: userHRN},
		Resource:   pipelineTestDoc{ID: docHRN, Owner: userHRN},
	})
	require.NoError(t, err)
	require.Equal(t, Deny, decision)
}

func TestAuthorizeMissingResourceIsResourceNotFound(t *testing.T) {
	p := newTestPipeline(t, "")
	userHRN, _ := hrn.Build("docs", "t1", "user/u1")

	_, err := p.Authorize(context.Background(), Request{
		ActionName: `PipelineTest::Action::"Read"`,
		Principal:  pipelineTestUser{ID: userHRN},
	})
	require.Error(t, err)
	var notFound *authzerr.ResourceNotFound
	require.ErrorAs(t, err, &notFound)
}

func TestAuthorizeSurfacesEvaluatorError(t *testing.T) {
	p := newTestPipeline(t, `permit(principal, action, resource) when { principal.nonexistent_attr == "x" };`)
	userHRN, _ := hrn.Build("docs", "t1", "user/u1")
	docHRN, _ := hrn.Build("docs", "t1", "document/d1")

	_, err := p.Authorize(context.Background(), Request{
		ActionName: `PipelineTest::Action::"Read"`,
		Principal:  pipelineTestUser{ID: userHRN},
		Resource:   pipelineTestDoc{ID: docHRN, Owner: userHRN},
	})
	require.Error(t, err)
	var evalErr *authzerr.EvaluatorError
	require.ErrorAs(t, err, &evalErr)
}

func TestAuthorizeAllowsWhenPolicyPermits(t *testing.T) {
	p := newTestPipeline(t, `permit(principal, action, resource);`)
	userHRN, _ := hrn.Build("docs", "t1", "user/u1")
	docHRN, _ := hrn.Build("docs", "t1", "document/d1")

	decision, err := p.Authorize(context.Background(), Request{
		ActionName: `PipelineTest::Action::"Read"`,
		Principal:  pipelineTestUser{ID: userHRN},
		Resource:   pipelineTestDoc{ID: docHRN, Owner: userHRN},
	})
	require.NoError(t, err)
	require.Equal(t, Allow, decision)
}
