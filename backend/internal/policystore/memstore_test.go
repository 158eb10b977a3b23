package policystore

import (
	"context"
	"testing"

	"github.com/cedar-policy/cedar-go"
	"github.com/hodei-project/hodei-authz/backend/internal/authzerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePolicy = `permit(principal, action, resource) when { true };`

func TestCreateGetUpdateDelete(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()

	d, err := s.Create(ctx, samplePolicy)
	require.NoError(t, err)
	assert.NotEmpty(t, d.ID)

	got, err := s.Get(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, samplePolicy, got.Content)

	updated, err := s.Update(ctx, d.ID, `forbid(principal, action, resource) when { true };`)
	require.NoError(t, err)
	assert.Contains(t, updated.Content, "forbid")

	require.NoError(t, s.Delete(ctx, d.ID))

	_, err = s.Get(ctx, d.ID)
	var notFound *authzerr.NotFound
	assert.ErrorAs(t, err, &notFound)
}

func TestUpdateDeleteUnknownIDIsNotFound(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()

	_, err := s.Update(ctx, "missing", samplePolicy)
	var notFound *authzerr.NotFound
	assert.ErrorAs(t, err, &notFound)

	err = s.Delete(ctx, "missing")
	assert.ErrorAs(t, err, &notFound)
}

func TestLoadAllBuildsPolicySetFromEveryRow(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()

	first, err := s.Create(ctx, samplePolicy)
	require.NoError(t, err)
	second, err := s.Create(ctx, `forbid(principal, action, resource) when { false };`)
	require.NoError(t, err)

	ps, err := s.LoadAll(ctx)
	require.NoError(t, err)
	assert.NotNil(t, ps)
	assert.NotNil(t, ps.Get(cedar.PolicyID(first.ID)))
	assert.NotNil(t, ps.Get(cedar.PolicyID(second.ID)))
}

func TestLoadAllAbortsOnFirstParseError(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()

	_, err := s.Create(ctx, samplePolicy)
	require.NoError(t, err)
	_, err = s.Create(ctx, `not cedar at all`)
	require.NoError(t, err)

	_, err = s.LoadAll(ctx)
	var parseErr *authzerr.ParseError
	assert.ErrorAs(t, err, &parseErr)
}

func TestListPreservesCreationOrder(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()

	first, err := s.Create(ctx, samplePolicy)
	require.NoError(t, err)
	second, err := s.Create(ctx, `forbid(principal, action, resource) when { false };`)
	require.NoError(t, err)
	third, err := s.Create(ctx, `permit(principal, action, resource) when { false };`)
	require.NoError(t, err)

	docs, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 3)
	assert.Equal(t, []string{first.ID, second.ID, third.ID}, []string{docs[0].ID, docs[1].ID, docs[2].ID})

	require.NoError(t, s.Delete(ctx, second.ID))
	fourth, err := s.Create(ctx, `permit(principal, action, resource) when { true };`)
	require.NoError(t, err)

	docs, err = s.List(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 3)
	assert.Equal(t, []string{first.ID, third.ID, fourth.ID}, []string{docs[0].ID, docs[1].ID, docs[2].ID})
}

func TestEmptyStoreLoadsToEmptyPolicySet(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()

	ps, err := s.LoadAll(ctx)
	require.NoError(t, err)
	assert.NotNil(t, ps)
}
