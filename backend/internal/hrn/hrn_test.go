package hrn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDefaults(t *testing.T) {
	h, err := Build("documents-api", "tenant-a", "document/doc-1")
	require.NoError(t, err)
	assert.Equal(t, "hodei", h.Partition)
	assert.Equal(t, "global", h.Region)
	assert.Equal(t, "hrn:hodei:documents-api:global:tenant-a:document/doc-1", h.String())
}

func TestParseRoundTrip(t *testing.T) {
	cases := []string{
		"hrn:hodei:documents-api:global:tenant-a:document/doc-1",
		"hrn:hodei:documents-api:global:tenant-b:user/bob",
		"hrn:custom:svc:us-east-1:t1:folder/nested-id-with-dashes",
	}
	for _, s := range cases {
		h, err := Parse(s)
		require.NoError(t, err)
		assert.Equal(t, s, h.String())
	}
}

func TestParseRejectsMalformed(t *testing.T) {
	bad := []string{
		"",
		"not-an-hrn",
		"hrn:hodei:svc:global:tenant",
		"hrn:hodei:svc:global:tenant:noslash",
		"hrn::svc:global:tenant:type/id",
	}
	for _, s := range bad {
		_, err := Parse(s)
		assert.Error(t, err, s)
	}
}

func TestBuildRejectsEmptyRequiredFields(t *testing.T) {
	_, err := Build("", "tenant-a", "document/doc-1")
	assert.Error(t, err)

	_, err = Build("documents-api", "", "document/doc-1")
	assert.Error(t, err)

	_, err = Build("documents-api", "tenant-a", "noslash")
	assert.Error(t, err)
}

func TestEqual(t *testing.T) {
	a, err := Build("documents-api", "tenant-a", "document/doc-1")
	require.NoError(t, err)
	b, err := Parse(a.String())
	require.NoError(t, err)
	assert.True(t, a.Equal(b))
}

func TestTextMarshalRoundTrip(t *testing.T) {
	h, err := Build("documents-api", "tenant-a", "document/doc-1")
	require.NoError(t, err)

	text, err := h.MarshalText()
	require.NoError(t, err)

	var got HRN
	require.NoError(t, got.UnmarshalText(text))
	assert.Equal(t, h, got)
}

func TestScanValue(t *testing.T) {
	h, err := Build("documents-api", "tenant-a", "document/doc-1")
	require.NoError(t, err)

	v, err := h.Value()
	require.NoError(t, err)

	var got HRN
	require.NoError(t, got.Scan(v))
	assert.Equal(t, h, got)

	var zero HRN
	require.NoError(t, zero.Scan(nil))
	assert.True(t, zero.IsZero())
}
