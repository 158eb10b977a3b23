// Package hrn implements the Hierarchical Resource Name used to address
// every entity and tenant-scoped resource in the authorization model.
package hrn

import (
	"database/sql/driver"
	"fmt"
	"strings"
)

const (
	defaultPartition = "hodei"
	defaultRegion    = "global"
)

// HRN is the canonical, tenant-scoped name of a resource:
//
//	hrn:<partition>:<service>:<region>:<tenant>:<type>/<id>
type HRN struct {
	Partition    string
	Service      string
	Region       string
	TenantID     string
	ResourceType string
	ResourceID   string
}

// Build constructs an HRN with the default partition and region, the way
// every caller in this codebase is expected to use it. resourcePath must be
// of the form "type/id".
func Build(service, tenantID, resourcePath string) (HRN, error) {
	return BuildFull(defaultPartition, service, defaultRegion, tenantID, resourcePath)
}

// BuildFull constructs an HRN overriding partition and region explicitly.
func BuildFull(partition, service, region, tenantID, resourcePath string) (HRN, error) {
	if partition == "" {
		partition = defaultPartition
	}
	if region == "" {
		region = defaultRegion
	}
	if service == "" {
		return HRN{}, fmt.Errorf("hrn: service must not be empty")
	}
	if tenantID == "" {
		return HRN{}, fmt.Errorf("hrn: tenant id must not be empty")
	}
	resType, resID, err := splitResourcePath(resourcePath)
	if err != nil {
		return HRN{}, err
	}
	return HRN{
		Partition:    partition,
		Service:      service,
		Region:       region,
		TenantID:     tenantID,
		ResourceType: resType,
		ResourceID:   resID,
	}, nil
}

func splitResourcePath(resourcePath string) (resType, resID string, err error) {
	idx := strings.IndexByte(resourcePath, '/')
	if idx <= 0 || idx == len(resourcePath)-1 {
		return "", "", fmt.Errorf("hrn: invalid resource path %q, want \"type/id\"", resourcePath)
	}
	return resourcePath[:idx], resourcePath[idx+1:], nil
}

// Parse parses the canonical textual form of an HRN.
func Parse(s string) (HRN, error) {
	parts := strings.SplitN(s, ":", 6)
	if len(parts) != 6 || parts[0] != "hrn" {
		return HRN{}, fmt.Errorf("hrn: malformed hrn %q", s)
	}
	resType, resID, err := splitResourcePath(parts[5])
	if err != nil {
		return HRN{}, fmt.Errorf("hrn: malformed hrn %q: %w", s, err)
	}
	h := HRN{
		Partition:    parts[1],
		Service:      parts[2],
		Region:       parts[3],
		TenantID:     parts[4],
		ResourceType: resType,
		ResourceID:   resID,
	}
	if h.Partition == "" || h.Service == "" || h.Region == "" || h.TenantID == "" {
		return HRN{}, fmt.Errorf("hrn: malformed hrn %q: empty segment", s)
	}
	return h, nil
}

// String renders the canonical textual form.
func (h HRN) String() string {
	return fmt.Sprintf("hrn:%s:%s:%s:%s:%s/%s",
		h.Partition, h.Service, h.Region, h.TenantID, h.ResourceType, h.ResourceID)
}

// Equal reports whether two HRNs address the same resource.
func (h HRN) Equal(other HRN) bool {
	return h == other
}

// IsZero reports whether h is the zero value.
func (h HRN) IsZero() bool {
	return h == HRN{}
}

// MarshalText implements encoding.TextMarshaler.
func (h HRN) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (h *HRN) UnmarshalText(data []byte) error {
	parsed, err := Parse(string(data))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// Value implements driver.Valuer so an HRN can be stored directly in a
// database/sql column.
func (h HRN) Value() (driver.Value, error) {
	if h.IsZero() {
		return nil, nil
	}
	return h.String(), nil
}

// Scan implements sql.Scanner.
func (h *HRN) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*h = HRN{}
		return nil
	case string:
		return h.UnmarshalText([]byte(v))
	case []byte:
		return h.UnmarshalText(v)
	default:
		return fmt.Errorf("hrn: cannot scan %T into HRN", src)
	}
}
