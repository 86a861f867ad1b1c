package network

import (
	"encoding/json"
	"maps"
	"slices"

	"github.com/dd0wney/mspread/pkg/validation"
)

// PatchStatus is a device's patch level.
type PatchStatus string

const (
	Unpatched    PatchStatus = "unpatched"
	Patched      PatchStatus = "patched"
	FullyPatched PatchStatus = "fully_patched"
)

// DefaultDeviceType is assigned to devices created without a device_type.
const DefaultDeviceType = "workstation"

// UnknownOS is the demographic bucket for devices with no os set.
const UnknownOS = "unknown"

// Attributes is the complete attribute set of a device. Optional fields are
// pointers; nil means "unset" and serializes as null.
type Attributes struct {
	DeviceType      string         `json:"device_type"`
	OS              *string        `json:"os"`
	PatchStatus     *PatchStatus   `json:"patch_status"`
	FirewallEnabled *bool          `json:"firewall_enabled"`
	Antivirus       *bool          `json:"antivirus"`
	AdminUser       bool           `json:"admin_user"`
	Vulnerabilities StringSet      `json:"vulnerabilities"`
	Extra           map[string]any `json:"extra,omitempty"`
}

// DefaultAttributes returns the attribute set of a freshly created device.
func DefaultAttributes() Attributes {
	return Attributes{
		DeviceType:      DefaultDeviceType,
		AdminUser:       true,
		Vulnerabilities: StringSet{},
	}
}

// Clone returns a deep copy.
func (a Attributes) Clone() Attributes {
	out := a
	out.OS = clonePtr(a.OS)
	out.PatchStatus = clonePtr(a.PatchStatus)
	out.FirewallEnabled = clonePtr(a.FirewallEnabled)
	out.Antivirus = clonePtr(a.Antivirus)
	out.Vulnerabilities = a.Vulnerabilities.Clone()
	if a.Extra != nil {
		out.Extra = maps.Clone(a.Extra)
	}
	return out
}

// Firewalled reports whether firewall_enabled is set to true.
func (a Attributes) Firewalled() bool {
	return a.FirewallEnabled != nil && *a.FirewallEnabled
}

// FullyPatched reports whether patch_status is fully_patched.
func (a Attributes) FullyPatched() bool {
	return a.PatchStatus != nil && *a.PatchStatus == FullyPatched
}

// OSLabel returns the os value, or UnknownOS when unset.
func (a Attributes) OSLabel() string {
	if a.OS == nil {
		return UnknownOS
	}
	return *a.OS
}

// AttributePatch is a partial attribute override. A nil field leaves the
// target value alone.
type AttributePatch struct {
	DeviceType      *string        `json:"device_type,omitempty" yaml:"device_type,omitempty"`
	OS              *string        `json:"os,omitempty" yaml:"os,omitempty"`
	PatchStatus     *PatchStatus   `json:"patch_status,omitempty" yaml:"patch_status,omitempty" validate:"omitempty,oneof=unpatched patched fully_patched"`
	FirewallEnabled *bool          `json:"firewall_enabled,omitempty" yaml:"firewall_enabled,omitempty"`
	Antivirus       *bool          `json:"antivirus,omitempty" yaml:"antivirus,omitempty"`
	AdminUser       *bool          `json:"admin_user,omitempty" yaml:"admin_user,omitempty"`
	Vulnerabilities []string       `json:"vulnerabilities,omitempty" yaml:"vulnerabilities,omitempty"`
	Extra           map[string]any `json:"extra,omitempty" yaml:"extra,omitempty"`
}

// Validate checks enumerated fields.
func (p AttributePatch) Validate() error {
	return validation.Struct(&p)
}

// Apply writes every set field of p onto a. Extra keys are merged.
func (p AttributePatch) Apply(a *Attributes) {
	if p.DeviceType != nil {
		a.DeviceType = *p.DeviceType
	}
	if p.OS != nil {
		a.OS = clonePtr(p.OS)
	}
	if p.PatchStatus != nil {
		a.PatchStatus = clonePtr(p.PatchStatus)
	}
	if p.FirewallEnabled != nil {
		a.FirewallEnabled = clonePtr(p.FirewallEnabled)
	}
	if p.Antivirus != nil {
		a.Antivirus = clonePtr(p.Antivirus)
	}
	if p.AdminUser != nil {
		a.AdminUser = *p.AdminUser
	}
	if p.Vulnerabilities != nil {
		a.Vulnerabilities = NewStringSet(p.Vulnerabilities...)
	}
	if len(p.Extra) > 0 {
		if a.Extra == nil {
			a.Extra = make(map[string]any, len(p.Extra))
		}
		maps.Copy(a.Extra, canonicalValues(p.Extra))
	}
}

// Resolve returns the defaults with p applied.
func (p AttributePatch) Resolve() Attributes {
	a := DefaultAttributes()
	p.Apply(&a)
	return a
}

// Merge returns p overlaid by over; fields set in over win.
func (p AttributePatch) Merge(over AttributePatch) AttributePatch {
	out := p
	if over.DeviceType != nil {
		out.DeviceType = over.DeviceType
	}
	if over.OS != nil {
		out.OS = over.OS
	}
	if over.PatchStatus != nil {
		out.PatchStatus = over.PatchStatus
	}
	if over.FirewallEnabled != nil {
		out.FirewallEnabled = over.FirewallEnabled
	}
	if over.Antivirus != nil {
		out.Antivirus = over.Antivirus
	}
	if over.AdminUser != nil {
		out.AdminUser = over.AdminUser
	}
	if over.Vulnerabilities != nil {
		out.Vulnerabilities = over.Vulnerabilities
	}
	if len(over.Extra) > 0 {
		merged := make(map[string]any, len(p.Extra)+len(over.Extra))
		maps.Copy(merged, p.Extra)
		maps.Copy(merged, over.Extra)
		out.Extra = merged
	}
	return out
}

// canonicalValues returns a deep copy of m with every number stored as
// float64, the form encoding/json decodes into. Extension values stored on a
// topology therefore compare equal to their snapshot round trip.
func canonicalValues(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = canonicalValue(v)
	}
	return out
}

func canonicalValue(v any) any {
	switch x := v.(type) {
	case int:
		return float64(x)
	case int8:
		return float64(x)
	case int16:
		return float64(x)
	case int32:
		return float64(x)
	case int64:
		return float64(x)
	case uint:
		return float64(x)
	case uint8:
		return float64(x)
	case uint16:
		return float64(x)
	case uint32:
		return float64(x)
	case uint64:
		return float64(x)
	case float32:
		return float64(x)
	case json.Number:
		if f, err := x.Float64(); err == nil {
			return f
		}
		return x.String()
	case map[string]any:
		return canonicalValues(x)
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = canonicalValue(e)
		}
		return out
	default:
		return v
	}
}

// Ptr returns a pointer to v, for building patches inline.
func Ptr[T any](v T) *T {
	return &v
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// StringSet is an unordered set of strings, serialized as a sorted array.
type StringSet map[string]struct{}

// NewStringSet builds a set from items.
func NewStringSet(items ...string) StringSet {
	s := make(StringSet, len(items))
	for _, item := range items {
		s[item] = struct{}{}
	}
	return s
}

// Has reports membership.
func (s StringSet) Has(item string) bool {
	_, ok := s[item]
	return ok
}

// Intersects reports whether s and other share at least one element.
func (s StringSet) Intersects(other StringSet) bool {
	small, large := s, other
	if len(small) > len(large) {
		small, large = large, small
	}
	for item := range small {
		if large.Has(item) {
			return true
		}
	}
	return false
}

// Sorted returns the elements in ascending order.
func (s StringSet) Sorted() []string {
	return slices.Sorted(maps.Keys(s))
}

// Clone returns a copy; a nil set clones to an empty one.
func (s StringSet) Clone() StringSet {
	out := make(StringSet, len(s))
	maps.Copy(out, s)
	return out
}

// MarshalJSON encodes the set as a sorted array.
func (s StringSet) MarshalJSON() ([]byte, error) {
	items := s.Sorted()
	if items == nil {
		items = []string{}
	}
	return json.Marshal(items)
}

// UnmarshalJSON decodes an array; null yields an empty set.
func (s *StringSet) UnmarshalJSON(data []byte) error {
	var items []string
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}
	*s = NewStringSet(items...)
	return nil
}
