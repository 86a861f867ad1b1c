package network

import (
	"errors"
	"slices"
	"testing"

	"github.com/dd0wney/mspread/pkg/simerr"
)

func TestAddDeviceFillsDefaults(t *testing.T) {
	topo := New(Complete)
	topo.AddDevice("db", AttributePatch{DeviceType: Ptr("server"), OS: Ptr("Ubuntu 22.04")})

	attrs, err := topo.DeviceAttributes("db")
	if err != nil {
		t.Fatalf("DeviceAttributes: %v", err)
	}
	if attrs.DeviceType != "server" || attrs.OSLabel() != "Ubuntu 22.04" {
		t.Errorf("patched fields lost: %+v", attrs)
	}
	if !attrs.AdminUser {
		t.Error("admin_user should default to true")
	}
	if attrs.PatchStatus != nil || attrs.FirewallEnabled != nil || attrs.Antivirus != nil {
		t.Errorf("optional fields should be unset: %+v", attrs)
	}
	if attrs.Vulnerabilities == nil || len(attrs.Vulnerabilities) != 0 {
		t.Errorf("vulnerabilities should be an empty set, got %v", attrs.Vulnerabilities)
	}

	d, ok := topo.Device("db")
	if !ok || d.State != StateHealthy || d.Index != 0 {
		t.Errorf("Device(db) = %+v, %v", d, ok)
	}
}

func TestAddDeviceTwiceReappliesPatch(t *testing.T) {
	topo := New(Complete)
	first := topo.AddDevice("a", AttributePatch{OS: Ptr("Windows 10")})
	second := topo.AddDevice("a", AttributePatch{AdminUser: Ptr(false)})

	if first != second {
		t.Errorf("index changed: %d then %d", first, second)
	}
	if topo.DeviceCount() != 1 {
		t.Errorf("DeviceCount = %d, want 1", topo.DeviceCount())
	}
	attrs, _ := topo.DeviceAttributes("a")
	if attrs.OSLabel() != "Windows 10" || attrs.AdminUser {
		t.Errorf("attributes = %+v", attrs)
	}
}

func TestAddConnectionUnknownDevice(t *testing.T) {
	topo := New(Complete)
	topo.AddDevice("a", AttributePatch{})

	err := topo.AddConnection("a", "ghost", ConnectionNetwork, nil)
	if !errors.Is(err, simerr.ErrUnknownDevice) {
		t.Fatalf("err = %v, want ErrUnknownDevice", err)
	}
	var se *simerr.Error
	if !errors.As(err, &se) || se.ID != "ghost" {
		t.Errorf("error should name the missing device: %v", err)
	}
	if topo.ConnectionCount() != 0 {
		t.Error("failed connection must not be recorded")
	}
}

func TestAddConnectionRejectsSelfLoop(t *testing.T) {
	topo := New(Complete)
	topo.AddDevice("a", AttributePatch{})

	if err := topo.AddConnection("a", "a", "", nil); !simerr.IsConfiguration(err) {
		t.Errorf("err = %v, want configuration error", err)
	}
}

func TestAddConnectionMergesOnReAdd(t *testing.T) {
	topo := New(Complete)
	topo.AddDevice("a", AttributePatch{})
	topo.AddDevice("b", AttributePatch{})

	if err := topo.AddConnection("a", "b", "", map[string]any{"bandwidth": "1G"}); err != nil {
		t.Fatal(err)
	}
	if err := topo.AddConnection("b", "a", "wireless", map[string]any{"latency_ms": 4}); err != nil {
		t.Fatal(err)
	}

	if topo.ConnectionCount() != 1 {
		t.Fatalf("ConnectionCount = %d, want 1", topo.ConnectionCount())
	}
	conn, ok := topo.Connection("a", "b")
	if !ok {
		t.Fatal("connection missing")
	}
	if conn.Type != "wireless" || conn.Metadata["bandwidth"] != "1G" || conn.Metadata["latency_ms"] != 4.0 {
		t.Errorf("connection = %+v", conn)
	}
	if conn.Source != "a" || conn.Target != "b" {
		t.Errorf("endpoints = %s-%s, want a-b", conn.Source, conn.Target)
	}

	neighbors, err := topo.NeighborIDs("b")
	if err != nil || !slices.Equal(neighbors, []string{"a"}) {
		t.Errorf("NeighborIDs(b) = %v, %v", neighbors, err)
	}
}

func TestSetDeviceAttributes(t *testing.T) {
	topo := New(Complete)
	topo.AddDevice("a", AttributePatch{})

	err := topo.SetDeviceAttributes("a", AttributePatch{
		PatchStatus:     Ptr(FullyPatched),
		Vulnerabilities: []string{"CVE-2024-1", "CVE-2024-1", "CVE-2023-9"},
		Extra:           map[string]any{"owner": "ops"},
	})
	if err != nil {
		t.Fatalf("SetDeviceAttributes: %v", err)
	}

	attrs, _ := topo.DeviceAttributes("a")
	if !attrs.FullyPatched() {
		t.Error("patch_status not applied")
	}
	if got := attrs.Vulnerabilities.Sorted(); !slices.Equal(got, []string{"CVE-2023-9", "CVE-2024-1"}) {
		t.Errorf("vulnerabilities = %v", got)
	}
	if attrs.Extra["owner"] != "ops" {
		t.Errorf("extra = %v", attrs.Extra)
	}

	// The returned copy is detached from the topology.
	attrs.Vulnerabilities["CVE-0"] = struct{}{}
	again, _ := topo.DeviceAttributes("a")
	if again.Vulnerabilities.Has("CVE-0") {
		t.Error("DeviceAttributes must return a copy")
	}

	if err := topo.SetDeviceAttributes("ghost", AttributePatch{}); !simerr.IsUnknownDevice(err) {
		t.Errorf("err = %v, want unknown device", err)
	}
	if _, err := topo.DeviceAttributes("ghost"); !simerr.IsUnknownDevice(err) {
		t.Errorf("err = %v, want unknown device", err)
	}
	if _, err := topo.NeighborIDs("ghost"); !simerr.IsUnknownDevice(err) {
		t.Errorf("err = %v, want unknown device", err)
	}
}

func TestConnectionsOrdered(t *testing.T) {
	topo := New(Complete)
	for _, id := range []string{"a", "b", "c"} {
		topo.AddDevice(id, AttributePatch{})
	}
	_ = topo.AddConnection("c", "a", "", nil)
	_ = topo.AddConnection("b", "c", "", nil)
	_ = topo.AddConnection("b", "a", "", nil)

	var got [][2]string
	for _, c := range topo.Connections() {
		got = append(got, [2]string{c.Source, c.Target})
	}
	want := [][2]string{{"a", "b"}, {"a", "c"}, {"b", "c"}}
	if !slices.Equal(got, want) {
		t.Errorf("Connections = %v, want %v", got, want)
	}
}

func TestParseKind(t *testing.T) {
	for _, k := range Kinds {
		if got, err := ParseKind(string(k)); err != nil || got != k {
			t.Errorf("ParseKind(%q) = %q, %v", k, got, err)
		}
	}
	if got, err := ParseKind(" Scale_Free "); err != nil || got != ScaleFree {
		t.Errorf("ParseKind should normalise case and space, got %q, %v", got, err)
	}
	if _, err := ParseKind("mesh"); !simerr.IsConfiguration(err) {
		t.Errorf("ParseKind(mesh) = %v, want configuration error", err)
	}
}

func TestAttributePatchMerge(t *testing.T) {
	base := AttributePatch{OS: Ptr("Linux"), AdminUser: Ptr(true), Extra: map[string]any{"site": "a"}}
	over := AttributePatch{AdminUser: Ptr(false), Extra: map[string]any{"rack": 4}}

	merged := base.Merge(over).Resolve()
	if merged.OSLabel() != "Linux" || merged.AdminUser {
		t.Errorf("merged = %+v", merged)
	}
	if merged.Extra["site"] != "a" || merged.Extra["rack"] != 4 {
		t.Errorf("extra = %v", merged.Extra)
	}
	if len(base.Extra) != 1 {
		t.Error("Merge must not mutate the receiver")
	}
}

func TestAttributePatchValidate(t *testing.T) {
	bad := AttributePatch{PatchStatus: Ptr(PatchStatus("mostly"))}
	if err := bad.Validate(); err == nil {
		t.Error("expected error for unknown patch_status")
	}
	if err := (AttributePatch{PatchStatus: Ptr(Patched)}).Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}
