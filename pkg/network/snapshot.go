package network

import (
	"maps"

	"github.com/dd0wney/mspread/pkg/sparse"
)

// NodeRecord is a device in serialized form: the id plus the full
// attribute set, flattened.
type NodeRecord struct {
	ID string `json:"id"`
	Attributes
}

// EdgeRecord is a connection in serialized form.
type EdgeRecord struct {
	Source         string         `json:"source"`
	Target         string         `json:"target"`
	ConnectionType string         `json:"connection_type"`
	Attributes     map[string]any `json:"attributes,omitempty"`
}

// Snapshot is the serializable form of a topology.
type Snapshot struct {
	Nodes       []NodeRecord `json:"nodes"`
	Edges       []EdgeRecord `json:"edges"`
	NetworkType Kind         `json:"network_type"`
}

// Snapshot exports devices in index order and connections ordered by
// endpoint index.
func (t *Topology) Snapshot() Snapshot {
	conns := t.Connections()

	t.mu.RLock()
	defer t.mu.RUnlock()

	s := Snapshot{
		Nodes:       make([]NodeRecord, len(t.devices)),
		Edges:       make([]EdgeRecord, len(conns)),
		NetworkType: t.kind,
	}
	for i, d := range t.devices {
		s.Nodes[i] = NodeRecord{ID: d.ID, Attributes: d.Attributes.Clone()}
	}
	for i, c := range conns {
		s.Edges[i] = EdgeRecord{
			Source:         c.Source,
			Target:         c.Target,
			ConnectionType: c.Type,
			Attributes:     c.Metadata,
		}
	}
	return s
}

// FromSnapshot rebuilds a topology. Device order, attributes and
// connections are reproduced exactly; numeric extension values are held as
// float64 either way. An edge referencing a missing device
// fails with an unknown-device error.
func FromSnapshot(s Snapshot, opts ...Option) (*Topology, error) {
	kind := s.NetworkType
	if kind == "" {
		kind = "unknown"
	}
	t := New(kind, opts...)

	t.mu.Lock()
	for _, n := range s.Nodes {
		attrs := n.Attributes.Clone()
		attrs.Extra = canonicalValues(attrs.Extra)
		if attrs.DeviceType == "" {
			attrs.DeviceType = DefaultDeviceType
		}
		if i, exists := t.index[n.ID]; exists {
			t.devices[i].Attributes = attrs
			continue
		}
		t.insertLocked(n.ID, attrs)
	}
	t.mu.Unlock()

	for _, e := range s.Edges {
		if err := t.AddConnection(e.Source, e.Target, e.ConnectionType, maps.Clone(e.Attributes)); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// AdjacencyMatrix returns the N x N symmetric zero-diagonal 0/1 matrix of
// the topology in device index order.
func (t *Topology) AdjacencyMatrix() (*sparse.CSR, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return sparse.FromAdjacency(t.adjacency)
}
