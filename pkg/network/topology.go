package network

import (
	"maps"
	"slices"

	"github.com/dd0wney/mspread/pkg/simerr"
)

// AddDevice inserts a device with the default attributes overlaid by patch
// and returns its index. On an existing id the patch is re-applied.
func (t *Topology) AddDevice(id string, patch AttributePatch) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	if i, ok := t.index[id]; ok {
		patch.Apply(&t.devices[i].Attributes)
		return i
	}
	return t.insertLocked(id, patch.Resolve())
}

// insertLocked appends a device. Caller holds t.mu.
func (t *Topology) insertLocked(id string, attrs Attributes) int {
	i := len(t.devices)
	t.devices = append(t.devices, &Device{ID: id, Index: i, State: StateHealthy, Attributes: attrs})
	t.index[id] = i
	t.adjacency = append(t.adjacency, nil)
	return i
}

// AddConnection inserts an undirected connection between two existing
// devices. Re-adding an existing connection replaces its type and merges
// metadata.
func (t *Topology) AddConnection(a, b, connType string, metadata map[string]any) error {
	t.mu.RLock()
	defer t.mu.RUnlock()

	ia, ok := t.index[a]
	if !ok {
		return simerr.UnknownDevice("AddConnection", a)
	}
	ib, ok := t.index[b]
	if !ok {
		return simerr.UnknownDevice("AddConnection", b)
	}
	if ia == ib {
		return simerr.New("AddConnection").Device(a).Context("self-loop").Cause(simerr.ErrConfiguration).Err()
	}
	if connType == "" {
		connType = ConnectionNetwork
	}
	t.connect(ia, ib, connType, metadata)
	return nil
}

// connect links two device indices. Safe for concurrent use with other
// connect calls: it locks the shards of both endpoints in ascending order.
func (t *Topology) connect(a, b int, connType string, metadata map[string]any) {
	key := keyFor(a, b)
	s1, s2 := key.lo&shardMask, key.hi&shardMask
	if s1 > s2 {
		s1, s2 = s2, s1
	}
	t.shardLocks[s1].Lock()
	if s2 != s1 {
		t.shardLocks[s2].Lock()
		defer t.shardLocks[s2].Unlock()
	}
	defer t.shardLocks[s1].Unlock()

	shard := t.edges[key.lo&shardMask]
	if conn, exists := shard[key]; exists {
		conn.Type = connType
		if len(metadata) > 0 {
			if conn.Metadata == nil {
				conn.Metadata = make(map[string]any, len(metadata))
			}
			maps.Copy(conn.Metadata, canonicalValues(metadata))
		}
		return
	}

	conn := &Connection{
		Source: t.devices[key.lo].ID,
		Target: t.devices[key.hi].ID,
		Type:   connType,
	}
	if len(metadata) > 0 {
		conn.Metadata = canonicalValues(metadata)
	}
	shard[key] = conn
	t.adjacency[a] = append(t.adjacency[a], b)
	t.adjacency[b] = append(t.adjacency[b], a)
	t.edgeCount.Add(1)
}

// SetDeviceAttributes applies patch to an existing device.
func (t *Topology) SetDeviceAttributes(id string, patch AttributePatch) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	i, ok := t.index[id]
	if !ok {
		return simerr.UnknownDevice("SetDeviceAttributes", id)
	}
	patch.Apply(&t.devices[i].Attributes)
	return nil
}

// DeviceAttributes returns a copy of a device's attributes.
func (t *Topology) DeviceAttributes(id string) (Attributes, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	i, ok := t.index[id]
	if !ok {
		return Attributes{}, simerr.UnknownDevice("DeviceAttributes", id)
	}
	return t.devices[i].Attributes.Clone(), nil
}

// Device returns a copy of the device with the given id.
func (t *Topology) Device(id string) (Device, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	i, ok := t.index[id]
	if !ok {
		return Device{}, false
	}
	d := *t.devices[i]
	d.Attributes = d.Attributes.Clone()
	return d, true
}

// HasDevice reports whether id exists.
func (t *Topology) HasDevice(id string) bool {
	_, ok := t.IndexOf(id)
	return ok
}

// IndexOf returns the dense index of id.
func (t *Topology) IndexOf(id string) (int, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	i, ok := t.index[id]
	return i, ok
}

// DeviceCount returns the number of devices.
func (t *Topology) DeviceCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.devices)
}

// ConnectionCount returns the number of undirected connections.
func (t *Topology) ConnectionCount() int {
	return int(t.edgeCount.Load())
}

// DeviceIDs returns every device id in index order.
func (t *Topology) DeviceIDs() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	ids := make([]string, len(t.devices))
	for i, d := range t.devices {
		ids[i] = d.ID
	}
	return ids
}

// NeighborIDs returns the ids directly connected to id. Order is not
// guaranteed; callers needing determinism must sort.
func (t *Topology) NeighborIDs(id string) ([]string, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	i, ok := t.index[id]
	if !ok {
		return nil, simerr.UnknownDevice("Neighbors", id)
	}
	lock := &t.shardLocks[i&shardMask]
	lock.Lock()
	defer lock.Unlock()

	out := make([]string, len(t.adjacency[i]))
	for k, j := range t.adjacency[i] {
		out[k] = t.devices[j].ID
	}
	return out, nil
}

// Connection returns the connection between a and b, if any.
func (t *Topology) Connection(a, b string) (Connection, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	ia, okA := t.index[a]
	ib, okB := t.index[b]
	if !okA || !okB {
		return Connection{}, false
	}
	key := keyFor(ia, ib)
	conn, ok := t.edges[key.lo&shardMask][key]
	if !ok {
		return Connection{}, false
	}
	out := *conn
	out.Metadata = maps.Clone(conn.Metadata)
	return out, true
}

// Connections returns every connection ordered by (lower index, higher index).
func (t *Topology) Connections() []Connection {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]Connection, 0, t.edgeCount.Load())
	for lo, neighbors := range t.adjacency {
		higher := make([]int, 0, len(neighbors))
		for _, hi := range neighbors {
			if hi > lo {
				higher = append(higher, hi)
			}
		}
		slices.Sort(higher)
		for _, hi := range higher {
			key := edgeKey{lo: lo, hi: hi}
			conn := *t.edges[lo&shardMask][key]
			conn.Metadata = maps.Clone(conn.Metadata)
			out = append(out, conn)
		}
	}
	return out
}

// Order returns the number of devices. With Neighbors it lets a finished
// topology serve as an index-addressed graph.
func (t *Topology) Order() int { return len(t.devices) }

// Neighbors returns the neighbor indices of device i in insertion order.
// The slice must not be modified.
func (t *Topology) Neighbors(i int) []int { return t.adjacency[i] }

// AttributesAt returns the attributes of device i. The value must not be
// modified.
func (t *Topology) AttributesAt(i int) *Attributes { return &t.devices[i].Attributes }

// IDAt returns the id of device i.
func (t *Topology) IDAt(i int) string { return t.devices[i].ID }
