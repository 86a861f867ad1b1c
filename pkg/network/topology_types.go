package network

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/dd0wney/mspread/pkg/logging"
	"github.com/dd0wney/mspread/pkg/metrics"
	"github.com/dd0wney/mspread/pkg/simerr"
)

// Kind labels the structural generation algorithm of a topology.
type Kind string

const (
	ScaleFree  Kind = "scale_free"
	SmallWorld Kind = "small_world"
	Random     Kind = "random"
	Complete   Kind = "complete"
	Segmented  Kind = "segmented"
)

// Kinds lists every kind Generate accepts.
var Kinds = []Kind{ScaleFree, SmallWorld, Random, Complete, Segmented}

// ParseKind maps a label to a Kind. Unknown labels are configuration errors.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Kinds {
		if k == known {
			return k, nil
		}
	}
	return "", simerr.New("ParseKind").Topology(s).
		Context(fmt.Sprintf("expected one of %v", Kinds)).
		Cause(simerr.ErrConfiguration).Err()
}

// Connection types.
const (
	ConnectionNetwork      = "network"
	ConnectionInterconnect = "interconnect"
)

// StateHealthy is the bookkeeping state of every device at creation.
const StateHealthy = "healthy"

// Device is one node of the topology.
type Device struct {
	ID         string
	Index      int
	State      string
	Attributes Attributes
}

// Connection is an undirected edge. Source and Target are reported with the
// lower device index first.
type Connection struct {
	Source   string
	Target   string
	Type     string
	Metadata map[string]any
}

// DeviceID returns the generated id of the device at position n.
func DeviceID(n int) string {
	return fmt.Sprintf("device_%d", n)
}

const (
	shardCount = 256
	shardMask  = shardCount - 1
)

type edgeKey struct {
	lo, hi int
}

func keyFor(a, b int) edgeKey {
	if a > b {
		a, b = b, a
	}
	return edgeKey{lo: a, hi: b}
}

// Topology is the device graph. Devices are addressed by id and by a dense
// index assigned in insertion order.
//
// Mutations are safe for concurrent use: device insertion takes the global
// lock, connection insertion takes the per-device shard locks of both
// endpoints. Index-based readers (Order, Neighbors, AttributesAt) take no
// locks and must not race with mutation; simulators only read a topology
// once construction has finished.
type Topology struct {
	kind Kind

	mu      sync.RWMutex // guards devices, index and attribute writes
	devices []*Device
	index   map[string]int

	shardLocks [shardCount]sync.Mutex
	adjacency  [][]int                             // device index -> neighbor indices, insertion order
	edges      [shardCount]map[edgeKey]*Connection // sharded by the lower endpoint index
	edgeCount  atomic.Int64

	logger  logging.Logger
	metrics *metrics.Registry
}

// Option configures a Topology.
type Option func(*Topology)

// WithLogger sets the logger used for generation progress and warnings.
func WithLogger(logger logging.Logger) Option {
	return func(t *Topology) { t.logger = logger }
}

// WithMetrics records generation metrics on reg.
func WithMetrics(reg *metrics.Registry) Option {
	return func(t *Topology) { t.metrics = reg }
}

// New creates an empty topology with the given kind label.
func New(kind Kind, opts ...Option) *Topology {
	t := &Topology{
		kind:   kind,
		index:  make(map[string]int),
		logger: logging.NewNopLogger(),
	}
	for i := range t.edges {
		t.edges[i] = make(map[edgeKey]*Connection)
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.logger == nil {
		t.logger = logging.NewNopLogger()
	}
	return t
}

// Kind returns the topology kind label.
func (t *Topology) Kind() Kind { return t.kind }
