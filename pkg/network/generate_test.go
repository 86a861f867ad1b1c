package network

import (
	"bytes"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/mspread/pkg/logging"
	"github.com/dd0wney/mspread/pkg/metrics"
	"github.com/dd0wney/mspread/pkg/simerr"
)

func generate(t *testing.T, kind Kind, n int, seed uint64) *Topology {
	t.Helper()
	topo, err := Generate(kind, Config{Nodes: n, Rand: NewRand(seed), Logger: logging.NewNopLogger()})
	require.NoError(t, err)
	return topo
}

func edgeList(topo *Topology) [][2]string {
	var out [][2]string
	for _, c := range topo.Connections() {
		out = append(out, [2]string{c.Source, c.Target})
	}
	return out
}

func TestGenerateIDsAndDefaults(t *testing.T) {
	defaults := AttributePatch{OS: Ptr("Windows Server 2019"), PatchStatus: Ptr(Patched)}

	for _, kind := range []Kind{ScaleFree, SmallWorld, Random, Complete} {
		t.Run(string(kind), func(t *testing.T) {
			topo, err := Generate(kind, Config{Nodes: 40, Defaults: defaults, Rand: NewRand(7)})
			require.NoError(t, err)

			ids := topo.DeviceIDs()
			require.Len(t, ids, 40)
			for i, id := range ids {
				assert.Equal(t, DeviceID(i), id)
				attrs, err := topo.DeviceAttributes(id)
				require.NoError(t, err)
				assert.Equal(t, "Windows Server 2019", attrs.OSLabel())
				assert.Equal(t, DefaultDeviceType, attrs.DeviceType)
				assert.True(t, attrs.AdminUser)
				require.NotNil(t, attrs.PatchStatus)
				assert.Equal(t, Patched, *attrs.PatchStatus)
			}
			assert.Equal(t, kind, topo.Kind())
		})
	}
}

func TestGenerateEdgeCounts(t *testing.T) {
	tests := []struct {
		kind  Kind
		nodes int
		edges int
	}{
		{ScaleFree, 10, ScaleFreeAttachment * (10 - ScaleFreeAttachment)},
		{ScaleFree, 200, ScaleFreeAttachment * (200 - ScaleFreeAttachment)},
		{SmallWorld, 30, 30 * SmallWorldNeighbors / 2},
		{Complete, 12, 12 * 11 / 2},
		{ScaleFree, 3, 3},  // degenerate: complete
		{SmallWorld, 4, 6}, // degenerate: complete
		{Random, 1, 0},
		{Complete, 0, 0},
	}

	for _, tt := range tests {
		topo := generate(t, tt.kind, tt.nodes, 1)
		assert.Equal(t, tt.nodes, topo.DeviceCount(), "%s/%d devices", tt.kind, tt.nodes)
		assert.Equal(t, tt.edges, topo.ConnectionCount(), "%s/%d connections", tt.kind, tt.nodes)
	}
}

func TestGenerateSimpleGraph(t *testing.T) {
	for _, kind := range []Kind{ScaleFree, SmallWorld, Random} {
		topo := generate(t, kind, 300, 11)
		for i := 0; i < topo.Order(); i++ {
			seen := make(map[int]bool)
			for _, j := range topo.Neighbors(i) {
				require.NotEqual(t, i, j, "%s: self-loop at %d", kind, i)
				require.False(t, seen[j], "%s: duplicate edge %d-%d", kind, i, j)
				seen[j] = true
				require.Contains(t, topo.Neighbors(j), i, "%s: asymmetric edge %d-%d", kind, i, j)
			}
		}
	}
}

func TestRandomEdgeDensity(t *testing.T) {
	topo := generate(t, Random, 400, 3)
	expected := RandomEdgeProbability * 400 * 399 / 2
	got := float64(topo.ConnectionCount())
	assert.InDelta(t, expected, got, expected*0.15)
}

func TestGenerateSeedReproducible(t *testing.T) {
	for _, kind := range []Kind{ScaleFree, SmallWorld, Random} {
		a := generate(t, kind, 150, 42)
		b := generate(t, kind, 150, 42)
		assert.Equal(t, edgeList(a), edgeList(b), "%s should be reproducible", kind)
	}
}

func TestGenerateParallelMatchesSequential(t *testing.T) {
	// 5000 scale-free nodes give ~15k edges, above both thresholds.
	const n = 5000
	reg := metrics.NewRegistry()

	par, err := Generate(ScaleFree, Config{Nodes: n, Rand: NewRand(9), Workers: 4, Metrics: reg})
	require.NoError(t, err)
	seq, err := Generate(ScaleFree, Config{Nodes: n, Rand: NewRand(9), Sequential: true})
	require.NoError(t, err)

	require.Greater(t, seq.ConnectionCount(), ParallelEdgeThreshold)
	assert.Equal(t, seq.DeviceIDs(), par.DeviceIDs())
	assert.Equal(t, edgeList(seq), edgeList(par))

	for i := 0; i < n; i++ {
		a := slices.Sorted(slices.Values(par.Neighbors(i)))
		b := slices.Sorted(slices.Values(seq.Neighbors(i)))
		require.Equal(t, b, a, "neighbors of %d", i)
	}
}

func TestGenerateUnknownKind(t *testing.T) {
	_, err := Generate(Kind("mesh"), Config{Nodes: 10})
	assert.True(t, simerr.IsConfiguration(err), "err = %v", err)

	_, err = Generate(Complete, Config{Nodes: -1})
	assert.True(t, simerr.IsConfiguration(err), "negative nodes: err = %v", err)

	_, err = Generate(Complete, Config{Nodes: 3, Defaults: AttributePatch{PatchStatus: Ptr(PatchStatus("soon"))}})
	assert.True(t, simerr.IsConfiguration(err), "bad patch status: err = %v", err)
}

func TestGenerateNormalizesKind(t *testing.T) {
	for _, kind := range []Kind{ScaleFree, SmallWorld, Random, Complete} {
		t.Run(string(kind), func(t *testing.T) {
			canonical := generate(t, kind, 50, 1)
			mixed := generate(t, Kind(" "+strings.ToUpper(string(kind))+" "), 50, 1)

			assert.Equal(t, kind, mixed.Kind())
			assert.Equal(t, canonical.ConnectionCount(), mixed.ConnectionCount())
			assert.Equal(t, edgeList(canonical), edgeList(mixed))
		})
	}

	subnets := func(kind Kind) Config {
		return Config{Subnets: []Subnet{{Kind: kind, Nodes: 20}}, Rand: NewRand(3), Logger: logging.NewNopLogger()}
	}
	mixedCfg := subnets("Small_World")
	mixed, err := Generate("Segmented", mixedCfg)
	require.NoError(t, err)
	canonical, err := GenerateSegmented(subnets(SmallWorld))
	require.NoError(t, err)

	assert.Equal(t, Segmented, mixed.Kind())
	assert.Equal(t, 20*SmallWorldNeighbors/2, mixed.ConnectionCount())
	assert.Equal(t, edgeList(canonical), edgeList(mixed))
	assert.Equal(t, Kind("Small_World"), mixedCfg.Subnets[0].Kind, "caller's subnets must not be rewritten")
}

func TestGenerateDegenerateLogsWarning(t *testing.T) {
	var buf bytes.Buffer
	_, err := Generate(ScaleFree, Config{Nodes: 2, Logger: logging.NewJSONLogger(&buf, logging.WarnLevel)})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "complete graph")
	assert.Contains(t, buf.String(), `"level":"WARN"`)
}

func TestGenerateRecordsMetrics(t *testing.T) {
	reg := metrics.NewRegistry()
	_, err := Generate(Complete, Config{Nodes: 5, Metrics: reg})
	require.NoError(t, err)

	families, err := reg.GetPrometheusRegistry().Gather()
	require.NoError(t, err)
	var found bool
	for _, f := range families {
		if f.GetName() == "mspread_topology_generations_total" {
			found = true
			assert.Equal(t, 1.0, f.GetMetric()[0].GetCounter().GetValue())
		}
		if f.GetName() == "mspread_topology_devices_total" {
			assert.Equal(t, 5.0, f.GetMetric()[0].GetGauge().GetValue())
		}
	}
	assert.True(t, found)
}

func TestGenerateSegmented(t *testing.T) {
	var buf bytes.Buffer
	cfg := Config{
		Defaults: AttributePatch{OS: Ptr("Linux")},
		Subnets: []Subnet{
			{Kind: Complete, Nodes: 4, Defaults: AttributePatch{DeviceType: Ptr("server")}},
			{Kind: ScaleFree, Nodes: 10},
			{Kind: SmallWorld, Nodes: 8, Defaults: AttributePatch{AdminUser: Ptr(false)}},
		},
		Interconnects: []Interconnect{
			{SourceSubnet: 0, SourceNode: 1, TargetSubnet: 1, TargetNode: 0, Firewall: true},
			{SourceSubnet: 1, SourceNode: 9, TargetSubnet: 2, TargetNode: 7},
			{SourceSubnet: 0, SourceNode: 0, TargetSubnet: 5, TargetNode: 0},  // unknown subnet
			{SourceSubnet: 2, SourceNode: 8, TargetSubnet: 0, TargetNode: 0},  // node out of range
			{SourceSubnet: -1, SourceNode: 0, TargetSubnet: 0, TargetNode: 0}, // negative subnet
		},
		Rand:   NewRand(5),
		Logger: logging.NewJSONLogger(&buf, logging.WarnLevel),
	}

	topo, err := GenerateSegmented(cfg)
	require.NoError(t, err)
	assert.Equal(t, Segmented, topo.Kind())
	require.Equal(t, 22, topo.DeviceCount())

	// Subnet edges: K4 = 6, BA(10) = 21, WS(8) = 16; plus two interconnects.
	assert.Equal(t, 6+21+16+2, topo.ConnectionCount())

	first, _ := topo.DeviceAttributes("device_3")
	assert.Equal(t, "server", first.DeviceType)
	assert.Equal(t, "Linux", first.OSLabel())
	last, _ := topo.DeviceAttributes("device_21")
	assert.False(t, last.AdminUser)
	assert.Equal(t, DefaultDeviceType, last.DeviceType)

	// Offsets: subnet 1 starts at 4, subnet 2 at 14.
	conn, ok := topo.Connection("device_1", "device_4")
	require.True(t, ok)
	assert.Equal(t, ConnectionInterconnect, conn.Type)
	assert.Equal(t, true, conn.Metadata["firewall"])
	for _, id := range []string{"device_1", "device_4"} {
		attrs, _ := topo.DeviceAttributes(id)
		assert.True(t, attrs.Firewalled(), "%s should be firewalled", id)
	}

	conn, ok = topo.Connection("device_13", "device_21")
	require.True(t, ok)
	assert.Equal(t, ConnectionInterconnect, conn.Type)
	unfirewalled, _ := topo.DeviceAttributes("device_13")
	assert.False(t, unfirewalled.Firewalled())

	assert.Equal(t, 3, strings.Count(buf.String(), "skipping interconnect"))
}

func TestGenerateSegmentedLogsInterconnects(t *testing.T) {
	var buf bytes.Buffer
	_, err := GenerateSegmented(Config{
		Subnets:       []Subnet{{Kind: Complete, Nodes: 2}, {Kind: Complete, Nodes: 2}},
		Interconnects: []Interconnect{{SourceSubnet: 0, SourceNode: 1, TargetSubnet: 1, TargetNode: 0, Firewall: true}},
		Logger:        logging.NewJSONLogger(&buf, logging.DebugLevel),
	})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "interconnect added")
	assert.Contains(t, buf.String(), `"source":"device_1"`)
	assert.Contains(t, buf.String(), `"target":"device_2"`)
	assert.Contains(t, buf.String(), `"firewall":true`)
}

func TestGenerateSegmentedRejectsBadSubnets(t *testing.T) {
	_, err := GenerateSegmented(Config{})
	assert.True(t, simerr.IsConfiguration(err), "no subnets: %v", err)

	_, err = GenerateSegmented(Config{Subnets: []Subnet{{Kind: Segmented, Nodes: 3}}})
	assert.True(t, simerr.IsConfiguration(err), "nested segmented: %v", err)

	_, err = GenerateSegmented(Config{Subnets: []Subnet{{Kind: "ring", Nodes: 3}}})
	assert.True(t, simerr.IsConfiguration(err), "unknown subnet kind: %v", err)

	_, err = GenerateSegmented(Config{Subnets: []Subnet{{Kind: " SEGMENTED", Nodes: 3}}})
	assert.True(t, simerr.IsConfiguration(err), "nested segmented in mixed case: %v", err)
}
