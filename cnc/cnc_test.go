package cnc_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/redbug312/adams-leaf/cnc"
	"github.com/redbug312/adams-leaf/config"
	"github.com/redbug312/adams-leaf/network"
	"github.com/redbug312/adams-leaf/stream"
)

func buildNetwork(t *testing.T) *network.Network {
	t.Helper()

	n := network.New()
	edges := [][2]int64{{0, 1}, {0, 2}, {1, 3}, {1, 4}, {2, 3}, {2, 5}, {3, 5}}
	for _, e := range edges {
		require.NoError(t, n.AddEdge(e[0], e[1], 1000), "AddEdge %v", e)
	}

	return n
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	net := buildNetwork(t)
	bad := config.Default()
	bad.Seed = 0

	_, err := cnc.New(net, bad, nil)
	require.Error(t, err, "expected an error for an invalid config")
}

func TestConfigure_SPF_ProducesAReport(t *testing.T) {
	net := buildNetwork(t)
	cfg := config.Default()
	cfg.Algorithm = config.SPF
	cfg.HyperperiodUs = 600

	c, err := cnc.New(net, cfg, nil)
	require.NoError(t, err)

	c.AddStreams(
		[]stream.TSN{{Src: 0, Dst: 4, Size: 250, Period: 100, Deadline: 100}},
		[]stream.AVB{{Src: 0, Dst: 5, Size: 250, Period: 100, Deadline: 300}},
	)

	_, err = c.Configure()
	require.NoError(t, err)

	var sb strings.Builder
	require.NoError(t, c.Report(&sb))
	require.Contains(t, sb.String(), "TSN streams")
	require.Contains(t, sb.String(), "AVB streams")
}

func TestConfigure_PreservesStreamsAcrossCalls(t *testing.T) {
	net := buildNetwork(t)
	cfg := config.Default()
	cfg.Algorithm = config.SPF
	cfg.HyperperiodUs = 600

	c, err := cnc.New(net, cfg, nil)
	require.NoError(t, err)

	c.AddStreams([]stream.TSN{{Src: 0, Dst: 4, Size: 250, Period: 100, Deadline: 100}}, nil)
	_, err = c.Configure()
	require.NoError(t, err)

	c.AddStreams(nil, []stream.AVB{{Src: 0, Dst: 5, Size: 250, Period: 100, Deadline: 300}})
	_, err = c.Configure()
	require.NoError(t, err)

	require.Equal(t, 1, c.FlowTable().NumTSNs())
	require.Equal(t, 1, c.FlowTable().NumAVBs())
}
