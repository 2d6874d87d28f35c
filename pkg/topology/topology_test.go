package topology

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	topo := Default()
	require.Nil(t, topo.Validate())

	assert.True(t, topo.Contains("Goloman"))
	assert.False(t, topo.Contains("Atlantis"))
	assert.Equal(t, "127.0.0.1:12528", topo.Addr("Welsh"))
	assert.ElementsMatch(t, []string{"Goloman", "Wilkes"}, topo.Neighbors("Hands"))
	assert.Len(t, topo.Names(), 5)
}

const sampleTopology = `
listen_addr: 127.0.0.1
servers:
  A:
    port: 23456
    neighbors: [B]
  B:
    port: 23457
    neighbors: []
places:
  url: https://places.example.com/nearbysearch/json
  key: test-key
`

func TestNewFromReader(t *testing.T) {
	topo, err := NewFromReader(strings.NewReader(sampleTopology))
	require.Nil(t, err)

	assert.Equal(t, "127.0.0.1:23456", topo.Addr("A"))
	assert.Equal(t, []string{"B"}, topo.Neighbors("A"))
	assert.Empty(t, topo.Neighbors("B"))
	assert.Equal(t, "test-key", topo.Places.Key)

	// the graph is directed, asymmetry is legal
	assert.NotContains(t, topo.Neighbors("B"), "A")
}

func TestValidate(t *testing.T) {
	var tests = []struct {
		name string
		topo *Topology
	}{
		{"no servers", &Topology{ListenAddr: "127.0.0.1"}},
		{"missing port", &Topology{
			ListenAddr: "127.0.0.1",
			Servers:    map[string]Server{"A": {}},
		}},
		{"unknown neighbor", &Topology{
			ListenAddr: "127.0.0.1",
			Servers:    map[string]Server{"A": {Port: 1000, Neighbors: []string{"Z"}}},
		}},
		{"self neighbor", &Topology{
			ListenAddr: "127.0.0.1",
			Servers:    map[string]Server{"A": {Port: 1000, Neighbors: []string{"A"}}},
		}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			require.Error(t, test.topo.Validate())
		})
	}
}
