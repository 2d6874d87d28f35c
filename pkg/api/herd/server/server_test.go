package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	herdapi "github.com/els0r/geoherd/pkg/api/herd"
	"github.com/els0r/geoherd/pkg/protocol"
	"github.com/els0r/geoherd/pkg/registry"
	"github.com/els0r/geoherd/pkg/topology"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testServer(t *testing.T) (*Server, *registry.Registry, *httptest.Server) {
	t.Helper()

	reg := registry.New()
	srv := New("localhost:8155", "Goloman", topology.Default(), reg)

	ts := httptest.NewServer(srv.router.Handler())
	t.Cleanup(ts.Close)
	return srv, reg, ts
}

func get(t *testing.T, url string, expectedStatus int, res any) {
	t.Helper()

	resp, err := http.Get(url)
	require.Nil(t, err)
	defer resp.Body.Close()

	require.Equal(t, expectedStatus, resp.StatusCode)
	if res != nil {
		require.Nil(t, json.NewDecoder(resp.Body).Decode(res))
	}
}

func TestHealthRoutes(t *testing.T) {
	_, _, ts := testServer(t)

	get(t, ts.URL+"/-/health", http.StatusOK, nil)
	get(t, ts.URL+"/-/ready", http.StatusOK, nil)
	get(t, ts.URL+"/-/info", http.StatusOK, nil)
}

func TestGetClients(t *testing.T) {
	_, reg, ts := testServer(t)

	_, _, err := reg.Update(protocol.Record{
		Origin:    "Goloman",
		Skew:      "+0.5",
		ClientID:  "kiwi.cs.ucla.edu",
		Coords:    "+34.068930-118.445127",
		Timestamp: "1520023934.918963997",
	})
	require.Nil(t, err)

	var res herdapi.ClientsResponse
	get(t, ts.URL+herdapi.ClientsRoute, http.StatusOK, &res)

	assert.Equal(t, "Goloman", res.Server)
	assert.Equal(t, 1, res.Count)
	require.Contains(t, res.Clients, "kiwi.cs.ucla.edu")
	assert.Equal(t,
		"AT Goloman +0.5 kiwi.cs.ucla.edu +34.068930-118.445127 1520023934.918963997",
		res.Clients["kiwi.cs.ucla.edu"].AT,
	)
}

func TestGetClientNotFound(t *testing.T) {
	_, _, ts := testServer(t)

	var res herdapi.Error
	get(t, ts.URL+herdapi.ClientsRoute+"/unknown", http.StatusNotFound, &res)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestGetTopology(t *testing.T) {
	_, _, ts := testServer(t)

	var res herdapi.TopologyResponse
	get(t, ts.URL+herdapi.TopologyRoute, http.StatusOK, &res)

	assert.Equal(t, "Goloman", res.Server)
	assert.ElementsMatch(t, []string{"Hands", "Holiday", "Wilkes"}, res.Neighbors)
	assert.Len(t, res.Peers, 5)
	assert.Equal(t, uint16(12528), res.Peers["Welsh"])
}
