package herd

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/els0r/geoherd/pkg/places"
	"github.com/els0r/geoherd/pkg/registry"
	"github.com/els0r/geoherd/pkg/topology"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testClient = "kiwi.cs.ucla.edu"
	testCoords = "+34.068930-118.445127"
	testStamp  = "1520023934.918963997"

	convergenceTimeout = 3 * time.Second
	pollInterval       = 10 * time.Millisecond
)

type testHerd struct {
	topo    *topology.Topology
	servers map[string]*Server
}

// startHerd brings up the listed servers on ephemeral loopback ports. Names
// that appear in the neighbor map but not in running are configured with a
// dead port, mimicking a herd member that is down
func startHerd(t *testing.T, neighbors map[string][]string, running []string, oracleURL string) *testHerd {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	listeners := make(map[string]net.Listener, len(running))
	for _, name := range running {
		listener, err := net.Listen("tcp", "127.0.0.1:0")
		require.Nil(t, err)
		listeners[name] = listener
	}

	topo := &topology.Topology{
		ListenAddr: "127.0.0.1",
		Servers:    make(map[string]topology.Server, len(neighbors)),
		Places:     topology.Places{URL: oracleURL},
	}
	for name, nbs := range neighbors {
		srv := topology.Server{Neighbors: nbs}
		if listener, isRunning := listeners[name]; isRunning {
			srv.Port = uint16(listener.Addr().(*net.TCPAddr).Port)
		} else {
			srv.Port = deadPort(t)
		}
		topo.Servers[name] = srv
	}
	require.Nil(t, topo.Validate())

	h := &testHerd{topo: topo, servers: make(map[string]*Server, len(running))}
	for _, name := range running {
		srv := New(name, topo, registry.New(), places.New(oracleURL, "test-key"))
		h.servers[name] = srv
		go func(srv *Server, listener net.Listener) {
			_ = srv.Serve(ctx, listener)
		}(srv, listeners[name])
	}
	return h
}

// deadPort reserves an ephemeral port and releases it again so connecting to
// it is refused
func deadPort(t *testing.T) uint16 {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.Nil(t, err)
	port := listener.Addr().(*net.TCPAddr).Port
	require.Nil(t, listener.Close())
	return uint16(port)
}

func (h *testHerd) dial(t *testing.T, name string) (net.Conn, *bufio.Reader) {
	t.Helper()

	conn, err := net.Dial("tcp", h.topo.Addr(name))
	require.Nil(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn, bufio.NewReader(conn)
}

func sendLine(t *testing.T, conn net.Conn, line string) {
	t.Helper()

	_, err := fmt.Fprintf(conn, "%s\n", line)
	require.Nil(t, err)
}

func readLine(t *testing.T, r *bufio.Reader) string {
	t.Helper()

	line, err := r.ReadString('\n')
	require.Nil(t, err)
	return line
}

func oracleStub(t *testing.T, nResults int) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		results := make([]map[string]string, nResults)
		for i := range results {
			results[i] = map[string]string{"name": "place"}
		}
		err := json.NewEncoder(w).Encode(map[string]any{
			"results": results,
			"status":  "OK",
		})
		require.Nil(t, err)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestIAmAtReplyAndFlood(t *testing.T) {
	h := startHerd(t, map[string][]string{
		"A": {"B"},
		"B": {},
	}, []string{"A", "B"}, "")

	conn, r := h.dial(t, "A")
	sendLine(t, conn, fmt.Sprintf("IAMAT %s %s %s", testClient, testCoords, testStamp))

	reply := readLine(t, r)
	require.True(t, strings.HasSuffix(reply, "\n"))

	fields := strings.Fields(reply)
	require.Len(t, fields, 6)
	assert.Equal(t, "AT", fields[0])
	assert.Equal(t, "A", fields[1])
	assert.Contains(t, "+-", string(fields[2][0]))
	assert.Equal(t, testClient, fields[3])
	assert.Equal(t, testCoords, fields[4])
	assert.Equal(t, testStamp, fields[5])

	// the update is gossiped to B, skew and origin travel unchanged
	require.Eventually(t, func() bool {
		_, exists := h.servers["B"].registry.Get(testClient)
		return exists
	}, convergenceTimeout, pollInterval)

	recA, _ := h.servers["A"].registry.Get(testClient)
	recB, _ := h.servers["B"].registry.Get(testClient)
	assert.Equal(t, recA, recB)
}

func TestStaleReportEchoesLiveRecord(t *testing.T) {
	h := startHerd(t, map[string][]string{
		"A": {"B"},
		"B": {"A"},
	}, []string{"A", "B"}, "")

	conn, r := h.dial(t, "A")
	sendLine(t, conn, fmt.Sprintf("IAMAT %s %s %s", testClient, testCoords, testStamp))
	_ = readLine(t, r)

	require.Eventually(t, func() bool {
		_, exists := h.servers["B"].registry.Get(testClient)
		return exists
	}, convergenceTimeout, pollInterval)
	live, _ := h.servers["B"].registry.Get(testClient)

	// an older report to B leaves the registry unchanged; the reply echoes
	// the live record, which still names A as origin
	connB, rB := h.dial(t, "B")
	sendLine(t, connB, fmt.Sprintf("IAMAT %s %s %s", testClient, testCoords, "1520023934.000000000"))

	reply := readLine(t, rB)
	assert.Equal(t, live.String()+"\n", reply)

	stored, _ := h.servers["B"].registry.Get(testClient)
	assert.Equal(t, live, stored)
}

func TestMalformedLineKeepsConnectionUsable(t *testing.T) {
	h := startHerd(t, map[string][]string{"A": {}}, []string{"A"}, "")

	conn, r := h.dial(t, "A")

	sendLine(t, conn, "IAMIT kiwi.cs.ucla.edu +0+0 0")
	assert.Equal(t, "? IAMIT kiwi.cs.ucla.edu +0+0 0\n", readLine(t, r))

	// the connection keeps processing subsequent lines
	sendLine(t, conn, fmt.Sprintf("IAMAT %s %s %s", testClient, testCoords, testStamp))
	assert.True(t, strings.HasPrefix(readLine(t, r), "AT A "))
}

func TestWhatsAtUnknownClient(t *testing.T) {
	h := startHerd(t, map[string][]string{"A": {}}, []string{"A"}, "")

	conn, r := h.dial(t, "A")
	sendLine(t, conn, "WHATSAT missing_client 5 5")
	assert.Equal(t, "? WHATSAT missing_client 5 5\n", readLine(t, r))
}

func TestWhatsAtCompositeReply(t *testing.T) {
	oracle := oracleStub(t, 10)
	h := startHerd(t, map[string][]string{"A": {}}, []string{"A"}, oracle.URL)

	conn, r := h.dial(t, "A")
	sendLine(t, conn, fmt.Sprintf("IAMAT %s %s %s", testClient, testCoords, testStamp))
	_ = readLine(t, r)

	sendLine(t, conn, fmt.Sprintf("WHATSAT %s 10 5", testClient))

	live, _ := h.servers["A"].registry.Get(testClient)
	assert.Equal(t, live.String()+"\n", readLine(t, r))

	// the JSON body runs until the blank line terminating the reply
	var body strings.Builder
	for {
		line := readLine(t, r)
		if line == "\n" {
			break
		}
		body.WriteString(line)
	}

	var payload struct {
		Results []json.RawMessage `json:"results"`
		Status  string            `json:"status"`
	}
	require.Nil(t, json.Unmarshal([]byte(body.String()), &payload))
	assert.Len(t, payload.Results, 5)
	assert.Equal(t, "OK", payload.Status)
}

func TestWhatsAtOracleFailureSendsNoReply(t *testing.T) {
	oracle := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(oracle.Close)

	h := startHerd(t, map[string][]string{"A": {}}, []string{"A"}, oracle.URL)

	conn, r := h.dial(t, "A")
	sendLine(t, conn, fmt.Sprintf("IAMAT %s %s %s", testClient, testCoords, testStamp))
	_ = readLine(t, r)

	sendLine(t, conn, fmt.Sprintf("WHATSAT %s 10 5", testClient))

	// no reply arrives, but the connection stays open for further commands
	require.Nil(t, conn.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, err := r.ReadByte()
	require.Error(t, err)
	require.Nil(t, conn.SetReadDeadline(time.Time{}))

	sendLine(t, conn, fmt.Sprintf("IAMAT %s %s %s", testClient, testCoords, "1520023999"))
	assert.True(t, strings.HasPrefix(readLine(t, r), "AT A "))
}

func TestDownNeighborDoesNotAffectReply(t *testing.T) {
	h := startHerd(t, map[string][]string{
		"A": {"B", "C"},
		"B": {},
		"C": {},
	}, []string{"A", "B"}, "")

	conn, r := h.dial(t, "A")
	sendLine(t, conn, fmt.Sprintf("IAMAT %s %s %s", testClient, testCoords, testStamp))

	// the reply is unaffected by the refused connection to C
	assert.True(t, strings.HasPrefix(readLine(t, r), "AT A "))

	require.Eventually(t, func() bool {
		_, exists := h.servers["B"].registry.Get(testClient)
		return exists
	}, convergenceTimeout, pollInterval)
}

func TestFloodTerminatesOnCycle(t *testing.T) {
	h := startHerd(t, map[string][]string{
		"A": {"B"},
		"B": {"C"},
		"C": {"A"},
	}, []string{"A", "B", "C"}, "")

	conn, r := h.dial(t, "A")
	sendLine(t, conn, fmt.Sprintf("IAMAT %s %s %s", testClient, testCoords, testStamp))
	_ = readLine(t, r)

	for _, name := range []string{"B", "C"} {
		require.Eventually(t, func() bool {
			_, exists := h.servers[name].registry.Get(testClient)
			return exists
		}, convergenceTimeout, pollInterval, "server %s did not converge", name)
	}

	recA, _ := h.servers["A"].registry.Get(testClient)
	recC, _ := h.servers["C"].registry.Get(testClient)
	assert.Equal(t, recA, recC)
}

func TestAtReinjectionIsIdempotent(t *testing.T) {
	h := startHerd(t, map[string][]string{
		"A": {"B"},
		"B": {"A"},
	}, []string{"A", "B"}, "")

	conn, r := h.dial(t, "A")
	sendLine(t, conn, fmt.Sprintf("IAMAT %s %s %s", testClient, testCoords, testStamp))
	_ = readLine(t, r)

	require.Eventually(t, func() bool {
		_, exists := h.servers["B"].registry.Get(testClient)
		return exists
	}, convergenceTimeout, pollInterval)
	live, _ := h.servers["B"].registry.Get(testClient)

	// re-inject the already-seen update with a full trail: B must confirm,
	// change nothing and flood no further
	connB, _ := h.dial(t, "B")
	sendLine(t, connB, live.String()+" A B")

	require.Nil(t, connB.SetReadDeadline(time.Now().Add(time.Second)))
	buf := make([]byte, 256)
	n, err := connB.Read(buf)
	require.Nil(t, err)
	assert.Equal(t, fmt.Sprintf("B received updated location for %s", testClient), string(buf[:n]))

	stored, _ := h.servers["B"].registry.Get(testClient)
	assert.Equal(t, live, stored)
}

func TestAtUnparsableTimestampIsDiscarded(t *testing.T) {
	h := startHerd(t, map[string][]string{"A": {}}, []string{"A"}, "")

	conn, _ := h.dial(t, "A")
	sendLine(t, conn, "AT X +0.1 some_client +0+0 garbage X")

	// the update is dropped on the registry update attempt: no confirmation,
	// no registry change
	require.Nil(t, conn.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	buf := make([]byte, 16)
	_, err := conn.Read(buf)
	require.Error(t, err)

	_, exists := h.servers["A"].registry.Get("some_client")
	assert.False(t, exists)
}
