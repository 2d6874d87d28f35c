// Package topology provides the static herd configuration: the closed set of
// server names, their listening ports, the (directed) neighbor graph used for
// flooding and the places-of-interest endpoint
package topology

import (
	"fmt"
	"io"
	"net"
	"os"
	"strconv"

	"github.com/els0r/geoherd/pkg/defaults"
	"gopkg.in/yaml.v3"
)

// Server holds the per-server portion of the topology
type Server struct {
	Port      uint16   `yaml:"port"`
	Neighbors []string `yaml:"neighbors"`
}

// Places holds the access parameters for the external places oracle
type Places struct {
	URL string `yaml:"url"`
	Key string `yaml:"key"`
}

// Topology is the process-wide immutable herd configuration. It is loaded
// once at startup and never modified afterwards
type Topology struct {
	ListenAddr string            `yaml:"listen_addr"`
	Servers    map[string]Server `yaml:"servers"`
	Places     Places            `yaml:"places"`
}

// Default returns the built-in herd table
func Default() *Topology {
	return &Topology{
		ListenAddr: defaults.ListenAddr,
		Servers: map[string]Server{
			"Goloman": {Port: 12525, Neighbors: []string{"Hands", "Holiday", "Wilkes"}},
			"Hands":   {Port: 12526, Neighbors: []string{"Goloman", "Wilkes"}},
			"Holiday": {Port: 12527, Neighbors: []string{"Goloman", "Welsh", "Wilkes"}},
			"Welsh":   {Port: 12528, Neighbors: []string{"Holiday"}},
			"Wilkes":  {Port: 12529, Neighbors: []string{"Goloman", "Hands", "Holiday"}},
		},
		Places: Places{
			URL: defaults.PlacesBaseURL,
		},
	}
}

// NewFromReader reads a topology from r
func NewFromReader(r io.Reader) (*Topology, error) {
	var t = new(Topology)
	err := yaml.NewDecoder(r).Decode(t)
	if err != nil {
		return nil, err
	}
	if t.ListenAddr == "" {
		t.ListenAddr = defaults.ListenAddr
	}
	if t.Places.URL == "" {
		t.Places.URL = defaults.PlacesBaseURL
	}
	err = t.Validate()
	if err != nil {
		return nil, err
	}
	return t, nil
}

// NewFromFile reads a topology from the file at path
func NewFromFile(path string) (*Topology, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return NewFromReader(f)
}

// Validate checks the topology for internal consistency. The neighbor graph
// is not required to be symmetric or connected, but every neighbor must name
// a member of the server set
func (t *Topology) Validate() error {
	if len(t.Servers) == 0 {
		return fmt.Errorf("topology defines no servers")
	}
	for name, srv := range t.Servers {
		if srv.Port == 0 {
			return fmt.Errorf("server %q: no port configured", name)
		}
		for _, n := range srv.Neighbors {
			if n == name {
				return fmt.Errorf("server %q: lists itself as neighbor", name)
			}
			if _, exists := t.Servers[n]; !exists {
				return fmt.Errorf("server %q: unknown neighbor %q", name, n)
			}
		}
	}
	return nil
}

// Contains reports whether name is a member of the server set
func (t *Topology) Contains(name string) bool {
	_, exists := t.Servers[name]
	return exists
}

// Names returns all member names of the server set
func (t *Topology) Names() []string {
	names := make([]string, 0, len(t.Servers))
	for name := range t.Servers {
		names = append(names, name)
	}
	return names
}

// Addr returns the dial / listen address of the named server
func (t *Topology) Addr(name string) string {
	return net.JoinHostPort(t.ListenAddr, strconv.Itoa(int(t.Servers[name].Port)))
}

// Neighbors returns the flood targets of the named server
func (t *Topology) Neighbors(name string) []string {
	return t.Servers[name].Neighbors
}
