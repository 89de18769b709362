// Package history keeps the Vigilo servers directory (with their
// disabled flag) and the placement records of the previous
// ventilation runs
package history

import (
	"fmt"
	"sort"

	"github.com/viert/vigiconf/log"
	"github.com/viert/vigiconf/stringslice"
)

// Server represents a Vigilo supervision server
type Server struct {
	Name     string `json:"name"`
	Disabled bool   `json:"disabled"`
}

// Record is a single placement: the server supervising
// an application of a host
type Record struct {
	Host        string `json:"host"`
	Application string `json:"application"`
	Server      string `json:"server"`
}

// Backend represents a history persistence backend
type Backend interface {
	Load() error
	Servers() []*Server
	Records() []*Record
	Save(servers []*Server, records []*Record) error
	Close() error
}

type placement struct {
	host string
	app  string
}

// Store is the in-memory view of the history backend data
type Store struct {
	backend Backend
	servers map[string]*Server
	// host, application -> servers
	records map[placement][]string
	dirty   bool
}

// CreateStore creates a new history store and loads data
// from a given backend
func CreateStore(backend Backend) (*Store, error) {
	s := &Store{backend: backend}
	err := s.BackendLoad()
	return s, err
}

// BackendLoad reloads the store data from its backend
func (s *Store) BackendLoad() error {
	s.servers = make(map[string]*Server)
	s.records = make(map[placement][]string)
	s.dirty = false

	err := s.backend.Load()
	if err != nil {
		return err
	}
	for _, srv := range s.backend.Servers() {
		s.servers[srv.Name] = &Server{Name: srv.Name, Disabled: srv.Disabled}
	}
	for _, rec := range s.backend.Records() {
		s.addRecord(rec.Host, rec.Application, rec.Server)
	}
	log.Debugf("History loaded: %d servers, %d placements", len(s.servers), len(s.records))
	return nil
}

func (s *Store) addRecord(host, app, server string) {
	key := placement{host, app}
	s.records[key] = stringslice.AppendUniq(s.records[key], server)
}

// Register adds unknown servers to the directory as enabled ones
func (s *Store) Register(names []string) {
	for _, name := range names {
		if _, found := s.servers[name]; !found {
			s.servers[name] = &Server{Name: name}
			s.dirty = true
			log.Debugf("Server %s registered", name)
		}
	}
}

// Server returns a copy of a server description
func (s *Store) Server(name string) (Server, bool) {
	srv, found := s.servers[name]
	if !found {
		return Server{}, false
	}
	return *srv, true
}

// Servers returns copies of all the known servers sorted by name
func (s *Store) Servers() []Server {
	res := make([]Server, 0, len(s.servers))
	for _, srv := range s.servers {
		res = append(res, *srv)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Name < res[j].Name })
	return res
}

// SetDisabled switches the disabled flag of a known server
func (s *Store) SetDisabled(name string, disabled bool) error {
	srv, found := s.servers[name]
	if !found {
		return fmt.Errorf("server %s does not exist", name)
	}
	if srv.Disabled != disabled {
		srv.Disabled = disabled
		s.dirty = true
	}
	return nil
}

// Records returns all the placement records sorted by host,
// application and server
func (s *Store) Records() []*Record {
	res := make([]*Record, 0, len(s.records))
	for key, servers := range s.records {
		for _, server := range servers {
			res = append(res, &Record{Host: key.host, Application: key.app, Server: server})
		}
	}
	sort.Slice(res, func(i, j int) bool {
		if res[i].Host != res[j].Host {
			return res[i].Host < res[j].Host
		}
		if res[i].Application != res[j].Application {
			return res[i].Application < res[j].Application
		}
		return res[i].Server < res[j].Server
	})
	return res
}

// ForgetStandIns removes the records which point to another server
// for every host and application the given server has a record for.
// It's used when a server is re-enabled so the temporary placements
// made while it was disabled don't hold the hosts away from it.
// Only the servers standIn returns true for are removed; a nil
// standIn removes all of them
func (s *Store) ForgetStandIns(server string, standIn func(host, app, other string) bool) int {
	removed := 0
	for key, servers := range s.records {
		if !stringslice.Contains(servers, server) {
			continue
		}
		kept := make([]string, 0, len(servers))
		for _, other := range servers {
			if other != server && (standIn == nil || standIn(key.host, key.app, other)) {
				removed++
				continue
			}
			kept = append(kept, other)
		}
		s.records[key] = kept
	}
	if removed > 0 {
		s.dirty = true
	}
	log.Debugf("%d stand-in placements removed for server %s", removed, server)
	return removed
}

// Commit replaces the placements of a host with the given
// application -> servers mapping. Records pointing to disabled
// servers are kept as they're suspended rather than obsolete
func (s *Store) Commit(host string, assignment map[string][]string) {
	for key, servers := range s.records {
		if key.host != host {
			continue
		}
		kept := make([]string, 0)
		for _, server := range servers {
			if srv, found := s.servers[server]; found && srv.Disabled {
				kept = append(kept, server)
			}
		}
		if len(kept) == 0 {
			delete(s.records, key)
		} else {
			s.records[key] = kept
		}
	}
	for app, servers := range assignment {
		for _, server := range servers {
			s.addRecord(host, app, server)
		}
	}
	s.dirty = true
}

// Forget removes every placement of the hosts not listed
func (s *Store) Forget(hosts []string) {
	keep := make(map[string]bool)
	for _, host := range hosts {
		keep[host] = true
	}
	for key := range s.records {
		if !keep[key.host] {
			delete(s.records, key)
			s.dirty = true
		}
	}
}

// Flush saves the store data to its backend if anything
// has been changed since the last load or flush
func (s *Store) Flush() error {
	if !s.dirty {
		return nil
	}
	servers := make([]*Server, 0, len(s.servers))
	for _, srv := range s.Servers() {
		srv := srv
		servers = append(servers, &srv)
	}
	err := s.backend.Save(servers, s.Records())
	if err == nil {
		s.dirty = false
	}
	return err
}

// Close flushes the store and closes its backend
func (s *Store) Close() error {
	err := s.Flush()
	cerr := s.backend.Close()
	if err != nil {
		return err
	}
	return cerr
}

// Snapshot returns a read-only copy of the enabled servers and
// the previous placements of enabled servers
func (s *Store) Snapshot() *Snapshot {
	snap := &Snapshot{
		enabled:  make(map[string]bool),
		previous: make(map[string]map[string][]string),
	}
	for name, srv := range s.servers {
		if !srv.Disabled {
			snap.enabled[name] = true
		}
	}
	for key, servers := range s.records {
		for _, server := range servers {
			if !snap.enabled[server] {
				continue
			}
			apps, found := snap.previous[key.host]
			if !found {
				apps = make(map[string][]string)
				snap.previous[key.host] = apps
			}
			apps[key.app] = append(apps[key.app], server)
		}
	}
	return snap
}

// Snapshot is an immutable view of the servers state and
// the previous placements
type Snapshot struct {
	enabled  map[string]bool
	previous map[string]map[string][]string
}

// Enabled returns true if the server is known and not disabled
func (sn *Snapshot) Enabled(server string) bool {
	return sn.enabled[server]
}

// PreviousServers returns the set of enabled servers a host was placed on
// for any of the given applications
func (sn *Snapshot) PreviousServers(host string, apps []string) map[string]bool {
	res := make(map[string]bool)
	for _, app := range apps {
		for _, server := range sn.previous[host][app] {
			res[server] = true
		}
	}
	return res
}
