package ventilation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viert/vigiconf/history"
	"github.com/viert/vigiconf/store"
)

type inventory struct {
	groups  []*store.Group
	hosts   []*store.Host
	apps    []*store.Application
	pools   []*store.Pool
	backups []*store.Pool
}

func (i *inventory) Load() error { return nil }
func (i *inventory) Reload() error { return nil }
func (i *inventory) Groups() []*store.Group { return i.groups }
func (i *inventory) Hosts() []*store.Host { return i.hosts }
func (i *inventory) Applications() []*store.Application { return i.apps }
func (i *inventory) Pools() []*store.Pool { return i.pools }
func (i *inventory) BackupPools() []*store.Pool { return i.backups }

type memHistory struct {
	servers []*history.Server
	records []*history.Record
}

func (m *memHistory) Load() error { return nil }
func (m *memHistory) Servers() []*history.Server { return m.servers }
func (m *memHistory) Records() []*history.Record { return m.records }
func (m *memHistory) Close() error { return nil }
func (m *memHistory) Save(servers []*history.Server, records []*history.Record) error {
	m.servers = servers
	m.records = records
	return nil
}

func newInventory(hosts ...*store.Host) *inventory {
	if len(hosts) == 0 {
		hosts = []*store.Host{
			{ID: "h1", GroupIDs: []string{"linux"}},
			{ID: "h2", GroupIDs: []string{"servers"}},
		}
	}
	return &inventory{
		groups: []*store.Group{
			{ID: "servers", Name: "Servers"},
			{ID: "linux", Name: "Linux", ParentID: "servers"},
			{ID: "network", Name: "Network"},
			{ID: "routers", Name: "Routers", ParentID: "network"},
		},
		hosts: hosts,
		apps: []*store.Application{
			{ID: "nagios", GroupID: "collect"},
			{ID: "perfdata", GroupID: "collect"},
			{ID: "collector", GroupID: "collect"},
			{ID: "rrdgraph", GroupID: "metro"},
		},
		pools: []*store.Pool{
			{AppGroup: "collect", HostGroup: "Servers", Servers: []string{"srvA", "srvB"}},
			{AppGroup: "metro", HostGroup: "Servers", Servers: []string{"srvC"}},
			{AppGroup: "collect", HostGroup: "Network", Servers: []string{"srvA"}},
			{AppGroup: "metro", HostGroup: "Network", Servers: []string{"srvF"}},
			{AppGroup: "trap", HostGroup: "Servers", Servers: []string{"srvE"}},
		},
		backups: []*store.Pool{
			{AppGroup: "metro", HostGroup: "Servers", Servers: []string{"srvD"}},
		},
	}
}

func setup(t *testing.T, inv *inventory, opts Options) (*Remote, *history.Store) {
	s, err := store.CreateStore(inv)
	require.NoError(t, err)
	state, err := history.CreateStore(new(memHistory))
	require.NoError(t, err)
	return NewRemote(s, state, opts), state
}

func collectOn(server string, backup ...string) map[string][]string {
	servers := append([]string{server}, backup...)
	return map[string][]string{
		"nagios":    servers,
		"perfdata":  servers,
		"collector": servers,
	}
}

func TestFingerprint(t *testing.T) {
	assert.Equal(t, uint32(16973978), Fingerprint("h1"))
	assert.Equal(t, uint32(17039515), Fingerprint("h2"))
	assert.Equal(t, Fingerprint("localhost"), Fingerprint("localhost"))
}

func TestResolveVentilationGroup(t *testing.T) {
	inv := newInventory(
		&store.Host{ID: "single", GroupIDs: []string{"linux"}},
		&store.Host{ID: "same-root", GroupIDs: []string{"linux", "servers"}},
		&store.Host{ID: "explicit", GroupIDs: []string{"linux"}, Ventilation: "/Network"},
		&store.Host{ID: "explicit-rel", Ventilation: "Network"},
		&store.Host{ID: "ambiguous", GroupIDs: []string{"routers", "linux"}},
		&store.Host{ID: "lonely"},
	)
	v, _ := setup(t, inv, Options{})

	cases := map[string]string{
		"single":       "Servers",
		"same-root":    "Servers",
		"explicit":     "Network",
		"explicit-rel": "Network",
	}
	for hostname, expected := range cases {
		group, err := v.ResolveVentilationGroup(hostname)
		require.NoError(t, err, hostname)
		assert.Equal(t, expected, group, hostname)
	}

	_, err := v.ResolveVentilationGroup("ambiguous")
	var cerr *ConfigurationError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, "ambiguous", cerr.Host)
	assert.Equal(t, []string{"Network", "Servers"}, cerr.Candidates)

	_, err = v.ResolveVentilationGroup("lonely")
	require.True(t, errors.As(err, &cerr))
	assert.Empty(t, cerr.Candidates)

	_, err = v.ResolveVentilationGroup("missing")
	assert.Error(t, err)
	assert.False(t, errors.As(err, &cerr))
}

func TestResolveMemoized(t *testing.T) {
	v, _ := setup(t, newInventory(), Options{})
	host, _ := v.inv.Host("h1")

	group, err := ResolveVentilationGroup(host)
	require.NoError(t, err)
	assert.Equal(t, "Servers", group)
	assert.Equal(t, "Servers", host.ServerGroup)

	host.Groups = nil
	group, err = ResolveVentilationGroup(host)
	require.NoError(t, err)
	assert.Equal(t, "Servers", group)
}

func TestVentilateEndToEnd(t *testing.T) {
	v, _ := setup(t, newInventory(), Options{})

	result, report, err := v.VentilateAll()
	require.NoError(t, err)

	h1 := collectOn("srvA")
	h1["rrdgraph"] = []string{"srvC", "srvD"}
	h2 := collectOn("srvB")
	h2["rrdgraph"] = []string{"srvC", "srvD"}
	assert.Equal(t, Result{"h1": h1, "h2": h2}, result)

	assert.Equal(t, 2, report.Hosts)
	assert.Equal(t, 3, report.AppGroups)
	assert.Empty(t, report.Unavailable)
	assert.Empty(t, report.InvalidHosts)
}

func TestDeterminism(t *testing.T) {
	v, _ := setup(t, newInventory(), Options{})

	first, _, err := v.VentilateAll()
	require.NoError(t, err)
	second, _, err := v.VentilateAll()
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestSpread(t *testing.T) {
	hosts := make([]*store.Host, 0)
	for _, name := range []string{"h1", "h2", "h3", "web01", "web02", "db-master"} {
		hosts = append(hosts, &store.Host{ID: name, GroupIDs: []string{"servers"}})
	}
	v, _ := setup(t, newInventory(hosts...), Options{})
	ctx := v.NewContext()

	pool := []string{"srvA", "srvB"}
	for _, host := range hosts {
		servers, err := v.VentilateAppGroup(ctx, "collect", "Servers", host.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{pool[Fingerprint(host.ID)%2]}, servers, host.ID)
	}
}

func TestStickiness(t *testing.T) {
	v, state := setup(t, newInventory(), Options{})
	state.Register([]string{"srvA", "srvB"})
	// the fingerprint of h1 points to srvA
	state.Commit("h1", map[string][]string{"perfdata": {"srvB"}})

	result, _, err := v.VentilateAll()
	require.NoError(t, err)
	assert.Equal(t, []string{"srvB"}, result["h1"]["nagios"])
	assert.Equal(t, []string{"srvB"}, result["h1"]["collector"])
	assert.Equal(t, []string{"srvB"}, result["h2"]["nagios"])
}

func withCollectBackup(inv *inventory) *inventory {
	inv.backups = append(inv.backups, &store.Pool{
		AppGroup: "collect", HostGroup: "Servers", Servers: []string{"bk1", "bk2"},
	})
	return inv
}

func TestBackupStickiness(t *testing.T) {
	v, state := setup(t, withCollectBackup(newInventory()), Options{})

	// the fingerprint of h1 points to srvA and bk1
	fresh, _, err := v.VentilateAll()
	require.NoError(t, err)
	assert.Equal(t, []string{"srvA", "bk1"}, fresh["h1"]["nagios"])

	state.Commit("h1", collectOn("srvA", "bk2"))
	result, _, err := v.VentilateAll()
	require.NoError(t, err)
	assert.Equal(t, []string{"srvA", "bk2"}, result["h1"]["nagios"])
	assert.Equal(t, []string{"srvA", "bk2"}, result["h1"]["collector"])
}

func TestReenableKeepsBackupPlacement(t *testing.T) {
	v, state := setup(t, withCollectBackup(newInventory()), Options{})
	state.Commit("h1", collectOn("srvA", "bk2"))

	require.NoError(t, v.DisableServer("srvA"))
	moved, _, err := v.VentilateAll()
	require.NoError(t, err)
	assert.Equal(t, []string{"srvB", "bk2"}, moved["h1"]["nagios"])
	require.NoError(t, v.Commit(moved, nil))

	require.NoError(t, v.EnableServer("srvA"))
	servers := make([]string, 0)
	for _, rec := range state.Records() {
		if rec.Host == "h1" && rec.Application == "nagios" {
			servers = append(servers, rec.Server)
		}
	}
	// srvB stood in for srvA, bk2 is in another pool and stays
	assert.Equal(t, []string{"bk2", "srvA"}, servers)

	back, _, err := v.VentilateAll()
	require.NoError(t, err)
	assert.Equal(t, []string{"srvA", "bk2"}, back["h1"]["nagios"])
}

func TestStickyToRemovedServer(t *testing.T) {
	v, state := setup(t, newInventory(), Options{})
	state.Register([]string{"srvOld"})
	state.Commit("h2", map[string][]string{"nagios": {"srvOld"}})

	result, _, err := v.VentilateAll()
	require.NoError(t, err)
	assert.Equal(t, []string{"srvB"}, result["h2"]["nagios"])
}

func TestDisabledExclusion(t *testing.T) {
	v, state := setup(t, newInventory(), Options{})
	require.NoError(t, v.DisableServer("srvB"))
	require.NoError(t, v.DisableServer("srvC"))
	// h2 was on srvB which is now disabled
	state.Commit("h2", collectOn("srvB"))

	result, report, err := v.VentilateAll()
	require.NoError(t, err)
	assert.Empty(t, report.Unavailable)

	for _, host := range []string{"h1", "h2"} {
		assert.Equal(t, []string{"srvA"}, result[host]["nagios"], host)
		// the only nominal server is disabled, the backup one is left
		assert.Equal(t, []string{"srvD"}, result[host]["rrdgraph"], host)
	}
}

func TestFailureIsolation(t *testing.T) {
	inv := newInventory(
		&store.Host{ID: "h1", GroupIDs: []string{"linux"}},
		&store.Host{ID: "h2", GroupIDs: []string{"servers"}},
		&store.Host{ID: "r1", GroupIDs: []string{"routers"}},
	)
	v, _ := setup(t, inv, Options{})
	require.NoError(t, v.DisableServer("srvC"))
	require.NoError(t, v.DisableServer("srvD"))

	result, report, err := v.VentilateAll()
	require.NoError(t, err)
	assert.Equal(t, []Pair{{AppGroup: "metro", HostGroup: "Servers"}}, report.Unavailable)

	assert.Equal(t, collectOn("srvA"), result["h1"])
	assert.Equal(t, collectOn("srvB"), result["h2"])

	r1 := collectOn("srvA")
	r1["rrdgraph"] = []string{"srvF"}
	assert.Equal(t, r1, result["r1"])
}

func TestNoPoolForHostGroup(t *testing.T) {
	inv := newInventory(&store.Host{ID: "r1", GroupIDs: []string{"routers"}})
	inv.pools = inv.pools[:3]
	v, _ := setup(t, inv, Options{})

	result, report, err := v.VentilateAll()
	require.NoError(t, err)
	assert.Equal(t, []Pair{{AppGroup: "metro", HostGroup: "Network"}}, report.Unavailable)
	assert.Equal(t, collectOn("srvA"), result["r1"])
}

func TestEmptyAppGroup(t *testing.T) {
	v, _ := setup(t, newInventory(), Options{})
	servers, err := v.VentilateAppGroup(v.NewContext(), "trap", "Servers", "h1")
	assert.NoError(t, err)
	assert.Empty(t, servers)
}

func TestReenableClearsBias(t *testing.T) {
	v, _ := setup(t, newInventory(), Options{})

	initial, _, err := v.VentilateAll()
	require.NoError(t, err)
	require.NoError(t, v.Commit(initial, nil))

	require.NoError(t, v.DisableServer("srvA"))
	moved, _, err := v.VentilateAll()
	require.NoError(t, err)
	assert.Equal(t, []string{"srvB"}, moved["h1"]["nagios"])
	require.NoError(t, v.Commit(moved, nil))

	// still sticky to the stand-in before srvA is enabled again
	sticky, _, err := v.VentilateAll()
	require.NoError(t, err)
	assert.Equal(t, []string{"srvB"}, sticky["h1"]["nagios"])

	require.NoError(t, v.EnableServer("srvA"))
	back, _, err := v.VentilateAll()
	require.NoError(t, err)
	assert.Equal(t, initial, back)
}

func TestInvalidHosts(t *testing.T) {
	hosts := func() *inventory {
		return newInventory(
			&store.Host{ID: "h1", GroupIDs: []string{"linux"}},
			&store.Host{ID: "lonely"},
		)
	}

	v, _ := setup(t, hosts(), Options{})
	_, _, err := v.VentilateAll()
	var cerr *ConfigurationError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, "lonely", cerr.Host)

	v, _ = setup(t, hosts(), Options{SkipInvalidHosts: true})
	result, report, err := v.VentilateAll()
	require.NoError(t, err)
	assert.Contains(t, result, "h1")
	assert.NotContains(t, result, "lonely")
	require.Len(t, report.InvalidHosts, 1)
	assert.Equal(t, "lonely", report.InvalidHosts[0].Host)
}

func TestServerOperations(t *testing.T) {
	v, state := setup(t, newInventory(), Options{})
	var oerr *InvalidServerOperation

	err := v.DisableServer("unknown")
	require.True(t, errors.As(err, &oerr))
	assert.Equal(t, "The Vigilo server unknown does not exist", err.Error())

	err = v.EnableServer("srvA")
	require.True(t, errors.As(err, &oerr))
	assert.Equal(t, "The Vigilo server srvA is already enabled", err.Error())

	require.NoError(t, v.DisableServer("srvA"))
	srv, _ := state.Server("srvA")
	assert.True(t, srv.Disabled)

	err = v.DisableServer("srvA")
	require.True(t, errors.As(err, &oerr))
	assert.Equal(t, "is already disabled", oerr.Reason)

	require.NoError(t, v.EnableServer("srvA"))
	srv, _ = state.Server("srvA")
	assert.False(t, srv.Disabled)
}

func TestCommitProgress(t *testing.T) {
	v, state := setup(t, newInventory(), Options{})
	result, _, err := v.VentilateAll()
	require.NoError(t, err)

	calls := 0
	require.NoError(t, v.Commit(result, func() { calls++ }))
	assert.Equal(t, 2, calls)
	assert.Len(t, state.Records(), 10)
}

func TestLocal(t *testing.T) {
	s, err := store.CreateStore(newInventory())
	require.NoError(t, err)
	state, err := history.CreateStore(new(memHistory))
	require.NoError(t, err)

	l := NewLocal(s, state, "localhost")
	result, report, err := l.VentilateAll()
	require.NoError(t, err)
	assert.Equal(t, 2, report.Hosts)

	for _, host := range []string{"h1", "h2"} {
		assert.Len(t, result[host], 4)
		for app, servers := range result[host] {
			assert.Equal(t, []string{"localhost"}, servers, app)
		}
	}

	require.NoError(t, l.Commit(result, nil))
	_, found := state.Server("localhost")
	assert.True(t, found)
	assert.Len(t, state.Records(), 8)
}

func TestReportSummary(t *testing.T) {
	r := newReport(3, 2)
	r.addUnavailable(&NoServerAvailable{AppGroup: "metro", HostGroup: "Servers"})
	r.addUnavailable(&NoServerAvailable{AppGroup: "metro", HostGroup: "Servers"})
	r.addUnavailable(&NoServerAvailable{AppGroup: "collect", HostGroup: "Servers"})
	r.addInvalid(&ConfigurationError{Host: "lonely"})
	r.finish()

	assert.Equal(t, []Pair{{"collect", "Servers"}, {"metro", "Servers"}}, r.Unavailable)
	lines := r.Summary()
	assert.Equal(t, "Hosts: 3", lines[0])
	assert.Contains(t, lines, "Unavailable pairs: 2")
	assert.Contains(t, lines, "  appgroup metro, hostgroup Servers")
	assert.Contains(t, lines, "Invalid hosts: 1")
}
