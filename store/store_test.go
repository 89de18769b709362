package store

import (
	"strings"
	"testing"
)

type FakeBackend struct {
	hosts       []*Host
	groups      []*Group
	apps        []*Application
	pools       []*Pool
	backupPools []*Pool
}

func (fb *FakeBackend) Hosts() []*Host {
	return fb.hosts
}

func (fb *FakeBackend) Groups() []*Group {
	return fb.groups
}

func (fb *FakeBackend) Applications() []*Application {
	return fb.apps
}

func (fb *FakeBackend) Pools() []*Pool {
	return fb.pools
}

func (fb *FakeBackend) BackupPools() []*Pool {
	return fb.backupPools
}

func (fb *FakeBackend) Load() error {
	fb.groups = []*Group{
		{ID: "g1", Name: "Servers"},
		{ID: "g2", Name: "Linux", ParentID: "g1"},
		{ID: "g3", Name: "Windows", ParentID: "g1"},
		{ID: "g4", Name: "Network"},
		{ID: "g5", Name: "Routers", ParentID: "g4"},
	}

	fb.hosts = []*Host{
		{ID: "host1.example.com", GroupIDs: []string{"g2"}},
		{ID: "host2.example.com", GroupIDs: []string{"g3"}},
		{ID: "host10.example.com", GroupIDs: []string{"g2", "/Servers/Windows"}},
		{ID: "router1.example.com", GroupIDs: []string{"g5"}},
		{ID: "router2.example.com", GroupIDs: []string{"g5"}, Ventilation: "/Servers"},
	}

	fb.apps = []*Application{
		{ID: "nagios", GroupID: "collect"},
		{ID: "perfdata", GroupID: "collect"},
		{ID: "collector", GroupID: "collect"},
		{ID: "rrdgraph", GroupID: "metro"},
	}

	fb.pools = []*Pool{
		{AppGroup: "collect", HostGroup: "Servers", Servers: []string{"srvA", "srvB"}},
		{AppGroup: "metro", HostGroup: "Servers", Servers: []string{"srvC"}},
	}
	fb.backupPools = []*Pool{
		{AppGroup: "collect", HostGroup: "Servers", Servers: []string{"srvD"}},
		{AppGroup: "trap", HostGroup: "Network", Servers: []string{"srvE"}},
	}
	return nil
}

func (fb *FakeBackend) Reload() error {
	return fb.Load()
}

func newFB() *FakeBackend {
	return new(FakeBackend)
}

func TestStoreRelations(t *testing.T) {
	s, err := CreateStore(newFB())
	if err != nil {
		t.Error(err)
		return
	}

	g1, found := s.Group("g1")
	if !found {
		t.Error("Group g1 not found")
		return
	}

	g2, found := s.Group("/Servers/Linux")
	if !found {
		t.Error("Group /Servers/Linux not found")
		return
	}

	if g2.Parent != g1 {
		t.Error("Group g2 parent must be g1")
	}
	if g2.TopParent() != g1 {
		t.Error("Group g2 top parent must be g1")
	}
	if g1.TopParent() != g1 {
		t.Error("Root group g1 must be its own top parent")
	}

	found = false
	for _, chg := range g1.Children {
		if chg == g2 {
			found = true
			break
		}
	}
	if !found {
		t.Error("g2 should exist in g1.Children")
	}

	h10, found := s.Host("host10.example.com")
	if !found {
		t.Error("Host host10.example.com not found")
		return
	}
	if len(h10.Groups) != 2 {
		t.Errorf("host10 is expected to belong to 2 groups, got %d", len(h10.Groups))
	}
}

func TestStoreGroups(t *testing.T) {
	s, err := CreateStore(newFB())
	if err != nil {
		t.Error(err)
		return
	}

	groups := s.Groups()
	paths := make([]string, len(groups))
	for i, g := range groups {
		paths[i] = g.Path
	}
	expected := "/Network,/Network/Routers,/Servers,/Servers/Linux,/Servers/Windows"
	if strings.Join(paths, ",") != expected {
		t.Errorf("group paths expected to be %s, got %v", expected, paths)
	}
}

func TestStorePools(t *testing.T) {
	s, err := CreateStore(newFB())
	if err != nil {
		t.Error(err)
		return
	}

	appgroups := s.AppGroups()
	expected := []string{"collect", "metro", "trap"}
	if strings.Join(appgroups, ",") != strings.Join(expected, ",") {
		t.Errorf("AppGroups expected to be %v, got %v", expected, appgroups)
	}

	nominal := s.NominalServers("collect", "Servers")
	if strings.Join(nominal, ",") != "srvA,srvB" {
		t.Errorf("unexpected nominal pool %v", nominal)
	}
	// the returned slice is a copy
	nominal[0] = "changed"
	if s.NominalServers("collect", "Servers")[0] != "srvA" {
		t.Error("NominalServers must return a copy of the pool")
	}

	if servers := s.NominalServers("trap", "Network"); len(servers) != 0 {
		t.Errorf("trap has no nominal pool, got %v", servers)
	}

	backup, found := s.BackupServers("collect", "Servers")
	if !found || len(backup) != 1 || backup[0] != "srvD" {
		t.Errorf("unexpected backup pool %v", backup)
	}

	if _, found := s.BackupServers("metro", "Servers"); found {
		t.Error("metro has no backup pool")
	}

	apps := s.Applications("collect")
	if len(apps) != 3 || apps[0].Name != "collector" {
		t.Errorf("unexpected collect applications %v", apps)
	}

	servers := s.ServerNames()
	if strings.Join(servers, ",") != "srvA,srvB,srvC,srvD,srvE" {
		t.Errorf("unexpected server names %v", servers)
	}
}

func TestStoreReloadResetsMemo(t *testing.T) {
	fb := newFB()
	s, err := CreateStore(fb)
	if err != nil {
		t.Error(err)
		return
	}
	h, _ := s.Host("host1.example.com")
	h.ServerGroup = "Servers"

	err = s.BackendReload()
	if err != nil {
		t.Error(err)
		return
	}
	h, _ = s.Host("host1.example.com")
	if h.ServerGroup != "" {
		t.Error("memoized ventilation group must be reset on reload")
	}
}

type brokenBackend struct {
	FakeBackend
	mutate func(fb *FakeBackend)
}

func (bb *brokenBackend) Load() error {
	bb.FakeBackend.Load()
	bb.mutate(&bb.FakeBackend)
	return nil
}

func TestStoreValidation(t *testing.T) {
	cases := map[string]func(fb *FakeBackend){
		"unknown parent": func(fb *FakeBackend) {
			fb.groups[1].ParentID = "nope"
		},
		"cycle": func(fb *FakeBackend) {
			fb.groups[0].ParentID = "g2"
		},
		"unknown group": func(fb *FakeBackend) {
			fb.hosts[0].GroupIDs = []string{"/Servers/BSD"}
		},
		"invalid ventilation": func(fb *FakeBackend) {
			fb.hosts[0].Ventilation = "Servers/Linux"
		},
		"empty ventilation": func(fb *FakeBackend) {
			fb.hosts[0].Ventilation = "/"
		},
		"duplicate pool": func(fb *FakeBackend) {
			fb.pools = append(fb.pools, &Pool{AppGroup: "collect", HostGroup: "Servers"})
		},
		"pool for unknown group": func(fb *FakeBackend) {
			fb.backupPools[1].HostGroup = "Routers"
		},
		"application without group": func(fb *FakeBackend) {
			fb.apps[0].GroupID = ""
		},
	}

	for name, mutate := range cases {
		_, err := CreateStore(&brokenBackend{mutate: mutate})
		if err == nil {
			t.Errorf("%s: CreateStore is expected to fail", name)
		}
	}
}

func TestHostlistGroup(t *testing.T) {
	s, err := CreateStore(newFB())
	if err != nil {
		t.Error(err)
		return
	}

	hostlist, err := s.HostList([]rune("%g1"))
	if err != nil {
		t.Error(err)
		return
	}

	// natural sort puts host2 before host10
	expected := "host1.example.com,host2.example.com,host10.example.com"
	if strings.Join(hostlist, ",") != expected {
		t.Errorf("hostlist %%g1 is expected to be %s, got %v", expected, hostlist)
	}
}

func TestHostlistGroupPath(t *testing.T) {
	s, err := CreateStore(newFB())
	if err != nil {
		t.Error(err)
		return
	}

	hostlist, err := s.HostList([]rune("%/Servers/Linux"))
	if err != nil {
		t.Error(err)
		return
	}
	if len(hostlist) != 2 {
		t.Errorf("hostlist %%/Servers/Linux is expected to contain exactly 2 elements, %v", hostlist)
	}
}

func TestHostlistRegexp(t *testing.T) {
	s, err := CreateStore(newFB())
	if err != nil {
		t.Error(err)
		return
	}

	hostlist, err := s.HostList([]rune("%g1/^host1/"))
	if err != nil {
		t.Error(err)
		return
	}
	if len(hostlist) != 2 {
		t.Errorf("hostlist is expected to contain exactly 2 elements, %v", hostlist)
	}

	hostlist, err = s.HostList([]rune("/^router/"))
	if err != nil {
		t.Error(err)
		return
	}
	if len(hostlist) != 2 {
		t.Errorf("hostlist is expected to contain exactly 2 elements, %v", hostlist)
	}
}

func TestExclude(t *testing.T) {
	s, err := CreateStore(newFB())
	if err != nil {
		t.Error(err)
		return
	}

	hostlist, err := s.HostList([]rune("%g4"))
	if err != nil {
		t.Error(err)
	}

	if len(hostlist) != 2 {
		t.Errorf("hostlist is expected to consist of exactly two elements, %v", hostlist)
	}

	hostlist, err = s.HostList([]rune("%g4,-router1.example.com"))
	if err != nil {
		t.Error(err)
	}

	if len(hostlist) != 1 || hostlist[0] != "router2.example.com" {
		t.Errorf("hostlist is expected to consist of exactly one element, %v", hostlist)
	}
}

func TestParseErrors(t *testing.T) {
	for _, expr := range []string{"%", "/unterminated", "host{1..3", "%g1/[/", "$host"} {
		if _, err := parseExpression([]rune(expr)); err == nil {
			t.Errorf("expression %q is expected to fail", expr)
		}
	}
}
