package store

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/facette/natsort"
	"github.com/viert/sekwence"
	"github.com/viert/vigiconf/stringslice"
)

// Store represents the configuration snapshot: the group forest,
// hosts, applications and server pools
type Store struct {
	groups      *groupstore
	hosts       *hoststore
	apps        *appstore
	pools       poolstore
	backupPools poolstore
	backend     Backend

	naturalSort bool
}

func (s *Store) reinitStore() {
	s.groups = new(groupstore)
	s.groups._id = make(map[string]*Group)
	s.groups.path = make(map[string]*Group)
	s.hosts = new(hoststore)
	s.hosts._id = make(map[string]*Host)
	s.hosts.name = make(map[string]*Host)
	s.apps = new(appstore)
	s.apps._id = make(map[string]*Application)
	s.apps.group = make(map[string][]*Application)
	s.pools = make(poolstore)
	s.backupPools = make(poolstore)
}

func (s *Store) addHost(host *Host) error {
	if host.Name == "" {
		host.Name = host.ID
	}
	if _, found := s.hosts.name[host.Name]; found {
		return fmt.Errorf("Duplicate host %s", host.Name)
	}
	host.Groups = nil
	host.ServerGroup = ""
	s.hosts.name[host.Name] = host
	s.hosts._id[host.ID] = host
	return nil
}

func (s *Store) addGroup(group *Group) error {
	if group.Name == "" {
		group.Name = group.ID
	}
	if _, found := s.groups._id[group.ID]; found {
		return fmt.Errorf("Duplicate group id %s", group.ID)
	}
	group.Parent = nil
	group.Root = nil
	group.Children = nil
	group.Hosts = nil
	s.groups._id[group.ID] = group
	return nil
}

func (s *Store) addApplication(app *Application) error {
	if app.Name == "" {
		app.Name = app.ID
	}
	if _, found := s.apps._id[app.ID]; found {
		return fmt.Errorf("Duplicate application %s", app.ID)
	}
	if app.GroupID == "" {
		return fmt.Errorf("Application %s has no application group", app.ID)
	}
	s.apps._id[app.ID] = app
	s.apps.group[app.GroupID] = append(s.apps.group[app.GroupID], app)
	return nil
}

func (ps poolstore) add(pool *Pool) error {
	if pool.AppGroup == "" || pool.HostGroup == "" {
		return fmt.Errorf("Pool must have both appgroup and hostgroup defined")
	}
	hostgroups, found := ps[pool.AppGroup]
	if !found {
		hostgroups = make(map[string][]string)
		ps[pool.AppGroup] = hostgroups
	}
	if _, found := hostgroups[pool.HostGroup]; found {
		return fmt.Errorf("Duplicate pool for appgroup %s and hostgroup %s", pool.AppGroup, pool.HostGroup)
	}
	servers := make([]string, len(pool.Servers))
	copy(servers, pool.Servers)
	hostgroups[pool.HostGroup] = servers
	return nil
}

// TopParent returns the top-most ancestor of the group
// (the group itself if it's a root group)
func (g *Group) TopParent() *Group {
	if g.Root != nil {
		return g.Root
	}
	top := g
	for top.Parent != nil {
		top = top.Parent
	}
	return top
}

// SetNaturalSort enables/disables using of natural sorting
// within one expression token (i.e. group)
func (s *Store) SetNaturalSort(value bool) {
	s.naturalSort = value
}

// SortHostnames sorts a list of hostnames in place
// using the store sorting mode
func (s *Store) SortHostnames(hostnames []string) {
	if s.naturalSort {
		natsort.Sort(hostnames)
	} else {
		sort.Strings(hostnames)
	}
}

// Host returns a host by its name
func (s *Store) Host(name string) (*Host, bool) {
	h, found := s.hosts.name[name]
	return h, found
}

// HostNames returns a sorted list of all host names
func (s *Store) HostNames() []string {
	res := make([]string, 0, len(s.hosts.name))
	for name := range s.hosts.name {
		res = append(res, name)
	}
	sort.Strings(res)
	return res
}

// Group returns a group by its id or its absolute path
func (s *Store) Group(ref string) (*Group, bool) {
	if strings.HasPrefix(ref, "/") {
		g, found := s.groups.path[ref]
		return g, found
	}
	g, found := s.groups._id[ref]
	return g, found
}

// Groups returns all the groups sorted by path
func (s *Store) Groups() []*Group {
	res := make([]*Group, 0, len(s.groups._id))
	for _, g := range s.groups._id {
		res = append(res, g)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Path < res[j].Path })
	return res
}

// AppGroups returns a sorted list of application groups having
// at least one nominal or backup pool configured
func (s *Store) AppGroups() []string {
	res := make([]string, 0, len(s.pools))
	for appgroup := range s.pools {
		res = append(res, appgroup)
	}
	for appgroup := range s.backupPools {
		if _, found := s.pools[appgroup]; !found {
			res = append(res, appgroup)
		}
	}
	sort.Strings(res)
	return res
}

// Applications returns the applications of an application group
// sorted by name
func (s *Store) Applications(appGroup string) []*Application {
	apps := s.apps.group[appGroup]
	res := make([]*Application, len(apps))
	copy(res, apps)
	sort.Slice(res, func(i, j int) bool { return res[i].Name < res[j].Name })
	return res
}

// ApplicationNames returns all the application names sorted
func (s *Store) ApplicationNames() []string {
	res := make([]string, 0, len(s.apps._id))
	for _, app := range s.apps._id {
		res = append(res, app.Name)
	}
	sort.Strings(res)
	return res
}

// NominalServers returns a copy of the nominal pool of an
// application group for a host group
func (s *Store) NominalServers(appGroup, hostGroup string) []string {
	servers, _ := s.pools.lookup(appGroup, hostGroup)
	return servers
}

// BackupServers returns a copy of the backup pool of an application
// group for a host group. The second value is false if no backup
// pool is configured
func (s *Store) BackupServers(appGroup, hostGroup string) ([]string, bool) {
	return s.backupPools.lookup(appGroup, hostGroup)
}

func (ps poolstore) lookup(appGroup, hostGroup string) ([]string, bool) {
	hostgroups, found := ps[appGroup]
	if !found {
		return nil, false
	}
	servers, found := hostgroups[hostGroup]
	if !found {
		return nil, false
	}
	res := make([]string, len(servers))
	copy(res, servers)
	return res, true
}

// ServerNames returns a sorted list of every server mentioned in
// nominal or backup pools
func (s *Store) ServerNames() []string {
	res := make([]string, 0)
	for _, ps := range []poolstore{s.pools, s.backupPools} {
		for _, hostgroups := range ps {
			for _, servers := range hostgroups {
				for _, server := range servers {
					res = stringslice.AppendUniq(res, server)
				}
			}
		}
	}
	sort.Strings(res)
	return res
}

// CompleteHost returns all postfixes of host names starting with a given prefix
func (s *Store) CompleteHost(prefix string) []string {
	res := make([]string, 0)
	for hostname := range s.hosts.name {
		if prefix == "" || strings.HasPrefix(hostname, prefix) {
			res = append(res, hostname[len(prefix):])
		}
	}
	sort.Strings(res)
	return res
}

// CompleteGroup returns all postfixes of group ids starting with a given prefix
func (s *Store) CompleteGroup(prefix string) []string {
	res := make([]string, 0)
	for id := range s.groups._id {
		if prefix == "" || strings.HasPrefix(id, prefix) {
			res = append(res, id[len(prefix):])
		}
	}
	sort.Strings(res)
	return res
}

// CompleteServer returns all postfixes of server names starting with a given prefix
func (s *Store) CompleteServer(prefix string) []string {
	res := make([]string, 0)
	for _, name := range s.ServerNames() {
		if prefix == "" || strings.HasPrefix(name, prefix) {
			res = append(res, name[len(prefix):])
		}
	}
	return res
}

func (s *Store) matchHost(pattern *regexp.Regexp) []string {
	res := make([]string, 0)
	for hostname := range s.hosts.name {
		if pattern.MatchString(hostname) {
			res = append(res, hostname)
		}
	}
	sort.Strings(res)
	return res
}

func (s *Store) groupAllChildren(g *Group) []*Group {
	children := make([]*Group, len(g.Children))
	copy(children, g.Children)

	for _, child := range g.Children {
		children = append(children, s.groupAllChildren(child)...)
	}
	return children
}

func (s *Store) groupAllHosts(g *Group) []*Host {
	allGroups := s.groupAllChildren(g)
	allGroups = append(allGroups, g)
	hosts := make([]*Host, 0)
	for _, group := range allGroups {
		hosts = append(hosts, group.Hosts...)
	}
	return hosts
}

// HostList returns a list of host names according to a given
// expression
func (s *Store) HostList(expr []rune) ([]string, error) {
	tokens, err := parseExpression(expr)
	if err != nil {
		return nil, err
	}

	hostlist := make([][]string, 0)
	excluded := make([]string, 0)

	for _, token := range tokens {
		singleTokenHosts := make([]string, 0)
		switch token.Type {
		case tTypeHostRegexp:
			for _, host := range s.matchHost(token.RegexpFilter) {
				maybeAddHost(&singleTokenHosts, &excluded, host, token.Exclude)
			}
		case tTypeHost:
			hosts, err := sekwence.ExpandPattern(token.Value)
			if err != nil {
				hosts = []string{token.Value}
			}
			for _, host := range hosts {
				maybeAddHost(&singleTokenHosts, &excluded, host, token.Exclude)
			}

		case tTypeGroup:
			if group, found := s.Group(token.Value); found {
				for _, host := range s.groupAllHosts(group) {
					if token.RegexpFilter != nil && !token.RegexpFilter.MatchString(host.Name) {
						continue
					}
					maybeAddHost(&singleTokenHosts, &excluded, host.Name, token.Exclude)
				}
			}
		}
		if len(singleTokenHosts) > 0 {
			hostlist = append(hostlist, singleTokenHosts)
		}
	}

	results := make([]string, 0)
	for _, sthosts := range hostlist {
		// sorting within one expression token only
		// the order of tokens themselves should be respected
		s.SortHostnames(sthosts)
		for _, host := range sthosts {
			if !stringslice.Contains(excluded, host) && !stringslice.Contains(results, host) {
				results = append(results, host)
			}
		}
	}
	return results, nil
}

func maybeAddHost(hostlist *[]string, excluded *[]string, host string, exclude bool) {
	if exclude {
		*excluded = append(*excluded, host)
		return
	}
	*hostlist = stringslice.AppendUniq(*hostlist, host)
}

// apply is called after the raw data is loaded and creates relations
// between models according to relation ids
func (s *Store) apply() error {
	var parent *Group

	for _, group := range s.groups._id {
		if group.ParentID == "" {
			continue
		}
		parent = s.groups._id[group.ParentID]
		if parent == nil {
			return fmt.Errorf("Group %s refers to unknown parent %s", group.ID, group.ParentID)
		}
		group.Parent = parent
		parent.Children = append(parent.Children, group)
	}

	// paths and roots, walking no more than len(groups) steps up
	// as a longer walk means there's a cycle
	for _, group := range s.groups._id {
		parts := []string{group.Name}
		parent = group
		steps := 0
		for parent.Parent != nil {
			steps++
			if steps > len(s.groups._id) {
				return fmt.Errorf("Group %s is a part of a parent cycle", group.ID)
			}
			parent = parent.Parent
			parts = append([]string{parent.Name}, parts...)
		}
		group.Root = parent
		group.Path = "/" + strings.Join(parts, "/")
		if other, found := s.groups.path[group.Path]; found {
			return fmt.Errorf("Groups %s and %s have the same path %s", other.ID, group.ID, group.Path)
		}
		s.groups.path[group.Path] = group
	}

	roots := make(map[string]bool)
	for _, group := range s.groups._id {
		if group.Parent == nil {
			roots[group.Name] = true
		}
	}
	for _, ps := range []poolstore{s.pools, s.backupPools} {
		for appgroup, hostgroups := range ps {
			for hostgroup := range hostgroups {
				if !roots[hostgroup] {
					return fmt.Errorf("Pool for appgroup %s refers to unknown top-level group %s", appgroup, hostgroup)
				}
			}
		}
	}

	for _, host := range s.hosts._id {
		if strings.Count(host.Ventilation, "/") > 1 ||
			(strings.Contains(host.Ventilation, "/") && !strings.HasPrefix(host.Ventilation, "/")) {
			return fmt.Errorf("Invalid ventilation group %s for host %s", host.Ventilation, host.Name)
		}
		if host.Ventilation != "" && strings.Trim(host.Ventilation, "/") == "" {
			return fmt.Errorf("Empty ventilation group %s for host %s", host.Ventilation, host.Name)
		}
		for _, ref := range host.GroupIDs {
			group, found := s.Group(ref)
			if !found {
				return fmt.Errorf("Unknown group \"%s\" in host \"%s\"", ref, host.Name)
			}
			if containsGroup(host.Groups, group) {
				continue
			}
			host.Groups = append(host.Groups, group)
			group.Hosts = append(group.Hosts, host)
		}
	}
	return nil
}

func containsGroup(groups []*Group, group *Group) bool {
	for _, g := range groups {
		if g == group {
			return true
		}
	}
	return false
}

// CreateStore creates a new store and loads data from a given backend
func CreateStore(backend Backend) (*Store, error) {
	s := new(Store)
	s.backend = backend
	s.naturalSort = true
	err := s.BackendLoad()
	return s, err
}

func (s *Store) copyBackendData() error {
	s.reinitStore()
	for _, group := range s.backend.Groups() {
		if err := s.addGroup(group); err != nil {
			return err
		}
	}
	for _, host := range s.backend.Hosts() {
		if err := s.addHost(host); err != nil {
			return err
		}
	}
	for _, app := range s.backend.Applications() {
		if err := s.addApplication(app); err != nil {
			return err
		}
	}
	for _, pool := range s.backend.Pools() {
		if err := s.pools.add(pool); err != nil {
			return err
		}
	}
	for _, pool := range s.backend.BackupPools() {
		if err := s.backupPools.add(pool); err != nil {
			return err
		}
	}
	return s.apply()
}

// BackendLoad is a proxy to backend.Load handler
func (s *Store) BackendLoad() error {
	err := s.backend.Load()
	if err == nil {
		err = s.copyBackendData()
	}
	return err
}

// BackendReload is a proxy to backend.Reload handler
func (s *Store) BackendReload() error {
	err := s.backend.Reload()
	if err == nil {
		err = s.copyBackendData()
	}
	return err
}
