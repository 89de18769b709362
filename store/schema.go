package store

// Host represents a supervised host
type Host struct {
	ID          string   `json:"name" yaml:"name"`
	Name        string   `json:"-" yaml:"-"`
	Address     string   `json:"address,omitempty" yaml:"address,omitempty"`
	GroupIDs    []string `json:"groups" yaml:"groups"`
	Ventilation string   `json:"ventilation,omitempty" yaml:"ventilation,omitempty"`
	Services    []string `json:"services,omitempty" yaml:"services,omitempty"`

	Groups []*Group `json:"-" yaml:"-"`

	// ServerGroup is the memoized ventilation group of the host,
	// it's reset on every backend (re)load
	ServerGroup string `json:"-" yaml:"-"`
}

// Group represents a node of the group forest
type Group struct {
	ID          string `json:"name" yaml:"name"`
	Name        string `json:"-" yaml:"-"`
	ParentID    string `json:"parent,omitempty" yaml:"parent,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	Path     string   `json:"-" yaml:"-"`
	Parent   *Group   `json:"-" yaml:"-"`
	Root     *Group   `json:"-" yaml:"-"`
	Children []*Group `json:"-" yaml:"-"`
	Hosts    []*Host  `json:"-" yaml:"-"`
}

// Application represents a supervision application (nagios, collector, etc)
// which belongs to exactly one application group
type Application struct {
	ID      string `json:"name" yaml:"name"`
	Name    string `json:"-" yaml:"-"`
	GroupID string `json:"group" yaml:"group"`
}

// Pool is an ordered list of candidate servers for
// an application group and a host group
type Pool struct {
	AppGroup  string   `json:"appgroup" yaml:"appgroup"`
	HostGroup string   `json:"hostgroup" yaml:"hostgroup"`
	Servers   []string `json:"servers" yaml:"servers"`
}

type groupstore struct {
	_id  map[string]*Group
	path map[string]*Group
}

type hoststore struct {
	_id  map[string]*Host
	name map[string]*Host
}

type appstore struct {
	_id   map[string]*Application
	group map[string][]*Application
}

// poolstore maps appgroup -> hostgroup -> servers
type poolstore map[string]map[string][]string
