package localini

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/viert/vigiconf/config"
	"github.com/viert/vigiconf/store"
)

type parseSection int

const (
	sectionGroups parseSection = iota
	sectionHosts
	sectionApplications
	sectionPools
	sectionBackupPools
	sectionNone
)

// LocalIni backend loads the configuration from an ini-like file
//
//	[groups]
//	servers name=Servers
//	linux name=Linux parent=servers
//	[hosts]
//	web01.example.com groups=linux services=ping,http
//	[applications]
//	nagios group=collect
//	[pools]
//	collect hostgroup=Servers servers=sup1,sup2
//	[backup_pools]
//	collect hostgroup=Servers servers=sup3
type LocalIni struct {
	filename    string
	lineCount   int
	hosts       []*store.Host
	groups      []*store.Group
	apps        []*store.Application
	pools       []*store.Pool
	backupPools []*store.Pool
}

// New creates a new LocalIni backend
func New(cfg *config.Config) (*LocalIni, error) {
	filename, found := cfg.BackendCfg.Options["filename"]
	if !found || filename == "" {
		return nil, fmt.Errorf("localini backend filename option is missing")
	}
	return &LocalIni{filename: config.ExpandPath(filename)}, nil
}

// Hosts exported backend method
func (li *LocalIni) Hosts() []*store.Host {
	return li.hosts
}

// Groups exported backend method
func (li *LocalIni) Groups() []*store.Group {
	return li.groups
}

// Applications exported backend method
func (li *LocalIni) Applications() []*store.Application {
	return li.apps
}

// Pools exported backend method
func (li *LocalIni) Pools() []*store.Pool {
	return li.pools
}

// BackupPools exported backend method
func (li *LocalIni) BackupPools() []*store.Pool {
	return li.backupPools
}

// Load loads the data from file
func (li *LocalIni) Load() error {
	f, err := os.Open(li.filename)
	if err != nil {
		return err
	}
	defer f.Close()

	return li.read(f)
}

// Reload force reloads data from file
func (li *LocalIni) Reload() error {
	return li.Load()
}

func (li *LocalIni) read(r io.Reader) error {
	var line string

	li.hosts = make([]*store.Host, 0)
	li.groups = make([]*store.Group, 0)
	li.apps = make([]*store.Application, 0)
	li.pools = make([]*store.Pool, 0)
	li.backupPools = make([]*store.Pool, 0)

	li.lineCount = 0
	section := sectionNone
	scan := bufio.NewScanner(r)

	for scan.Scan() {
		li.lineCount++
		line = strings.TrimSpace(scan.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		switch line {
		case "[groups]":
			section = sectionGroups
		case "[hosts]":
			section = sectionHosts
		case "[applications]":
			section = sectionApplications
		case "[pools]":
			section = sectionPools
		case "[backup_pools]":
			section = sectionBackupPools
		default:
			var err error
			switch section {
			case sectionNone:
				err = fmt.Errorf("Unexpected line #%d outside sections: %s", li.lineCount, line)
			case sectionGroups:
				err = li.addGroup(line)
			case sectionHosts:
				err = li.addHost(line)
			case sectionApplications:
				err = li.addApplication(line)
			case sectionPools:
				err = li.addPool(line, &li.pools)
			case sectionBackupPools:
				err = li.addPool(line, &li.backupPools)
			}
			if err != nil {
				return err
			}
		}
	}
	return scan.Err()
}

func (li *LocalIni) parseLine(line string) (map[string]string, error) {
	data := make(map[string]string)
	tokens := strings.Fields(line)
	data["id"] = tokens[0]
	tokens = tokens[1:]
	for _, token := range tokens {
		kv := strings.SplitN(token, "=", 2)
		if len(kv) != 2 {
			return nil, fmt.Errorf("Invalid token \"%s\", expected key=value format at line %d", token, li.lineCount)
		}
		data[kv[0]] = kv[1]
	}

	return data, nil
}

func splitList(value string) []string {
	if value == "" {
		return nil
	}
	return strings.Split(value, ",")
}

func (li *LocalIni) addGroup(line string) error {
	data, err := li.parseLine(line)
	if err != nil {
		return err
	}
	group := new(store.Group)
	for key, value := range data {
		switch key {
		case "id":
			group.ID = value
		case "name":
			group.Name = value
		case "parent_id":
			fallthrough
		case "parent":
			group.ParentID = value
		case "desc":
			fallthrough
		case "description":
			group.Description = value
		default:
			return fmt.Errorf("Invalid token %s at line %d: %s", key, li.lineCount, line)
		}
	}
	li.groups = append(li.groups, group)
	return nil
}

func (li *LocalIni) addHost(line string) error {
	data, err := li.parseLine(line)
	if err != nil {
		return err
	}
	host := new(store.Host)
	for key, value := range data {
		switch key {
		case "id":
			host.ID = value
		case "address":
			fallthrough
		case "ip":
			host.Address = value
		case "group":
			fallthrough
		case "groups":
			host.GroupIDs = splitList(value)
		case "ventilation":
			host.Ventilation = value
		case "services":
			host.Services = splitList(value)
		default:
			return fmt.Errorf("Invalid token %s at line %d: %s", key, li.lineCount, line)
		}
	}
	li.hosts = append(li.hosts, host)
	return nil
}

func (li *LocalIni) addApplication(line string) error {
	data, err := li.parseLine(line)
	if err != nil {
		return err
	}
	app := new(store.Application)
	for key, value := range data {
		switch key {
		case "id":
			app.ID = value
		case "appgroup":
			fallthrough
		case "group":
			app.GroupID = value
		default:
			return fmt.Errorf("Invalid token %s at line %d: %s", key, li.lineCount, line)
		}
	}
	li.apps = append(li.apps, app)
	return nil
}

func (li *LocalIni) addPool(line string, pools *[]*store.Pool) error {
	data, err := li.parseLine(line)
	if err != nil {
		return err
	}
	pool := new(store.Pool)
	for key, value := range data {
		switch key {
		case "id":
			pool.AppGroup = value
		case "hostgroup":
			pool.HostGroup = value
		case "servers":
			pool.Servers = splitList(value)
		default:
			return fmt.Errorf("Invalid token %s at line %d: %s", key, li.lineCount, line)
		}
	}
	*pools = append(*pools, pool)
	return nil
}
