package ventilation

import (
	"fmt"
	"sort"

	"github.com/viert/vigiconf/log"
)

// Pair is an application group and a host group
type Pair struct {
	AppGroup  string
	HostGroup string
}

// Report summarizes a ventilation pass
type Report struct {
	Hosts        int
	AppGroups    int
	Unavailable  []Pair
	InvalidHosts []*ConfigurationError
}

func newReport(hosts, appGroups int) *Report {
	return &Report{
		Hosts:        hosts,
		AppGroups:    appGroups,
		Unavailable:  make([]Pair, 0),
		InvalidHosts: make([]*ConfigurationError, 0),
	}
}

func (r *Report) addUnavailable(e *NoServerAvailable) {
	pair := Pair{AppGroup: e.AppGroup, HostGroup: e.HostGroup}
	for _, p := range r.Unavailable {
		if p == pair {
			return
		}
	}
	r.Unavailable = append(r.Unavailable, pair)
}

func (r *Report) addInvalid(e *ConfigurationError) {
	r.InvalidHosts = append(r.InvalidHosts, e)
}

// finish sorts the collected conditions and logs a warning for each of them
func (r *Report) finish() {
	sort.Slice(r.Unavailable, func(i, j int) bool {
		if r.Unavailable[i].AppGroup != r.Unavailable[j].AppGroup {
			return r.Unavailable[i].AppGroup < r.Unavailable[j].AppGroup
		}
		return r.Unavailable[i].HostGroup < r.Unavailable[j].HostGroup
	})
	sort.Slice(r.InvalidHosts, func(i, j int) bool { return r.InvalidHosts[i].Host < r.InvalidHosts[j].Host })

	for _, p := range r.Unavailable {
		log.Warningf("No server available for the appgroup %s and the hostgroup %s, skipping it", p.AppGroup, p.HostGroup)
	}
	for _, e := range r.InvalidHosts {
		log.Warningf("Host %s skipped: %s", e.Host, e)
	}
}

// Summary returns the report as a list of lines
func (r *Report) Summary() []string {
	lines := []string{
		fmt.Sprintf("Hosts: %d", r.Hosts),
		fmt.Sprintf("Application groups: %d", r.AppGroups),
		fmt.Sprintf("Unavailable pairs: %d", len(r.Unavailable)),
	}
	for _, p := range r.Unavailable {
		lines = append(lines, fmt.Sprintf("  appgroup %s, hostgroup %s", p.AppGroup, p.HostGroup))
	}
	lines = append(lines, fmt.Sprintf("Invalid hosts: %d", len(r.InvalidHosts)))
	for _, e := range r.InvalidHosts {
		lines = append(lines, "  "+e.Error())
	}
	return lines
}
