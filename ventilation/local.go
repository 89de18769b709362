package ventilation

import (
	"github.com/viert/vigiconf/history"
	"github.com/viert/vigiconf/log"
	"github.com/viert/vigiconf/store"
)

// Local places every application of every host on one server
type Local struct {
	inv    *store.Store
	state  *history.Store
	server string
}

// NewLocal creates a local ventilator
func NewLocal(inv *store.Store, state *history.Store, server string) *Local {
	return &Local{inv: inv, state: state, server: server}
}

// VentilateAll places all the hosts of the configuration on the local server
func (l *Local) VentilateAll() (Result, *Report, error) {
	return l.Ventilate(l.inv.HostNames())
}

// Ventilate places the given hosts on the local server
func (l *Local) Ventilate(hostnames []string) (Result, *Report, error) {
	apps := l.inv.ApplicationNames()
	report := newReport(len(hostnames), len(l.inv.AppGroups()))
	result := make(Result)
	for _, hostname := range hostnames {
		placement := make(map[string][]string)
		for _, app := range apps {
			placement[app] = []string{l.server}
		}
		result[hostname] = placement
	}
	log.Debugf("%d hosts placed on the local server %s", len(result), l.server)
	report.finish()
	return result, report, nil
}

// Commit stores a full pass result in the history
func (l *Local) Commit(result Result, progress func()) error {
	l.state.Register([]string{l.server})
	return commit(l.state, l.inv.HostNames(), result, progress)
}
