// Package ventilation decides which Vigilo servers supervise
// every application of every host
package ventilation

import (
	"errors"
	"fmt"
	"sort"

	"github.com/viert/vigiconf/history"
	"github.com/viert/vigiconf/log"
	"github.com/viert/vigiconf/store"
	"github.com/viert/vigiconf/stringslice"
)

// Result maps host -> application -> servers (nominal first, then backup)
type Result map[string]map[string][]string

// Hosts returns the result host names sorted
func (r Result) Hosts() []string {
	res := make([]string, 0, len(r))
	for host := range r {
		res = append(res, host)
	}
	sort.Strings(res)
	return res
}

// Ventilator is the interface implemented by the remote
// and the local placement engines
type Ventilator interface {
	VentilateAll() (Result, *Report, error)
	Ventilate(hostnames []string) (Result, *Report, error)
	Commit(result Result, progress func()) error
}

// Options tunes the ventilation pass
type Options struct {
	// SkipInvalidHosts makes a pass exclude hosts without a valid
	// ventilation group instead of failing
	SkipInvalidHosts bool
}

// Remote spreads hosts across the Vigilo servers pools
type Remote struct {
	inv   *store.Store
	state *history.Store
	opts  Options
}

// NewRemote creates a remote ventilator
func NewRemote(inv *store.Store, state *history.Store, opts Options) *Remote {
	return &Remote{inv: inv, state: state, opts: opts}
}

// NewContext registers the servers known to the configuration and
// takes a history snapshot for a new pass
func (v *Remote) NewContext() *Context {
	v.state.Register(v.inv.ServerNames())
	return NewContext(v.state.Snapshot())
}

// ResolveVentilationGroup returns the ventilation group of a host given by name
func (v *Remote) ResolveVentilationGroup(hostname string) (string, error) {
	host, found := v.inv.Host(hostname)
	if !found {
		return "", fmt.Errorf("Host %s not found", hostname)
	}
	return ResolveVentilationGroup(host)
}

// VentilateAppGroup returns the servers (a nominal and/or a backup one)
// for an application group of a host. An application group without
// applications gives an empty list
func (v *Remote) VentilateAppGroup(ctx *Context, appGroup, hostGroup, hostname string) ([]string, error) {
	apps := appNames(v.inv.Applications(appGroup))
	if len(apps) == 0 {
		return nil, nil
	}

	servers := make([]string, 0, 2)
	fp := ctx.fingerprint(hostname)
	previous := ctx.previous(hostname, apps)

	nominal := ctx.available(v.inv.NominalServers(appGroup, hostGroup))
	if server := choose(nominal, previous, fp); server != "" {
		servers = append(servers, server)
	}

	if backup, found := v.inv.BackupServers(appGroup, hostGroup); found {
		backup = ctx.available(backup)
		if server := choose(backup, previous, fp); server != "" {
			servers = append(servers, server)
		}
	}

	if len(servers) == 0 {
		return nil, &NoServerAvailable{AppGroup: appGroup, HostGroup: hostGroup}
	}
	return servers, nil
}

// VentilateAll computes the placement of every host of the configuration
func (v *Remote) VentilateAll() (Result, *Report, error) {
	return v.Ventilate(v.inv.HostNames())
}

// Ventilate computes the placement of the given hosts
func (v *Remote) Ventilate(hostnames []string) (Result, *Report, error) {
	log.Debug("Ventilation begin")
	ctx := v.NewContext()
	appGroups := v.inv.AppGroups()
	report := newReport(len(hostnames), len(appGroups))

	hostgroups := make(map[string][]string)
	for _, hostname := range hostnames {
		hostgroup, err := v.ResolveVentilationGroup(hostname)
		if err != nil {
			var cerr *ConfigurationError
			if errors.As(err, &cerr) && v.opts.SkipInvalidHosts {
				report.addInvalid(cerr)
				continue
			}
			return nil, nil, err
		}
		hostgroups[hostgroup] = append(hostgroups[hostgroup], hostname)
	}

	appsByGroup := make(map[string][]string)
	for _, appGroup := range appGroups {
		appsByGroup[appGroup] = appNames(v.inv.Applications(appGroup))
	}

	result := make(Result)
	for _, hostgroup := range sortedKeys(hostgroups) {
		for _, hostname := range hostgroups[hostgroup] {
			placement := make(map[string][]string)
			for _, appGroup := range appGroups {
				servers, err := v.VentilateAppGroup(ctx, appGroup, hostgroup, hostname)
				if err != nil {
					var nerr *NoServerAvailable
					if errors.As(err, &nerr) {
						report.addUnavailable(nerr)
						continue
					}
					return nil, nil, err
				}
				if servers == nil {
					continue
				}
				for _, app := range appsByGroup[appGroup] {
					placement[app] = append([]string{}, servers...)
				}
			}
			result[hostname] = placement
		}
	}

	report.finish()
	log.Debug("Ventilation end")
	return result, report, nil
}

// DisableServer excludes a server from the next ventilation passes
func (v *Remote) DisableServer(name string) error {
	return v.setDisabled(name, true)
}

// EnableServer makes a disabled server available again. The placements
// made elsewhere while it was disabled are forgotten so the next pass
// is free to move the hosts back
func (v *Remote) EnableServer(name string) error {
	return v.setDisabled(name, false)
}

func (v *Remote) setDisabled(name string, disabled bool) error {
	v.state.Register(v.inv.ServerNames())
	srv, found := v.state.Server(name)
	if !found {
		return &InvalidServerOperation{Server: name, Reason: "does not exist"}
	}
	if srv.Disabled == disabled {
		if disabled {
			return &InvalidServerOperation{Server: name, Reason: "is already disabled"}
		}
		return &InvalidServerOperation{Server: name, Reason: "is already enabled"}
	}

	err := v.state.SetDisabled(name, disabled)
	if err != nil {
		return err
	}
	if disabled {
		log.Infof("Server %s disabled", name)
	} else {
		v.state.ForgetStandIns(name, v.standIns(name))
		log.Infof("Server %s enabled", name)
	}
	return v.state.Flush()
}

// standIns reports whether other could have replaced server for an
// application of a host, i.e. both are in the same nominal or backup
// pool of the host ventilation group
func (v *Remote) standIns(server string) func(host, app, other string) bool {
	appGroups := make(map[string]string)
	for _, appGroup := range v.inv.AppGroups() {
		for _, app := range v.inv.Applications(appGroup) {
			appGroups[app.Name] = appGroup
		}
	}

	return func(host, app, other string) bool {
		appGroup, found := appGroups[app]
		if !found {
			return false
		}
		hostGroup, err := v.ResolveVentilationGroup(host)
		if err != nil {
			return false
		}
		backup, _ := v.inv.BackupServers(appGroup, hostGroup)
		for _, pool := range [][]string{v.inv.NominalServers(appGroup, hostGroup), backup} {
			if stringslice.Contains(pool, server) && stringslice.Contains(pool, other) {
				return true
			}
		}
		return false
	}
}

// Commit stores a full pass result in the history. The placements
// of hosts unknown to the configuration are forgotten
func (v *Remote) Commit(result Result, progress func()) error {
	return commit(v.state, v.inv.HostNames(), result, progress)
}

func commit(state *history.Store, hostnames []string, result Result, progress func()) error {
	for _, hostname := range result.Hosts() {
		state.Commit(hostname, result[hostname])
		if progress != nil {
			progress()
		}
	}
	state.Forget(hostnames)
	return state.Flush()
}

func appNames(apps []*store.Application) []string {
	res := make([]string, len(apps))
	for i, app := range apps {
		res[i] = app.Name
	}
	return res
}

func sortedKeys(m map[string][]string) []string {
	res := make([]string, 0, len(m))
	for key := range m {
		res = append(res, key)
	}
	sort.Strings(res)
	return res
}
