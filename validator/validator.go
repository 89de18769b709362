// Package validator cross-checks a ventilation result against
// the configuration and the placements stored in the history
package validator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/viert/vigiconf/history"
	"github.com/viert/vigiconf/log"
	"github.com/viert/vigiconf/store"
	"github.com/viert/vigiconf/ventilation"
)

// Issue is a single validation error or warning
type Issue struct {
	Source  string
	Object  string
	Message string
}

// Stats are the counters gathered during validation
type Stats struct {
	Hosts    int
	Services int
	Servers  int
	Apps     int
}

// Validator checks a ventilation result
type Validator struct {
	inv      *store.Store
	state    *history.Store
	result   ventilation.Result
	errors   []Issue
	warnings []Issue
	stats    Stats
}

// New creates a validator for a ventilation result
func New(inv *store.Store, state *history.Store, result ventilation.Result) *Validator {
	return &Validator{
		inv:      inv,
		state:    state,
		result:   result,
		errors:   make([]Issue, 0),
		warnings: make([]Issue, 0),
	}
}

// AddError appends an error to the report
func (v *Validator) AddError(source, object, message string) {
	v.errors = append(v.errors, Issue{source, object, message})
}

// AddWarning appends a warning to the report
func (v *Validator) AddWarning(source, object, message string) {
	v.warnings = append(v.warnings, Issue{source, object, message})
}

// Errors returns the errors found so far
func (v *Validator) Errors() []Issue {
	return v.errors
}

// Warnings returns the warnings found so far
func (v *Validator) Warnings() []Issue {
	return v.warnings
}

// HasErrors returns true if any error has been found
func (v *Validator) HasErrors() bool {
	return len(v.errors) > 0
}

// Stats returns the validation counters
func (v *Validator) Stats() Stats {
	return v.stats
}

// Validate runs all the checks and returns false if any of them failed
func (v *Validator) Validate() bool {
	hostnames := v.inv.HostNames()
	v.stats.Hosts = len(hostnames)
	v.stats.Services = 0
	for _, hostname := range hostnames {
		host, _ := v.inv.Host(hostname)
		v.stats.Services += len(host.Services)
	}

	apps := make(map[string]bool)
	servers := make(map[string]bool)
	pairs := 0
	for _, placement := range v.result {
		for app, vservers := range placement {
			apps[app] = true
			pairs++
			for _, server := range vservers {
				servers[server] = true
			}
		}
	}
	v.stats.Apps = len(apps)
	v.stats.Servers = len(servers)

	ok := true
	if len(servers) == 0 {
		v.AddError("Base Config", "servers", "No server configuration to be generated")
		ok = false
	}
	if len(apps) == 0 {
		v.AddError("Base Config", "apps", "No application configuration to be generated")
		ok = false
	}
	if len(hostnames) == 0 {
		v.AddError("Base Config", "hosts", "No host configuration to be generated")
		ok = false
	}
	configured := 0
	for _, appGroup := range v.inv.AppGroups() {
		configured += len(v.inv.Applications(appGroup))
	}
	if expected := v.stats.Hosts * configured; pairs < expected {
		v.AddWarning("Ventilation", "placements",
			fmt.Sprintf("%d host and application pairs have been placed whereas %d were expected", pairs, expected))
	}

	if !v.validateHistory(hostnames, pairs) {
		ok = false
	}
	return ok
}

func (v *Validator) validateHistory(hostnames []string, pairs int) bool {
	ok := true
	records := v.state.Records()

	stored := make(map[string]bool)
	placed := make(map[string]bool)
	triples := make(map[string]bool)
	for _, rec := range records {
		stored[rec.Host] = true
		placed[rec.Host+"\x00"+rec.Application] = true
		triples[rec.Host+"\x00"+rec.Application+"\x00"+rec.Server] = true
	}

	if len(stored) != len(hostnames) {
		v.AddError("History", "hosts", fmt.Sprintf("The number of hosts in the history does not match "+
			"the number of hosts in the configuration. Found: %d, expected: %d", len(stored), len(hostnames)))
		log.Debugf("Hosts: difference between configuration and history: %s",
			strings.Join(difference(stored, hostnames), " "))
		ok = false
	}

	if len(placed) != pairs {
		v.AddError("History", "ventilation", fmt.Sprintf("The number of ventilation entries in the history does not match "+
			"the number of hosts and apps. Found: %d, expected: %d", len(placed), pairs))
		ok = false
	}

	missing := 0
	for hostname, placement := range v.result {
		for app, servers := range placement {
			for _, server := range servers {
				if !triples[hostname+"\x00"+app+"\x00"+server] {
					missing++
					log.Debugf("Placement of %s on %s for %s is not committed", hostname, server, app)
				}
			}
		}
	}
	if missing > 0 {
		v.AddError("History", "ventilation", fmt.Sprintf("%d placements are not committed to the history", missing))
		ok = false
	}
	return ok
}

// difference returns the elements found in only one of the two sets, sorted
func difference(set map[string]bool, list []string) []string {
	res := make([]string, 0)
	inList := make(map[string]bool)
	for _, item := range list {
		inList[item] = true
		if !set[item] {
			res = append(res, item)
		}
	}
	for item := range set {
		if !inList[item] {
			res = append(res, item)
		}
	}
	sort.Strings(res)
	return res
}

// Summary returns a textual summary of the validation
func (v *Validator) Summary(details bool, stats bool) []string {
	lines := make([]string, 0)
	if details {
		for _, e := range v.errors {
			lines = append(lines, fmt.Sprintf("########> Error in %s (object %s): %s", e.Source, e.Object, e.Message))
		}
		for _, w := range v.warnings {
			lines = append(lines, fmt.Sprintf("====> Warning in %s (object %s): %s", w.Source, w.Object, w.Message))
		}
	}
	lines = append(lines, fmt.Sprintf("%d errors", len(v.errors)))
	lines = append(lines, fmt.Sprintf("%d warnings", len(v.warnings)))
	if stats {
		lines = append(lines, fmt.Sprintf("%d applications have been placed for %d hosts (%d services) on %d servers.",
			v.stats.Apps, v.stats.Hosts, v.stats.Services, v.stats.Servers))
	}
	return lines
}
