package ventilation

import (
	"sort"
	"strings"

	"github.com/viert/vigiconf/store"
	"github.com/viert/vigiconf/stringslice"
)

// ResolveVentilationGroup returns the ventilation group of a host.
// An explicit ventilation group wins, otherwise all the host groups
// must have the same top-level ancestor. The result is memoized
// in host.ServerGroup
func ResolveVentilationGroup(host *store.Host) (string, error) {
	if host.ServerGroup != "" {
		return host.ServerGroup, nil
	}

	if host.Ventilation != "" {
		group := host.Ventilation
		if strings.Count(group, "/") == 1 {
			group = strings.TrimPrefix(group, "/")
		}
		host.ServerGroup = group
		return group, nil
	}

	candidates := make([]string, 0)
	for _, group := range host.Groups {
		candidates = stringslice.AppendUniq(candidates, group.TopParent().Name)
	}
	sort.Strings(candidates)

	if len(candidates) != 1 {
		return "", &ConfigurationError{Host: host.Name, Candidates: candidates}
	}
	host.ServerGroup = candidates[0]
	return host.ServerGroup, nil
}
