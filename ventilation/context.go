package ventilation

import (
	"github.com/viert/vigiconf/history"
)

// Context is the state of a single ventilation pass. It's built once
// at the beginning of a pass and is never shared between passes
type Context struct {
	snapshot     *history.Snapshot
	fingerprints map[string]uint32
}

// NewContext creates a pass context from a history snapshot
func NewContext(snapshot *history.Snapshot) *Context {
	return &Context{
		snapshot:     snapshot,
		fingerprints: make(map[string]uint32),
	}
}

func (c *Context) fingerprint(hostname string) uint32 {
	fp, found := c.fingerprints[hostname]
	if !found {
		fp = Fingerprint(hostname)
		c.fingerprints[hostname] = fp
	}
	return fp
}

// available filters out disabled and unknown servers keeping the order
func (c *Context) available(servers []string) []string {
	res := make([]string, 0, len(servers))
	for _, server := range servers {
		if c.snapshot.Enabled(server) {
			res = append(res, server)
		}
	}
	return res
}

func (c *Context) previous(hostname string, apps []string) map[string]bool {
	return c.snapshot.PreviousServers(hostname, apps)
}

// choose picks a server from a list of available ones: the previously
// used server if any (the smallest name if there are several),
// otherwise the one pointed by the host fingerprint
func choose(servers []string, previous map[string]bool, fp uint32) string {
	if len(servers) == 0 {
		return ""
	}
	sticky := ""
	for _, server := range servers {
		if previous[server] && (sticky == "" || server < sticky) {
			sticky = server
		}
	}
	if sticky != "" {
		return sticky
	}
	return servers[fp%uint32(len(servers))]
}
