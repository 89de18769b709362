package ventilation

import (
	"fmt"
	"strings"
)

// ConfigurationError is returned when a host can't be resolved
// to exactly one ventilation group
type ConfigurationError struct {
	Host       string
	Candidates []string
}

func (e *ConfigurationError) Error() string {
	if len(e.Candidates) == 0 {
		return fmt.Sprintf("Could not determine how to ventilate host %s. "+
			"Assign some groups to this host or set its ventilation group", e.Host)
	}
	return fmt.Sprintf("Found multiple candidates for ventilation (%s) on %s, "+
		"set the ventilation group to select one", strings.Join(e.Candidates, ", "), e.Host)
}

// NoServerAvailable is returned when neither a nominal nor a backup
// server is available for an application group and a host group
type NoServerAvailable struct {
	AppGroup  string
	HostGroup string
}

func (e *NoServerAvailable) Error() string {
	return fmt.Sprintf("No server available for the appgroup %s and the hostgroup %s", e.AppGroup, e.HostGroup)
}

// InvalidServerOperation is returned by server enable/disable
// operations on unknown servers or servers already in the target state
type InvalidServerOperation struct {
	Server string
	Reason string
}

func (e *InvalidServerOperation) Error() string {
	return fmt.Sprintf("The Vigilo server %s %s", e.Server, e.Reason)
}
