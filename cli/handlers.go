package cli

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/viert/vigiconf/log"
	"github.com/viert/vigiconf/stringslice"
	"github.com/viert/vigiconf/term"
	"github.com/viert/vigiconf/validator"
	"github.com/viert/vigiconf/ventilation"
	pb "gopkg.in/cheggaaa/pb.v1"
)

func (c *Cli) setupCmdHandlers() {
	c.handlers = make(map[string]cmdHandler)
	c.handlers["exit"] = c.doExit
	c.handlers["mode"] = c.doMode
	c.handlers["hostlist"] = c.doHostlist
	c.handlers["groups"] = c.doGroups
	c.handlers["resolve"] = c.doResolve
	c.handlers["ventilate"] = c.doVentilate
	c.handlers["commit"] = c.doCommit
	c.handlers["validate"] = c.doValidate
	c.handlers["placements"] = c.doPlacements
	c.handlers["servers"] = c.doServers
	c.handlers["disable"] = c.doDisable
	c.handlers["enable"] = c.doEnable
	c.handlers["alias"] = c.doAlias
	c.handlers["debug"] = c.doDebug
	c.handlers["reload"] = c.doReload
	c.handlers["progressbar"] = c.doProgressBar
	c.handlers["skip_invalid"] = c.doSkipInvalid
	c.handlers["help"] = c.doHelp
	c.handlers["output"] = c.doOutput
	c.handlers["version"] = c.doVersion

	commands := make([]string, len(c.handlers))
	i := 0
	for cmd := range c.handlers {
		commands[i] = cmd
		i++
	}
	c.completer = newCompleter(c.store, commands)
}

func (c *Cli) doExit(name string, argsLine string, args ...string) {
	c.stopped = true
}

func (c *Cli) doMode(name string, argsLine string, args ...string) {
	if len(args) < 1 {
		term.Warnf("mode is %s\n", c.mode)
		return
	}
	err := c.setMode(args[0])
	if err != nil {
		term.Errorf("%s\n", err)
	}
}

func (c *Cli) doSkipInvalid(name string, argsLine string, args ...string) {
	if doOnOff("skip_invalid", &c.opts.SkipInvalidHosts, args) {
		c.setMode(c.mode)
	}
}

// hostlist resolves an expression keeping the known hosts only
func (c *Cli) hostlist(expr string) ([]string, error) {
	hosts, err := c.store.HostList([]rune(expr))
	if err != nil {
		return nil, err
	}
	known := make([]string, 0, len(hosts))
	for _, hostname := range hosts {
		if _, found := c.store.Host(hostname); found {
			known = append(known, hostname)
		} else {
			term.Warnf("Host %s is not in the configuration, skipping it\n", hostname)
		}
	}
	if len(known) == 0 {
		return nil, fmt.Errorf("Empty hostlist")
	}
	return known, nil
}

func (c *Cli) printTitle(title string, minLength int) {
	hrlen := len(title)
	if hrlen < minLength {
		hrlen = minLength
	}
	hr := term.HR(hrlen)
	c.printf("%s\n%s\n%s\n", term.Green(hr), term.Green(title), term.Green(hr))
}

func maxLen(items []string) int {
	res := 0
	for _, item := range items {
		if len(item) > res {
			res = len(item)
		}
	}
	return res
}

func (c *Cli) doHostlist(name string, argsLine string, args ...string) {
	if len(args) < 1 {
		term.Errorf("Usage: hostlist <host_expr>\n")
		return
	}

	hosts, err := c.store.HostList([]rune(args[0]))
	if err != nil {
		term.Errorf("%s\n", err)
		return
	}

	if len(hosts) == 0 {
		term.Errorf("Empty hostlist\n")
		return
	}

	c.printTitle(fmt.Sprintf(" Hostlist %s    ", args[0]), maxLen(hosts)+2)
	for _, host := range hosts {
		c.printf("%s\n", host)
	}
	term.Successf("Total: %d hosts\n", len(hosts))
}

func (c *Cli) doGroups(name string, argsLine string, args ...string) {
	groups := c.store.Groups()
	if len(groups) == 0 {
		term.Warnf("No groups configured\n")
		return
	}

	paths := make([]string, len(groups))
	for i, g := range groups {
		paths[i] = g.Path
	}
	width := maxLen(paths)
	for _, g := range groups {
		c.printf("%-*s  %s  %d hosts\n", width, g.Path, term.Blue(g.ID), len(g.Hosts))
	}
	term.Successf("Total: %d groups\n", len(groups))
}

func (c *Cli) doResolve(name string, argsLine string, args ...string) {
	if len(args) < 1 {
		term.Errorf("Usage: resolve <host_expr>\n")
		return
	}

	hosts, err := c.hostlist(args[0])
	if err != nil {
		term.Errorf("%s\n", err)
		return
	}

	width := maxLen(hosts)
	invalid := 0
	for _, hostname := range hosts {
		host, _ := c.store.Host(hostname)
		group, err := ventilation.ResolveVentilationGroup(host)
		if err != nil {
			invalid++
			c.printf("%-*s  %s\n", width, hostname, term.Red(err.Error()))
			continue
		}
		c.printf("%-*s  %s\n", width, hostname, group)
	}
	if invalid > 0 {
		term.Errorf("%d hosts can't be ventilated\n", invalid)
	}
}

func (c *Cli) printResult(result ventilation.Result) {
	hosts := result.Hosts()
	c.store.SortHostnames(hosts)
	for _, hostname := range hosts {
		title := term.Colored(hostname, term.CWhite, true)
		if host, found := c.store.Host(hostname); found && host.ServerGroup != "" {
			title += " " + term.Blue("("+host.ServerGroup+")")
		}
		c.printf("%s\n", title)

		placement := result[hostname]
		apps := make([]string, 0, len(placement))
		for app := range placement {
			apps = append(apps, app)
		}
		sort.Strings(apps)
		width := maxLen(apps)
		for _, app := range apps {
			c.printf("    %-*s  %s\n", width, app, strings.Join(placement[app], ", "))
		}
	}
}

func (c *Cli) printReport(report *ventilation.Report) {
	for _, line := range report.Summary() {
		c.printf("%s\n", line)
	}
	if len(report.Unavailable) > 0 || len(report.InvalidHosts) > 0 {
		term.Warnf("Ventilation is incomplete\n")
	}
}

func (c *Cli) doVentilate(name string, argsLine string, args ...string) {
	var result ventilation.Result
	var report *ventilation.Report
	var err error

	if len(args) < 1 {
		result, report, err = c.ventilator.VentilateAll()
	} else {
		var hosts []string
		hosts, err = c.hostlist(args[0])
		if err != nil {
			term.Errorf("%s\n", err)
			return
		}
		result, report, err = c.ventilator.Ventilate(hosts)
	}
	if err != nil {
		term.Errorf("Ventilation failed: %s\n", err)
		return
	}

	c.printResult(result)
	c.printReport(report)
}

func (c *Cli) doCommit(name string, argsLine string, args ...string) {
	result, report, err := c.ventilator.VentilateAll()
	if err != nil {
		term.Errorf("Ventilation failed: %s\n", err)
		return
	}

	var bar *pb.ProgressBar
	var progress func()
	if c.progressBar {
		bar = pb.New(len(result))
		bar.Output = os.Stderr
		bar.Prefix("Committing ")
		bar.Start()
		progress = func() { bar.Increment() }
	}

	err = c.ventilator.Commit(result, progress)
	if bar != nil {
		bar.Finish()
	}
	if err != nil {
		term.Errorf("Error saving ventilation: %s\n", err)
		return
	}
	c.printReport(report)
	term.Successf("Ventilation of %d hosts committed\n", len(result))
}

func (c *Cli) doValidate(name string, argsLine string, args ...string) {
	result, _, err := c.ventilator.VentilateAll()
	if err != nil {
		term.Errorf("Ventilation failed: %s\n", err)
		return
	}

	v := validator.New(c.store, c.state, result)
	ok := v.Validate()
	for _, line := range v.Summary(true, true) {
		c.printf("%s\n", line)
	}
	if ok {
		term.Successf("Validation passed\n")
	} else {
		term.Errorf("Validation failed\n")
	}
}

func (c *Cli) doPlacements(name string, argsLine string, args ...string) {
	if len(args) < 1 {
		term.Errorf("Usage: placements <host_expr>\n")
		return
	}

	hosts, err := c.hostlist(args[0])
	if err != nil {
		term.Errorf("%s\n", err)
		return
	}

	wanted := make(map[string]bool)
	for _, hostname := range hosts {
		wanted[hostname] = true
	}
	count := 0
	for _, rec := range c.state.Records() {
		if !wanted[rec.Host] {
			continue
		}
		server := rec.Server
		if srv, found := c.state.Server(server); found && srv.Disabled {
			server = term.Gray(server + " (disabled)")
		}
		c.printf("%s  %s  %s\n", rec.Host, rec.Application, server)
		count++
	}
	term.Successf("Total: %d placements\n", count)
}

func (c *Cli) doServers(name string, argsLine string, args ...string) {
	configured := c.store.ServerNames()
	c.state.Register(configured)

	hosts := make(map[string]map[string]bool)
	for _, rec := range c.state.Records() {
		if hosts[rec.Server] == nil {
			hosts[rec.Server] = make(map[string]bool)
		}
		hosts[rec.Server][rec.Host] = true
	}

	servers := c.state.Servers()
	names := make([]string, len(servers))
	for i, srv := range servers {
		names[i] = srv.Name
	}
	width := maxLen(names)

	c.printTitle(" Vigilo servers    ", width+2)
	for _, srv := range servers {
		status := term.Green("enabled")
		if srv.Disabled {
			status = term.Gray("disabled")
		}
		line := fmt.Sprintf("%-*s  %s  %d hosts", width, srv.Name, status, len(hosts[srv.Name]))
		if !stringslice.Contains(configured, srv.Name) {
			line += term.Yellow("  (not in any pool)")
		}
		c.printf("%s\n", line)
	}
}

func (c *Cli) serverOperation(op func(string) error, args []string, done string) {
	if len(args) < 1 {
		term.Errorf("Usage: %s <server>\n", strings.TrimSuffix(done, "d"))
		return
	}
	if c.remote == nil {
		term.Errorf("Servers can be disabled and enabled in remote mode only\n")
		return
	}
	for _, server := range args {
		err := op(server)
		if err != nil {
			term.Errorf("%s\n", err)
			continue
		}
		term.Successf("Server %s %s\n", server, done)
	}
}

func (c *Cli) doDisable(name string, argsLine string, args ...string) {
	c.serverOperation(c.remote.DisableServer, args, "disabled")
}

func (c *Cli) doEnable(name string, argsLine string, args ...string) {
	c.serverOperation(c.remote.EnableServer, args, "enabled")
}

func (c *Cli) doAlias(name string, argsLine string, args ...string) {
	aliasName, rest := split([]rune(argsLine))
	if len(aliasName) == 0 {
		term.Errorf("Usage: alias <alias_name> <command> [...args]\n")
		return
	}

	if len(rest) == 0 {
		err := c.removeAlias(aliasName)
		if err != nil {
			term.Errorf("Error removing alias \"%s\": %s\n", string(aliasName), err)
		}
	} else {
		err := c.createAlias(aliasName, rest)
		if err != nil {
			term.Errorf("Error creating alias %s: %s\n", string(aliasName), err)
		}
	}
}

func (c *Cli) doDebug(name string, argsLine string, args ...string) {
	if doOnOff("debug", &c.debug, args) {
		log.SetDebug(c.debug)
	}
}

func (c *Cli) doProgressBar(name string, argsLine string, args ...string) {
	doOnOff("progressbar", &c.progressBar, args)
}

func (c *Cli) doReload(name string, argsLine string, args ...string) {
	err := c.store.BackendReload()
	if err != nil {
		term.Errorf("Error reloading data from backend: %s\n", err)
		return
	}
	err = c.state.Flush()
	if err == nil {
		err = c.state.BackendLoad()
	}
	if err != nil {
		term.Errorf("Error reloading ventilation history: %s\n", err)
		return
	}
	term.Successf("Configuration and history reloaded\n")
}

func (c *Cli) doOutput(name string, argsLine string, args ...string) {
	if len(args) == 0 {
		if c.outputFile == nil {
			term.Warnf("Output is switched off\n")
		} else {
			term.Successf("Output is copied to %s\n", c.outputFileName)
		}
		return
	}

	// special filename to switch off the output
	if argsLine == "_" {
		c.outputFileName = ""
		if c.outputFile != nil {
			c.outputFile.Close()
			c.outputFile = nil
		}
		term.Warnf("Output is switched off\n")
		return
	}

	err := c.setOutput(argsLine)
	if err == nil {
		c.outputFileName = argsLine
		term.Successf("Output is copied to %s\n", c.outputFileName)
	} else {
		term.Errorf("Error setting output file to %s: %s\n", argsLine, err)
	}
}

func (c *Cli) doVersion(name string, argsLine string, args ...string) {
	c.printf("vigiconf %s\n", version())
}
