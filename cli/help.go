package cli

import (
	"strings"

	"github.com/viert/vigiconf/term"
)

type helpItem struct {
	help    string
	usage   string
	isTopic bool
}

var (
	serverOpHelp = `Disabling a server excludes it from the ventilation: the hosts it supervises are
moved to other servers of the same pool on the next "ventilate" or "commit".
The previous placements are kept in the history so when the server is enabled
back the hosts return to it and the placements made in the meantime are dropped.

Both commands are available in remote mode only. Changes are saved to the history
immediately.`

	helpStrings = map[string]*helpItem{
		"alias": &helpItem{
			usage: "<aliasname> <cmd> [<args>]",
			help: `Creates a local alias. This is handy for longer commands which are often in use.

Example:
    alias vl ventilate                 - this will create a local alias "vl" which actually runs "ventilate"
    alias where placements #1          - this creates a local alias "where" which runs "placements <ARG>"
    alias srv hostlist %Servers,#*     - #* is replaced by the whole arguments line

Every alias created disappears after vigiconf exits. To make an alias persistent put it into rcfile.
See "help rcfiles" for further info.`,
		},

		"commit": &helpItem{
			usage: "",
			help: `Ventilates all the configured hosts and saves the result to the ventilation history.
Hosts which are not in the configuration anymore are removed from the history.

The progress is shown with a progress bar unless it's switched off with "progressbar off".`,
		},

		"config": &helpItem{
			isTopic: true,
			help: `Vigiconf reads its configuration from ~/.vigiconf.conf, the path can be changed
with VIGICONF_CONFIG environment variable. If the file does not exist, it's created
with the default values:

[main]
mode = remote
local_server = localhost
history_file = ~/.vigiconf_history
cache_dir = ~/.vigiconf_cache
cache_ttl = 24
rc_file = ~/.vigiconfrc
log_file =
debug = false
skip_invalid_hosts = false
natural_sort = true
progress_bar = true
exit_confirm = true

[backend]
type = ini
filename = ~/vigiconf.ini

[state]
type = json
path = ~/.vigiconf_state.json

main.mode is the ventilation mode vigiconf starts in, either "remote" or "local".
main.local_server is the server every application is placed on in local mode.
main.history_file is the readline commands history file.
main.cache_dir and main.cache_ttl (in hours) control the http backend inventory cache.
main.rc_file is the rcfile which will be executed on vigiconf startup. See "help rcfiles".
main.log_file enables logging to a file, debug messages are written when main.debug is true.
main.skip_invalid_hosts excludes hosts with invalid configuration from the ventilation
instead of aborting it.
main.natural_sort sorts host lists naturally, i.e. host2 goes before host10.

backend.type is one of "ini", "json", "yaml" and "http". Local backends read
backend.filename, the http backend uses backend.url, backend.auth_token,
backend.insecure and backend.timeout (in seconds).

state.type is either "json" (a single file) or "badger" (a database directory),
state.path is the location of the ventilation history.`,
		},

		"debug": &helpItem{
			usage: "<on/off>",
			help:  `Switches debug logging on and off. Logs go to main.log_file, see "help config".`,
		},

		"disable": &helpItem{
			usage: "<server> [<server> ...]",
			help:  serverOpHelp,
		},

		"enable": &helpItem{
			usage: "<server> [<server> ...]",
			help:  serverOpHelp,
		},

		"exit": &helpItem{
			usage: "",
			help:  "Exits vigiconf saving the ventilation history.",
		},

		"expressions": &helpItem{
			isTopic: true,
			help: `Commands like hostlist or ventilate take a host expression to represent a list of hosts.
An expression is a comma-separated list of tokens:

    host1.example.com            a single host
    host{1,3,5..7}.example.com   a host pattern which expands to a number of hosts
    %Servers                     all hosts of a group and its subgroups, the group is given by its id
    %/Servers/Linux              same, the group is given by its path
    %Servers/^web/               hosts of a group filtered by a regular expression
    /^db\d+/                     all the hosts matching a regular expression

Any token may be prefixed with "-" to exclude the hosts from the list:

    %Servers,-%/Servers/Windows,-host3.example.com`,
		},

		"groups": &helpItem{
			usage: "",
			help:  `Lists the groups by their paths with their ids and the number of hosts directly in them.`,
		},

		"help": &helpItem{
			usage: "[<command>|<topic>]",
			help:  "Shows help on a command or a topic. Topics are: expressions, config, rcfiles.",
		},

		"hostlist": &helpItem{
			usage: "<host_expression>",
			help:  `Resolves a host expression to a list of hosts. See "help expressions".`,
		},

		"mode": &helpItem{
			usage: "[remote|local]",
			help: `Switches the ventilation mode.

In ` + term.Colored("remote", term.CWhite, true) + ` mode applications are distributed among the pools of Vigilo servers
configured for the top-level group of every host.

In ` + term.Colored("local", term.CWhite, true) + ` mode every application is placed on main.local_server.`,
		},

		"output": &helpItem{
			usage: "[filename]",
			help: `Copies the output of commands to a given file. To switch the copying off,
type "output _". When invoked without arguments, prints the current output filename.`,
		},

		"placements": &helpItem{
			usage: "<host_expression>",
			help:  `Shows the placements of hosts saved in the ventilation history.`,
		},

		"progressbar": &helpItem{
			usage: "[<on/off>]",
			help:  `Sets the commit progress bar on/off. If no value is given, prints the current value.`,
		},

		"rcfiles": &helpItem{
			isTopic: true,
			help: `Rcfile is a file with vigiconf commands which are run on startup. It's handy
for creating aliases and setting options. The default rcfile is ~/.vigiconfrc,
the path is configured by main.rc_file (see "help config").

Example:
    alias vs ventilate %Servers
    progressbar off
    mode local`,
		},

		"reload": &helpItem{
			usage: "",
			help:  `Reloads hosts, groups, applications and pools from the backend and re-reads the ventilation history`,
		},

		"resolve": &helpItem{
			usage: "<host_expression>",
			help: `Shows the ventilation group of every host given. The ventilation group is the
explicitly configured one or the top-level group of the host's groups.`,
		},

		"servers": &helpItem{
			usage: "",
			help:  `Lists the known Vigilo servers with their state and the number of hosts they supervise.`,
		},

		"skip_invalid": &helpItem{
			usage: "[<on/off>]",
			help: `When on, hosts which ventilation group can't be resolved are excluded from the ventilation
and reported, otherwise such a host aborts the whole ventilation.`,
		},

		"validate": &helpItem{
			usage: "",
			help: `Ventilates all the hosts and checks the result against the configuration and the history,
then prints the errors, the warnings and the statistics.`,
		},

		"ventilate": &helpItem{
			usage: "[<host_expression>]",
			help: `Computes and prints the placement of applications on Vigilo servers for the given hosts
or for all the hosts if no expression is given. Nothing is saved, use "commit" for that.`,
		},

		"version": &helpItem{
			usage: "",
			help:  "Prints the vigiconf version.",
		},
	}
)

func (c *Cli) doHelp(name string, argsLine string, args ...string) {
	if len(args) < 1 {
		c.generalHelp()
		return
	}

	if hs, found := helpStrings[args[0]]; found {
		if hs.isTopic {
			c.printf("\nTopic: %s\n\n", term.Colored(args[0], term.CWhite, true))
		} else {
			c.printf("\nCommand: %s %s\n\n", term.Colored(args[0], term.CWhite, true), hs.usage)
		}
		tokens := strings.Split(hs.help, "\n")
		for _, token := range tokens {
			c.printf("    %s\n", token)
		}
		c.printf("\n")
	} else {
		term.Errorf("There's no help on topic \"%s\"\n", args[0])
	}
}

func (c *Cli) generalHelp() {
	c.printf(`
List of commands:
    alias                                  creates a local alias command
    commit                                 ventilates all hosts and saves the result
    debug                                  switches debug logging
    disable                                excludes a server from the ventilation
    enable                                 brings a disabled server back
    exit                                   exits vigiconf
    groups                                 lists host groups
    help                                   shows help on various topics
    hostlist                               resolves a host expression to a list of hosts
    mode                                   switches between remote and local ventilation
    output                                 copies the output to a file
    placements                             shows saved placements of hosts
    progressbar                            controls progressbar
    reload                                 reloads the configuration from backend
    resolve                                shows the ventilation group of hosts
    servers                                lists Vigilo servers
    skip_invalid                           controls excluding of invalid hosts
    validate                               checks the ventilation result
    ventilate                              shows the placement of hosts applications
    version                                prints the version

`)
}
