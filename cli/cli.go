package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/chzyer/readline"
	"github.com/viert/vigiconf/config"
	"github.com/viert/vigiconf/history"
	"github.com/viert/vigiconf/log"
	"github.com/viert/vigiconf/store"
	"github.com/viert/vigiconf/term"
	"github.com/viert/vigiconf/ventilation"
)

type cmdHandler func(string, string, ...string)

// Cli is the command line interface object
type Cli struct {
	rl      *readline.Instance
	stopped bool

	handlers   map[string]cmdHandler
	aliases    map[string]*alias
	completer  *completer
	store      *store.Store
	state      *history.Store
	ventilator ventilation.Ventilator
	remote     *ventilation.Remote

	mode        string
	localServer string
	opts        ventilation.Options

	exitConfirm bool
	progressBar bool
	debug       bool

	stdout              io.Writer
	outputFile          *os.File
	outputFileName      string
	aliasRecursionCount int
}

const (
	modeRemote = "remote"
	modeLocal  = "local"

	maxAliasRecursion = 10
)

var (
	whitespace = regexp.MustCompile(`\s+`)
)

// New creates a new instance of CLI
func New(cfg *config.Config, backend store.Backend, historyBackend history.Backend) (*Cli, error) {
	err := log.Initialize(cfg.LogFile, cfg.Debug)
	if err != nil {
		term.Errorf("Error initializing logger: %s\n", err)
	}

	cli, err := create(cfg, backend, historyBackend, os.Stdout)
	if err != nil {
		return nil, err
	}

	cfg.Readline.AutoComplete = cli.completer
	cli.rl, err = readline.NewEx(cfg.Readline)
	if err != nil {
		return nil, err
	}

	cli.runRC(cfg.RCfile)
	return cli, nil
}

func create(cfg *config.Config, backend store.Backend, historyBackend history.Backend, stdout io.Writer) (*Cli, error) {
	var err error

	cli := new(Cli)
	cli.stdout = stdout
	cli.store, err = store.CreateStore(backend)
	if err != nil {
		term.Errorf("Error initializing backend: %s\n", err)
		return nil, err
	}
	cli.store.SetNaturalSort(cfg.NaturalSort)

	cli.state, err = history.CreateStore(historyBackend)
	if err != nil {
		term.Errorf("Error loading ventilation history: %s\n", err)
		return nil, err
	}

	cli.stopped = false
	cli.aliases = make(map[string]*alias)
	cli.setupCmdHandlers()

	cli.exitConfirm = cfg.ExitConfirm
	cli.progressBar = cfg.ProgressBar
	cli.debug = cfg.Debug
	cli.localServer = cfg.LocalServer
	cli.opts = ventilation.Options{SkipInvalidHosts: cfg.SkipInvalidHosts}

	// output
	cli.outputFileName = ""
	cli.outputFile = nil

	err = cli.setMode(cfg.Mode)
	if err != nil {
		return nil, err
	}
	return cli, nil
}

func (c *Cli) setMode(mode string) error {
	switch mode {
	case modeRemote:
		c.remote = ventilation.NewRemote(c.store, c.state, c.opts)
		c.ventilator = c.remote
	case modeLocal:
		c.remote = nil
		c.ventilator = ventilation.NewLocal(c.store, c.state, c.localServer)
	default:
		return fmt.Errorf("Unknown mode: %s", mode)
	}
	c.mode = mode
	log.Debugf("Ventilation mode set to %s", mode)
	return nil
}

func (c *Cli) setPrompt() {
	pr := fmt.Sprintf("[%s]", strings.Title(c.mode))
	switch c.mode {
	case modeRemote:
		pr = term.Yellow(pr)
	case modeLocal:
		pr = term.Cyan(pr)
	}
	if c.opts.SkipInvalidHosts {
		pr += term.Colored("(skip)", term.CRed, false)
	}
	pr += " " + term.Colored("vigiconf", term.CLightBlue, true)
	pr += "> "
	c.rl.SetPrompt(pr)
}

// Finalize closes resources at vigiconf's exit. Must be called explicitly
func (c *Cli) Finalize() {
	if c.outputFile != nil {
		c.outputFile.Close()
		c.outputFile = nil
	}
	if err := c.state.Close(); err != nil {
		term.Errorf("Error saving ventilation history: %s\n", err)
	}
	if c.rl != nil {
		c.rl.Close()
	}
}

// OneCmd is the main method which literally runs one command
// according to line given in arguments
func (c *Cli) OneCmd(line string) {
	c.aliasRecursionCount = maxAliasRecursion
	c.oneCmd(line)
}

func (c *Cli) oneCmd(line string) {
	var args []string
	var argsLine string

	line = strings.Trim(line, " \n\t")
	if strings.HasPrefix(line, "#") {
		return
	}

	cmdRunes, rest := split([]rune(line))
	cmd := string(cmdRunes)

	if cmd == "" {
		return
	}

	if rest == nil {
		args = make([]string, 0)
		argsLine = ""
	} else {
		argsLine = string(rest)
		args = whitespace.Split(argsLine, -1)
	}

	if handler, ok := c.handlers[cmd]; ok {
		log.Debugf("Running command %s %s", cmd, argsLine)
		handler(cmd, argsLine, args...)
	} else {
		term.Errorf("Unknown command: %s\n", cmd)
	}
}

// CmdLoop reads commands and runs OneCmd
func (c *Cli) CmdLoop() {
	for !c.stopped {
		c.setPrompt()

		line, err := c.rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		} else if err == io.EOF {
			if !c.exitConfirm || c.confirm("Are you sure to exit?") {
				c.stopped = true
			}
			continue
		}
		c.OneCmd(line)
	}
}

func (c *Cli) confirm(msg string) bool {
	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Printf("%s [Y/n] ", msg)
		response, err := reader.ReadString('\n')
		if err == nil {
			response = strings.TrimSpace(strings.ToLower(response))
			switch response {
			case "":
				fallthrough
			case "y":
				return true
			case "n":
				return false
			}
		}
		fmt.Println()
	}
}

// printf writes command results to stdout and copies them
// to the output file if it's set
func (c *Cli) printf(format string, args ...interface{}) {
	fmt.Fprintf(c.stdout, format, args...)
	if c.outputFile != nil {
		fmt.Fprintf(c.outputFile, format, args...)
	}
}

func (c *Cli) setOutput(filename string) error {
	f, err := os.OpenFile(filename, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err == nil {
		if c.outputFile != nil {
			c.outputFile.Close()
		}
		c.outputFile = f
	}
	return err
}

func doOnOff(propName string, propRef *bool, args []string) bool {
	if len(args) < 1 {
		value := "off"
		if *propRef {
			value = "on"
		}
		term.Warnf("%s is %s\n", propName, value)
		return false
	}
	prev := *propRef
	switch args[0] {
	case "on":
		*propRef = true
	case "off":
		*propRef = false
	default:
		term.Errorf("Invalid %s value. Please use either \"on\" or \"off\"\n", propName)
		return false
	}
	return prev != *propRef
}

func (c *Cli) runRC(rcfile string) {
	f, err := os.Open(rcfile)
	if err != nil {
		if !os.IsNotExist(err) {
			term.Errorf("Error loading rcfile: %s\n", err)
		}
		return
	}
	defer f.Close()

	term.Successf("Running rcfile %s...\n", rcfile)
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		cmd := sc.Text()
		term.Successf("%s\n", cmd)
		c.OneCmd(cmd)
	}
}
