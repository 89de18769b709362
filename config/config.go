package config

import (
	"fmt"
	"io/ioutil"
	"os"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"github.com/viert/properties"
)

const defaultConfigContents = `[main]
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
`

// BackendType is a backend type enum
type BackendType int

// Backend types
const (
	BTIni BackendType = iota
	BTJSON
	BTYAML
	BTHTTP
)

// StateType is a history backend type enum
type StateType int

// History backend types
const (
	STJSON StateType = iota
	STBadger
)

// BackendConfig is a backend configuration struct
type BackendConfig struct {
	Type       BackendType
	TypeString string
	Options    map[string]string
}

// StateConfig is a history backend configuration struct
type StateConfig struct {
	Type       StateType
	TypeString string
	Path       string
}

// Config represents the vigiconf configuration
type Config struct {
	Readline         *readline.Config
	BackendCfg       *BackendConfig
	StateCfg         *StateConfig
	Mode             string
	LocalServer      string
	RCfile           string
	CacheDir         string
	CacheTTL         time.Duration
	Debug            bool
	LogFile          string
	SkipInvalidHosts bool
	NaturalSort      bool
	ProgressBar      bool
	ExitConfirm      bool
}

const (
	defaultHistoryFile      = "~/.vigiconf_history"
	defaultCacheDir         = "~/.vigiconf_cache"
	defaultRCfile           = "~/.vigiconfrc"
	defaultCacheTTL         = 24
	defaultMode             = "remote"
	defaultLocalServer      = "localhost"
	defaultDebug            = false
	defaultLogFile          = ""
	defaultSkipInvalidHosts = false
	defaultNaturalSort      = true
	defaultProgressbar      = true
	defaultExitConfirm      = true
	defaultStatePath        = "~/.vigiconf_state.json"
)

// ExpandPath helper helps to expand ~ as a home directory
// as well as it expands any env variable usage in path
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		path = "$HOME/" + path[2:]
	}
	return os.ExpandEnv(path)
}

// Read reads and parses a configuration file. A missing file
// is created with the default contents
func Read(filename string) (*Config, error) {
	return read(filename, false)
}

func read(filename string, secondPass bool) (*Config, error) {
	var props *properties.Properties
	var err error

	props, err = properties.Load(filename)
	if err != nil {
		if secondPass {
			return nil, err
		}

		if os.IsNotExist(err) {
			err = ioutil.WriteFile(filename, []byte(defaultConfigContents), 0644)
			if err != nil {
				return nil, err
			}
		}
		return read(filename, true)
	}

	cfg := new(Config)
	cfg.Readline = &readline.Config{
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
	}

	hf, err := props.GetString("main.history_file")
	if err != nil {
		hf = defaultHistoryFile
	}
	cfg.Readline.HistoryFile = ExpandPath(hf)

	rcf, err := props.GetString("main.rc_file")
	if err != nil {
		rcf = defaultRCfile
	}
	cfg.RCfile = ExpandPath(rcf)

	lf, err := props.GetString("main.log_file")
	if err != nil {
		lf = defaultLogFile
	}
	cfg.LogFile = ExpandPath(lf)

	cttl, err := props.GetInt("main.cache_ttl")
	if err != nil {
		cttl = defaultCacheTTL
	}
	cfg.CacheTTL = time.Hour * time.Duration(cttl)

	cd, err := props.GetString("main.cache_dir")
	if err != nil {
		cd = defaultCacheDir
	}
	cfg.CacheDir = ExpandPath(cd)

	mode, err := props.GetString("main.mode")
	if err != nil {
		mode = defaultMode
	}
	if mode != "remote" && mode != "local" {
		return nil, fmt.Errorf("Invalid mode \"%s\", expected remote or local", mode)
	}
	cfg.Mode = mode

	ls, err := props.GetString("main.local_server")
	if err != nil || ls == "" {
		ls = defaultLocalServer
	}
	cfg.LocalServer = ls

	dbg, err := props.GetBool("main.debug")
	if err != nil {
		dbg = defaultDebug
	}
	cfg.Debug = dbg

	skip, err := props.GetBool("main.skip_invalid_hosts")
	if err != nil {
		skip = defaultSkipInvalidHosts
	}
	cfg.SkipInvalidHosts = skip

	nsort, err := props.GetBool("main.natural_sort")
	if err != nil {
		nsort = defaultNaturalSort
	}
	cfg.NaturalSort = nsort

	pbar, err := props.GetBool("main.progress_bar")
	if err != nil {
		pbar = defaultProgressbar
	}
	cfg.ProgressBar = pbar

	exitcnfrm, err := props.GetBool("main.exit_confirm")
	if err != nil {
		exitcnfrm = defaultExitConfirm
	}
	cfg.ExitConfirm = exitcnfrm

	cfg.BackendCfg, err = readBackend(props)
	if err != nil {
		return nil, err
	}

	cfg.StateCfg, err = readState(props)
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

func readBackend(props *properties.Properties) (*BackendConfig, error) {
	bc := &BackendConfig{Type: BTIni, Options: make(map[string]string)}

	bkeys, err := props.Subkeys("backend")
	if err != nil {
		return nil, fmt.Errorf("Backend configuration error: %s", err)
	}

	typeFound := false
	for _, key := range bkeys {
		value, _ := props.GetString("backend." + key)
		if key == "type" {
			bc.TypeString = value
			switch value {
			case "ini":
				bc.Type = BTIni
			case "json":
				bc.Type = BTJSON
			case "yaml":
				bc.Type = BTYAML
			case "http":
				bc.Type = BTHTTP
			default:
				return nil, fmt.Errorf("Invalid backend type \"%s\"", value)
			}
			typeFound = true
		} else {
			bc.Options[key] = value
		}
	}

	if !typeFound {
		return nil, fmt.Errorf("Error configuring backend: backend type is not defined")
	}
	return bc, nil
}

func readState(props *properties.Properties) (*StateConfig, error) {
	sc := &StateConfig{Type: STJSON, TypeString: "json"}

	st, err := props.GetString("state.type")
	if err == nil {
		sc.TypeString = st
		switch st {
		case "json":
			sc.Type = STJSON
		case "badger":
			sc.Type = STBadger
		default:
			return nil, fmt.Errorf("Invalid state type \"%s\"", st)
		}
	}

	path, err := props.GetString("state.path")
	if err != nil || path == "" {
		path = defaultStatePath
	}
	sc.Path = ExpandPath(path)
	return sc, nil
}
