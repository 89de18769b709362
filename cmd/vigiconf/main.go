package main

import (
	"os"
	"path"
	"strings"

	"github.com/viert/vigiconf/backend/httpapi"
	"github.com/viert/vigiconf/backend/localini"
	"github.com/viert/vigiconf/backend/localjson"
	"github.com/viert/vigiconf/backend/localyaml"
	"github.com/viert/vigiconf/cli"
	"github.com/viert/vigiconf/config"
	"github.com/viert/vigiconf/history"
	"github.com/viert/vigiconf/history/badgerdb"
	"github.com/viert/vigiconf/history/jsonfile"
	"github.com/viert/vigiconf/store"
	"github.com/viert/vigiconf/term"
)

func createBackend(cfg *config.Config) (store.Backend, error) {
	switch cfg.BackendCfg.Type {
	case config.BTIni:
		return localini.New(cfg)
	case config.BTJSON:
		return localjson.New(cfg)
	case config.BTYAML:
		return localyaml.New(cfg)
	default:
		return httpapi.New(cfg)
	}
}

func createHistoryBackend(cfg *config.Config) (history.Backend, error) {
	switch cfg.StateCfg.Type {
	case config.STBadger:
		return badgerdb.New(cfg.StateCfg.Path)
	default:
		return jsonfile.New(cfg.StateCfg.Path)
	}
}

func main() {
	var tool *cli.Cli
	var err error

	cfgFilename := os.Getenv("VIGICONF_CONFIG")
	if cfgFilename == "" {
		cfgFilename = path.Join(os.Getenv("HOME"), ".vigiconf.conf")
	}
	vcfg, err := config.Read(cfgFilename)
	if err != nil {
		term.Errorf("Error reading config: %s\n", err)
		os.Exit(1)
	}

	be, err := createBackend(vcfg)
	if err != nil {
		term.Errorf("Error creating %s backend: %s\n", vcfg.BackendCfg.TypeString, err)
		os.Exit(1)
	}

	hb, err := createHistoryBackend(vcfg)
	if err != nil {
		term.Errorf("Error creating %s history backend: %s\n", vcfg.StateCfg.TypeString, err)
		os.Exit(1)
	}

	tool, err = cli.New(vcfg, be, hb)
	if err != nil {
		term.Errorf("%s\n", err)
		hb.Close()
		os.Exit(1)
	}

	defer tool.Finalize()
	if len(os.Args) < 2 {
		tool.CmdLoop()
	} else {
		cmd := strings.Join(os.Args[1:], " ")
		tool.OneCmd(cmd)
	}
}
