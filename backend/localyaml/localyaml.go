package localyaml

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/viert/vigiconf/config"
	"github.com/viert/vigiconf/store"
	"gopkg.in/yaml.v3"
)

// Data is struct for YAML data
type Data struct {
	Groups       []*store.Group       `yaml:"groups"`
	Hosts        []*store.Host        `yaml:"hosts"`
	Applications []*store.Application `yaml:"applications"`
	Pools        []*store.Pool        `yaml:"pools"`
	BackupPools  []*store.Pool        `yaml:"backup_pools"`
}

// LocalYAML is a backend reading the configuration from a YAML file
type LocalYAML struct {
	filename string
	Data     Data
}

// New creates a new LocalYAML backend
func New(cfg *config.Config) (*LocalYAML, error) {
	filename, found := cfg.BackendCfg.Options["filename"]
	if !found || filename == "" {
		return nil, fmt.Errorf("localyaml backend filename option is missing")
	}
	return &LocalYAML{filename: config.ExpandPath(filename)}, nil
}

// Hosts exported backend method
func (ly *LocalYAML) Hosts() []*store.Host {
	return ly.Data.Hosts
}

// Groups exported backend method
func (ly *LocalYAML) Groups() []*store.Group {
	return ly.Data.Groups
}

// Applications exported backend method
func (ly *LocalYAML) Applications() []*store.Application {
	return ly.Data.Applications
}

// Pools exported backend method
func (ly *LocalYAML) Pools() []*store.Pool {
	return ly.Data.Pools
}

// BackupPools exported backend method
func (ly *LocalYAML) BackupPools() []*store.Pool {
	return ly.Data.BackupPools
}

// Load reads the YAML file
func (ly *LocalYAML) Load() error {
	f, err := os.Open(ly.filename)
	if err != nil {
		return err
	}
	defer f.Close()

	return ly.read(f)
}

// Reload reads the YAML file again
func (ly *LocalYAML) Reload() error {
	return ly.Load()
}

func (ly *LocalYAML) read(r io.Reader) error {
	ly.Data = Data{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	err := dec.Decode(&ly.Data)
	// an empty document is an empty configuration
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("Error parsing %s: %s", ly.filename, err)
	}
	return nil
}
