package localjson

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/viert/vigiconf/config"
	"github.com/viert/vigiconf/store"
)

// Data is struct for JSON data
type Data struct {
	Groups       []*store.Group       `json:"groups"`
	Hosts        []*store.Host        `json:"hosts"`
	Applications []*store.Application `json:"applications"`
	Pools        []*store.Pool        `json:"pools"`
	BackupPools  []*store.Pool        `json:"backup_pools"`
}

// LocalJSON is struct for JSON config file
type LocalJSON struct {
	filename string
	Data     Data
}

// New used for Init JSON backend
func New(cfg *config.Config) (*LocalJSON, error) {
	filename, found := cfg.BackendCfg.Options["filename"]
	if !found || filename == "" {
		return nil, fmt.Errorf("localjson backend filename option is missing")
	}
	return &LocalJSON{filename: config.ExpandPath(filename)}, nil
}

// Hosts exported backend method
func (lj *LocalJSON) Hosts() []*store.Host {
	return lj.Data.Hosts
}

// Groups exported backend method
func (lj *LocalJSON) Groups() []*store.Group {
	return lj.Data.Groups
}

// Applications exported backend method
func (lj *LocalJSON) Applications() []*store.Application {
	return lj.Data.Applications
}

// Pools exported backend method
func (lj *LocalJSON) Pools() []*store.Pool {
	return lj.Data.Pools
}

// BackupPools exported backend method
func (lj *LocalJSON) BackupPools() []*store.Pool {
	return lj.Data.BackupPools
}

// Load used for load JSON file from disk
func (lj *LocalJSON) Load() error {
	f, err := os.Open(lj.filename)
	if err != nil {
		return err
	}
	defer f.Close()

	return lj.read(f)
}

func (lj *LocalJSON) read(r io.Reader) error {
	lj.Data = Data{}
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	err := dec.Decode(&lj.Data)
	if err != nil {
		return fmt.Errorf("Error parsing %s: %s", lj.filename, err)
	}
	return nil
}

// Reload implements Load call for reload file from disk
func (lj *LocalJSON) Reload() error {
	return lj.Load()
}
