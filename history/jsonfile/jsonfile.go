package jsonfile

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/viert/vigiconf/history"
)

// Data is struct for JSON history data
type Data struct {
	Servers []*history.Server `json:"servers"`
	Records []*history.Record `json:"ventilation"`
}

// JSONFile is a history backend keeping everything in one JSON file
type JSONFile struct {
	filename string
	Data     Data
}

// New creates a new JSON file history backend
func New(filename string) (*JSONFile, error) {
	if filename == "" {
		return nil, fmt.Errorf("json history backend path option is missing")
	}
	return &JSONFile{filename: filename}, nil
}

// Servers exported backend method
func (jf *JSONFile) Servers() []*history.Server {
	return jf.Data.Servers
}

// Records exported backend method
func (jf *JSONFile) Records() []*history.Record {
	return jf.Data.Records
}

// Load reads the file. A missing file is an empty history
func (jf *JSONFile) Load() error {
	jf.Data = Data{}
	data, err := ioutil.ReadFile(jf.filename)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return json.Unmarshal(data, &jf.Data)
}

// Save writes the data into a temporary file which then replaces
// the history file
func (jf *JSONFile) Save(servers []*history.Server, records []*history.Record) error {
	jf.Data = Data{Servers: servers, Records: records}
	data, err := json.MarshalIndent(jf.Data, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(jf.filename)
	err = os.MkdirAll(dir, 0755)
	if err != nil {
		return fmt.Errorf("Error creating history dir: %s", err)
	}

	f, err := ioutil.TempFile(dir, ".history.")
	if err != nil {
		return err
	}
	_, err = f.Write(data)
	cerr := f.Close()
	if err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(f.Name())
		return err
	}
	return os.Rename(f.Name(), jf.filename)
}

// Close does nothing as the file is not kept open
func (jf *JSONFile) Close() error {
	return nil
}
