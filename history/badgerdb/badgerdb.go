// Package badgerdb keeps the ventilation history in an embedded
// badger database
package badgerdb

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dgraph-io/badger/v4"
	"github.com/viert/vigiconf/history"
	"github.com/viert/vigiconf/log"
)

var (
	serverPrefix = []byte("server\x00")
	recordPrefix = []byte("ventilation\x00")
)

// BadgerDB is a history backend based on badger key-value store
type BadgerDB struct {
	db      *badger.DB
	servers []*history.Server
	records []*history.Record
}

type badgerLogger struct{}

func (badgerLogger) Errorf(format string, args ...interface{}) {
	log.Errorf(format, args...)
}

func (badgerLogger) Warningf(format string, args ...interface{}) {
	log.Warningf(format, args...)
}

// badger is rather verbose on the info level
func (badgerLogger) Infof(format string, args ...interface{}) {
	log.Debugf(format, args...)
}

func (badgerLogger) Debugf(format string, args ...interface{}) {
	log.Debugf(format, args...)
}

// New opens (creating if needed) a badger database in a given directory
func New(path string) (*BadgerDB, error) {
	if path == "" {
		return nil, fmt.Errorf("badger history backend path option is missing")
	}
	err := os.MkdirAll(path, 0750)
	if err != nil {
		return nil, fmt.Errorf("Error creating history dir: %s", err)
	}
	return open(badger.DefaultOptions(path).WithSyncWrites(true))
}

// NewInMemory creates a non-persistent badger database
func NewInMemory() (*BadgerDB, error) {
	return open(badger.DefaultOptions("").WithInMemory(true))
}

func open(opts badger.Options) (*BadgerDB, error) {
	opts = opts.WithNumVersionsToKeep(1).WithLogger(badgerLogger{})
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("Error opening history database: %s", err)
	}
	return &BadgerDB{db: db}, nil
}

// Servers exported backend method
func (b *BadgerDB) Servers() []*history.Server {
	return b.servers
}

// Records exported backend method
func (b *BadgerDB) Records() []*history.Record {
	return b.records
}

func recordKey(rec *history.Record) []byte {
	key := make([]byte, 0, len(recordPrefix)+len(rec.Host)+len(rec.Application)+len(rec.Server)+2)
	key = append(key, recordPrefix...)
	key = append(key, rec.Host...)
	key = append(key, 0)
	key = append(key, rec.Application...)
	key = append(key, 0)
	key = append(key, rec.Server...)
	return key
}

// Load reads servers and records from the database
func (b *BadgerDB) Load() error {
	b.servers = make([]*history.Server, 0)
	b.records = make([]*history.Record, 0)

	return b.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(serverPrefix); it.ValidForPrefix(serverPrefix); it.Next() {
			value, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			srv := new(history.Server)
			err = json.Unmarshal(value, srv)
			if err != nil {
				return fmt.Errorf("malformed server entry %q: %s", it.Item().Key(), err)
			}
			b.servers = append(b.servers, srv)
		}

		for it.Seek(recordPrefix); it.ValidForPrefix(recordPrefix); it.Next() {
			value, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			rec := new(history.Record)
			err = json.Unmarshal(value, rec)
			if err != nil {
				return fmt.Errorf("malformed ventilation entry %q: %s", it.Item().Key(), err)
			}
			b.records = append(b.records, rec)
		}
		return nil
	})
}

func (b *BadgerDB) keys(prefixes ...[]byte) ([][]byte, error) {
	keys := make([][]byte, 0)
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for _, prefix := range prefixes {
			for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
				keys = append(keys, it.Item().KeyCopy(nil))
			}
		}
		return nil
	})
	return keys, err
}

// Save replaces the database content with the given servers and records
func (b *BadgerDB) Save(servers []*history.Server, records []*history.Record) error {
	existing, err := b.keys(serverPrefix, recordPrefix)
	if err != nil {
		return err
	}

	wb := b.db.NewWriteBatch()
	defer wb.Cancel()

	written := make(map[string]bool)
	for _, srv := range servers {
		value, err := json.Marshal(srv)
		if err != nil {
			return err
		}
		key := append(append([]byte{}, serverPrefix...), srv.Name...)
		if err = wb.Set(key, value); err != nil {
			return err
		}
		written[string(key)] = true
	}
	for _, rec := range records {
		value, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		key := recordKey(rec)
		if err = wb.Set(key, value); err != nil {
			return err
		}
		written[string(key)] = true
	}
	for _, key := range existing {
		if !written[string(key)] {
			if err = wb.Delete(key); err != nil {
				return err
			}
		}
	}

	err = wb.Flush()
	if err == nil {
		b.servers = servers
		b.records = records
	}
	return err
}

// Close closes the database
func (b *BadgerDB) Close() error {
	return b.db.Close()
}
