package store

// Backend represents a store backend interface
type Backend interface {
	Load() error
	Reload() error

	Groups() []*Group
	Hosts() []*Host
	Applications() []*Application
	Pools() []*Pool
	BackupPools() []*Pool
}
