package httpapi

import (
	"time"

	"github.com/viert/vigiconf/store"
)

// HTTPAPI is a backend fetching the configuration snapshot
// from an inventory HTTP API
type HTTPAPI struct {
	url         string
	authToken   string
	insecure    bool
	timeout     time.Duration
	cacheTTL    time.Duration
	cacheDir    string
	hosts       []*store.Host
	groups      []*store.Group
	apps        []*store.Application
	pools       []*store.Pool
	backupPools []*store.Pool
}

type group struct {
	ID          string `json:"_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	ParentID    string `json:"parent_id"`
}

type host struct {
	ID          string   `json:"_id"`
	FQDN        string   `json:"fqdn"`
	Address     string   `json:"address"`
	GroupIDs    []string `json:"group_ids"`
	Ventilation string   `json:"ventilation_group"`
	Services    []string `json:"services"`
}

type application struct {
	Name     string `json:"name"`
	AppGroup string `json:"appgroup"`
}

type pool struct {
	AppGroup  string   `json:"appgroup"`
	HostGroup string   `json:"hostgroup"`
	Servers   []string `json:"servers"`
}

type cache struct {
	Groups       []*group       `json:"groups"`
	Hosts        []*host        `json:"hosts"`
	Applications []*application `json:"applications"`
	Pools        []*pool        `json:"pools"`
	BackupPools  []*pool        `json:"backup_pools"`
}

type api struct {
	Data *cache `json:"data"`
}
