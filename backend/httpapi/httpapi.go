package httpapi

import (
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"net/url"
	"os"
	"path"
	"strconv"
	"time"

	"github.com/viert/vigiconf/config"
	"github.com/viert/vigiconf/log"
	"github.com/viert/vigiconf/store"
	"github.com/viert/vigiconf/term"
)

const defaultTimeout = 30 * time.Second

// New creates a new instance of HTTP API backend
func New(cfg *config.Config) (*HTTPAPI, error) {
	h := &HTTPAPI{
		cacheTTL: cfg.CacheTTL,
		cacheDir: cfg.CacheDir,
		timeout:  defaultTimeout,
	}
	h.reset()

	options := cfg.BackendCfg.Options
	u, found := options["url"]
	if !found || u == "" {
		return nil, fmt.Errorf("HTTP API backend URL is not configured")
	}
	if _, err := url.Parse(u); err != nil {
		return nil, fmt.Errorf("Invalid HTTP API backend URL %s: %s", u, err)
	}
	h.url = u
	h.authToken = options["auth_token"]

	if insecure, found := options["insecure"]; found && insecure != "" {
		value, err := strconv.ParseBool(insecure)
		if err != nil {
			return nil, fmt.Errorf("Invalid insecure option value %s", insecure)
		}
		h.insecure = value
	}

	if timeout, found := options["timeout"]; found && timeout != "" {
		secs, err := strconv.Atoi(timeout)
		if err != nil || secs <= 0 {
			return nil, fmt.Errorf("Invalid timeout option value %s", timeout)
		}
		h.timeout = time.Duration(secs) * time.Second
	}
	return h, nil
}

func (h *HTTPAPI) reset() {
	h.hosts = make([]*store.Host, 0)
	h.groups = make([]*store.Group, 0)
	h.apps = make([]*store.Application, 0)
	h.pools = make([]*store.Pool, 0)
	h.backupPools = make([]*store.Pool, 0)
}

// Hosts exported backend method
func (h *HTTPAPI) Hosts() []*store.Host {
	return h.hosts
}

// Groups exported backend method
func (h *HTTPAPI) Groups() []*store.Group {
	return h.groups
}

// Applications exported backend method
func (h *HTTPAPI) Applications() []*store.Application {
	return h.apps
}

// Pools exported backend method
func (h *HTTPAPI) Pools() []*store.Pool {
	return h.pools
}

// BackupPools exported backend method
func (h *HTTPAPI) BackupPools() []*store.Pool {
	return h.backupPools
}

// Reload forces reloading data from HTTP(S)
func (h *HTTPAPI) Reload() error {
	err := h.loadRemote()
	if err != nil {
		log.Errorf("Error loading inventory from %s: %s", h.url, err)
		// trying to use cache
		if cerr := h.loadLocal(); cerr != nil {
			return err
		}
	}
	return nil
}

// Load tries to load data from cache unless it's expired
// In case of cache expiration or absence it triggers Reload()
func (h *HTTPAPI) Load() error {
	if h.cacheExpired() {
		return h.Reload()
	}
	// trying to use cache
	err := h.loadLocal()
	if err != nil {
		// if it failed, trying to get data from remote
		return h.loadRemote()
	}
	return nil
}

func (h *HTTPAPI) loadLocal() error {
	data, err := ioutil.ReadFile(h.cacheFilename())
	if err != nil {
		return err
	}
	lc := new(cache)
	err = json.Unmarshal(data, lc)
	if err != nil {
		return err
	}
	h.extractCache(lc)
	term.Warnf("Inventory loaded from cache\n")
	return nil
}

func (h *HTTPAPI) cacheExpired() bool {
	st, err := os.Stat(h.cacheFilename())
	if err != nil {
		// no cache in general means that it's been expired
		return true
	}
	return st.ModTime().Add(h.cacheTTL).Before(time.Now())
}

func (h *HTTPAPI) cacheFilename() string {
	name := "default"
	if u, err := url.Parse(h.url); err == nil && u.Host != "" {
		name = u.Host
	}
	return path.Join(h.cacheDir, fmt.Sprintf("inventory_cache_%s.json", name))
}

func (h *HTTPAPI) saveCache(lc *cache) error {
	err := os.MkdirAll(h.cacheDir, 0755)
	if err != nil {
		return fmt.Errorf("Error creating cache dir: %s", err)
	}
	data, err := json.Marshal(lc)
	if err != nil {
		return err
	}
	return ioutil.WriteFile(h.cacheFilename(), data, 0644)
}

func (h *HTTPAPI) extractCache(lc *cache) {
	h.reset()

	for _, g := range lc.Groups {
		h.groups = append(h.groups, &store.Group{
			ID:          g.ID,
			Name:        g.Name,
			Description: g.Description,
			ParentID:    g.ParentID,
		})
	}

	for _, hst := range lc.Hosts {
		h.hosts = append(h.hosts, &store.Host{
			ID:          hst.FQDN,
			Address:     hst.Address,
			GroupIDs:    hst.GroupIDs,
			Ventilation: hst.Ventilation,
			Services:    hst.Services,
		})
	}

	for _, app := range lc.Applications {
		h.apps = append(h.apps, &store.Application{ID: app.Name, GroupID: app.AppGroup})
	}

	for _, p := range lc.Pools {
		h.pools = append(h.pools, &store.Pool{AppGroup: p.AppGroup, HostGroup: p.HostGroup, Servers: p.Servers})
	}
	for _, p := range lc.BackupPools {
		h.backupPools = append(h.backupPools, &store.Pool{AppGroup: p.AppGroup, HostGroup: p.HostGroup, Servers: p.Servers})
	}
}

func (h *HTTPAPI) client() *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if h.insecure {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return &http.Client{Transport: transport, Timeout: h.timeout}
}

func (h *HTTPAPI) httpGet() ([]byte, error) {
	req, err := http.NewRequest("GET", h.url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if h.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+h.authToken)
	}
	resp, err := h.client().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Status code %d while fetching %s", resp.StatusCode, h.url)
	}

	return ioutil.ReadAll(resp.Body)
}

func (h *HTTPAPI) loadRemote() error {
	term.Warnf("Loading inventory data...\n")
	data, err := h.httpGet()
	if err != nil {
		return err
	}

	apiResponse := new(api)
	err = json.Unmarshal(data, apiResponse)
	if err != nil {
		return err
	}
	if apiResponse.Data == nil {
		return fmt.Errorf("Empty inventory response from %s", h.url)
	}

	lc := apiResponse.Data
	err = h.saveCache(lc)
	if err != nil {
		term.Errorf("Error saving cache: %s\n", err)
	} else {
		log.Debugf("Inventory cache saved to %s", h.cacheFilename())
	}
	h.extractCache(lc)
	return nil
}
