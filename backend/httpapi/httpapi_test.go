package httpapi

import (
	"fmt"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viert/vigiconf/config"
	"github.com/viert/vigiconf/store"
	"github.com/viert/vigiconf/term"
)

const apiResponse = `{"data": {
  "groups": [
    {"_id": "g1", "name": "Servers"},
    {"_id": "g2", "name": "Linux", "parent_id": "g1"}
  ],
  "hosts": [
    {"_id": "h1", "fqdn": "web01.example.com", "group_ids": ["g2"], "services": ["ping"]},
    {"_id": "h2", "fqdn": "web02.example.com", "group_ids": ["g2"], "ventilation_group": "Servers"}
  ],
  "applications": [{"name": "nagios", "appgroup": "collect"}],
  "pools": [{"appgroup": "collect", "hostgroup": "Servers", "servers": ["sup1", "sup2"]}],
  "backup_pools": [{"appgroup": "collect", "hostgroup": "Servers", "servers": ["sup3"]}]
}}`

func init() {
	term.SetOutput(ioutil.Discard)
}

type apiServer struct {
	*httptest.Server
	requests int
	status   int
	auth     string
}

func newAPIServer(t *testing.T) *apiServer {
	as := &apiServer{status: http.StatusOK}
	as.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		as.requests++
		as.auth = r.Header.Get("Authorization")
		w.WriteHeader(as.status)
		if as.status == http.StatusOK {
			fmt.Fprint(w, apiResponse)
		}
	}))
	t.Cleanup(as.Close)
	return as
}

func newBackend(t *testing.T, u string, ttl time.Duration) *HTTPAPI {
	cfg := &config.Config{
		CacheDir: t.TempDir(),
		CacheTTL: ttl,
		BackendCfg: &config.BackendConfig{
			Type:    config.BTHTTP,
			Options: map[string]string{"url": u, "auth_token": "secret"},
		},
	}
	h, err := New(cfg)
	require.NoError(t, err)
	return h
}

func TestLoadRemote(t *testing.T) {
	as := newAPIServer(t)
	h := newBackend(t, as.URL, time.Hour)

	s, err := store.CreateStore(h)
	require.NoError(t, err)
	assert.Equal(t, 1, as.requests)
	assert.Equal(t, "Bearer secret", as.auth)

	host, found := s.Host("web02.example.com")
	require.True(t, found)
	assert.Equal(t, "Servers", host.Ventilation)
	assert.Equal(t, "/Servers/Linux", host.Groups[0].Path)
	assert.Equal(t, []string{"sup1", "sup2"}, s.NominalServers("collect", "Servers"))

	_, err = os.Stat(h.cacheFilename())
	assert.NoError(t, err)
}

func TestLoadFromCache(t *testing.T) {
	as := newAPIServer(t)
	h := newBackend(t, as.URL, time.Hour)
	require.NoError(t, h.Load())
	require.NoError(t, h.Load())
	assert.Equal(t, 1, as.requests)
	assert.Len(t, h.Hosts(), 2)
}

func TestReloadFallsBackToCache(t *testing.T) {
	as := newAPIServer(t)
	h := newBackend(t, as.URL, time.Hour)
	require.NoError(t, h.Load())

	as.status = http.StatusInternalServerError
	require.NoError(t, h.Reload())
	assert.Equal(t, 2, as.requests)
	assert.Len(t, h.Hosts(), 2)
}

func TestExpiredCache(t *testing.T) {
	as := newAPIServer(t)
	h := newBackend(t, as.URL, 0)
	require.NoError(t, h.Load())
	require.NoError(t, h.Load())
	assert.Equal(t, 2, as.requests)
}

func TestLoadError(t *testing.T) {
	as := newAPIServer(t)
	as.status = http.StatusForbidden
	h := newBackend(t, as.URL, time.Hour)
	assert.Error(t, h.Load())
}

func TestNewOptions(t *testing.T) {
	cfg := &config.Config{BackendCfg: &config.BackendConfig{Options: map[string]string{}}}
	_, err := New(cfg)
	assert.Error(t, err)

	cfg.BackendCfg.Options = map[string]string{"url": "https://inventory.example.com/api", "insecure": "maybe"}
	_, err = New(cfg)
	assert.Error(t, err)

	cfg.BackendCfg.Options = map[string]string{"url": "https://inventory.example.com/api", "insecure": "true", "timeout": "5"}
	h, err := New(cfg)
	require.NoError(t, err)
	assert.True(t, h.insecure)
	assert.Equal(t, 5*time.Second, h.timeout)
	assert.Contains(t, h.cacheFilename(), "inventory_cache_inventory.example.com.json")
}
