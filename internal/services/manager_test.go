package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/devcamper/catalog/internal/config"
	"github.com/devcamper/catalog/internal/core/pubsub"
	pubsubconfig "github.com/devcamper/catalog/internal/core/pubsub/config"
	storageconfig "github.com/devcamper/catalog/internal/storage/config"
	"github.com/devcamper/catalog/internal/storage/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.HTTPPort = 0
	cfg.Server.RateLimit.Enabled = false
	cfg.Identity.JWTSecret = "0123456789abcdef0123"
	cfg.Identity.BcryptCost = 4
	return cfg
}

func startManager(t *testing.T, opts Options) *Manager {
	t.Helper()
	opts.SkipLogging = true
	m := NewManager(testConfig(), opts)
	require.NoError(t, m.Init(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	m.Start(ctx)
	t.Cleanup(func() {
		cancel()
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		m.Shutdown(shutdownCtx)
	})
	if opts.RunAPI {
		require.Eventually(t, func() bool { return m.Addr() != "" }, 2*time.Second, 10*time.Millisecond)
	}
	return m
}

func call(t *testing.T, m *Manager, method, path, token string, body interface{}) (int, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, "http://"+m.Addr()+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]interface{}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

// seedBootcampWithCourse registers a publisher, creates a bootcamp and one
// course, and returns the bootcamp id.
func seedBootcampWithCourse(t *testing.T, m *Manager, tuition float64) string {
	t.Helper()
	status, body := call(t, m, http.MethodPost, "/api/v1/auth/register", "", map[string]interface{}{
		"name": "Pub", "email": "pub@example.com", "password": "secret1", "role": "publisher",
	})
	require.Equal(t, http.StatusOK, status, body)
	token := body["token"].(string)

	status, body = call(t, m, http.MethodPost, "/api/v1/bootcamps", token, map[string]interface{}{
		"name": "Devworks", "description": "Full stack web development", "careers": []string{"Web Development"},
	})
	require.Equal(t, http.StatusCreated, status, body)
	id := body["data"].(map[string]interface{})["id"].(string)

	status, body = call(t, m, http.MethodPost, "/api/v1/bootcamps/"+id+"/courses", token, map[string]interface{}{
		"title": "Front End", "description": "HTML and CSS", "weeks": 8, "tuition": tuition, "minimumSkill": "beginner",
	})
	require.Equal(t, http.StatusCreated, status, body)
	return id
}

func averageCost(t *testing.T, m *Manager, id string) interface{} {
	status, body := call(t, m, http.MethodGet, "/api/v1/bootcamps/"+id, "", nil)
	require.Equal(t, http.StatusOK, status)
	return body["data"].(map[string]interface{})["averageCost"]
}

func TestManager_QueuedThroughWorker(t *testing.T) {
	m := startManager(t, Options{RunAPI: true, RunWorker: true})
	require.NotNil(t, m.publisher)
	require.NotNil(t, m.worker)

	id := seedBootcampWithCourse(t, m, 1234)

	assert.Eventually(t, func() bool {
		return averageCost(t, m, id) == 1240.0
	}, 5*time.Second, 20*time.Millisecond)

	status, _ := call(t, m, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestManager_InlineWithoutWorker(t *testing.T) {
	m := startManager(t, Options{RunAPI: true})
	assert.Nil(t, m.provider)
	assert.Nil(t, m.publisher)

	id := seedBootcampWithCourse(t, m, 1000)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.True(t, m.Synchronizer().Wait(ctx))
	assert.Equal(t, 1000.0, averageCost(t, m, id))
}

func TestManager_WorkerOnly(t *testing.T) {
	m := startManager(t, Options{RunWorker: true})
	assert.Nil(t, m.server)
	assert.Nil(t, m.publisher)
	assert.NotNil(t, m.worker)
	assert.Empty(t, m.Addr())
}

func TestManager_InitStorageError(t *testing.T) {
	orig := newDocumentStore
	t.Cleanup(func() { newDocumentStore = orig })
	newDocumentStore = func(context.Context, storageconfig.Config, []types.Index) (types.DocumentStore, error) {
		return nil, errors.New("mongo unreachable")
	}

	m := NewManager(testConfig(), Options{RunAPI: true, SkipLogging: true})
	err := m.Init(context.Background())
	assert.ErrorContains(t, err, "failed to initialize storage")

	// Shutdown after a failed Init releases what exists and does not panic.
	m.Shutdown(context.Background())
}

func TestManager_InitProviderError(t *testing.T) {
	orig := newProvider
	t.Cleanup(func() { newProvider = orig })
	newProvider = func(context.Context, pubsubconfig.Config) (pubsub.Provider, error) {
		return nil, errors.New("nats unreachable")
	}

	cfg := testConfig()
	cfg.PubSub.Provider = pubsubconfig.ProviderNATS
	m := NewManager(cfg, Options{RunAPI: true, SkipLogging: true})
	err := m.Init(context.Background())
	assert.ErrorContains(t, err, "failed to connect pubsub provider")
	m.Shutdown(context.Background())
}

func TestManager_InitInvalidIdentity(t *testing.T) {
	cfg := testConfig()
	cfg.Identity.JWTSecret = ""
	m := NewManager(cfg, Options{RunAPI: true, SkipLogging: true})
	err := m.Init(context.Background())
	assert.ErrorContains(t, err, "token service")
	m.Shutdown(context.Background())
}

func TestManager_ListenHostOverride(t *testing.T) {
	m := startManager(t, Options{RunAPI: true, ListenHost: "127.0.0.1"})
	assert.Contains(t, m.Addr(), "127.0.0.1:")
}
