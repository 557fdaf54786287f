package services

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/audiokeeper/internal/dbx"
	"github.com/dmitrijs2005/audiokeeper/internal/logging"
	"github.com/dmitrijs2005/audiokeeper/internal/server/auth"
	"github.com/dmitrijs2005/audiokeeper/internal/server/config"
	"github.com/dmitrijs2005/audiokeeper/internal/server/models"
	"github.com/dmitrijs2005/audiokeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/audiokeeper/internal/server/sandbox"
	"github.com/stretchr/testify/require"
)

type fakeSynth struct {
	path string
	err  error
}

func (f *fakeSynth) Synthesize(context.Context, string, models.Emotion) (string, error) {
	return f.path, f.err
}

type fakeMirror struct {
	mu      sync.Mutex
	puts    []string
	deletes []string
	err     error
}

func (m *fakeMirror) Put(_ context.Context, key, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.puts = append(m.puts, key)
	return m.err
}

func (m *fakeMirror) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletes = append(m.deletes, key)
	return m.err
}

type testEnv struct {
	db     *sql.DB
	rm     repomanager.RepositoryManager
	cfg    *config.Config
	tokens *auth.TokenService
	users  *UserService
	audio  *AudioService
	synth  *fakeSynth
	mirror *fakeMirror
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()
	root := t.TempDir()

	db, dialect, err := dbx.Open(ctx, filepath.Join(root, "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	rm := repomanager.NewSQLRepositoryManager(dialect)
	require.NoError(t, rm.RunMigrations(ctx, db))

	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.ProjectRoot = root
	cfg.VoiceDir = filepath.Join(root, "voice")
	for _, d := range cfg.Dirs() {
		require.NoError(t, os.MkdirAll(d, 0o755))
	}

	resolver, err := sandbox.NewResolver(cfg.ProjectRoot, cfg.OutputRoot(), cfg.PublicRootName)
	require.NoError(t, err)

	tokens := auth.NewTokenService([]byte("test-secret"))
	fs := &fakeSynth{}
	mirror := &fakeMirror{}

	return &testEnv{
		db:     db,
		rm:     rm,
		cfg:    cfg,
		tokens: tokens,
		users:  NewUserService(db, rm, tokens, cfg, logging.Nop()),
		audio: NewAudioService(db, rm, resolver, fs, mirror,
			AudioRoots{Output: cfg.OutputRoot(), Temp: cfg.TempRoot(), Data: cfg.DataRoot()}, logging.Nop()),
		synth:  fs,
		mirror: mirror,
	}
}

func (e *testEnv) register(t *testing.T, name string) *models.User {
	t.Helper()
	u, err := e.users.Register(context.Background(), RegisterInput{UserName: name, Password: name + "-pw"})
	require.NoError(t, err)
	return u
}

// scratch writes a file into the scratch area and returns its logical path.
func (e *testEnv) scratch(t *testing.T, name string) string {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(e.cfg.TempRoot(), name), []byte("RIFF"), 0o600))
	return "/output/temp/" + name
}

var fixedNow = time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
