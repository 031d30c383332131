package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/roguelike-launcher/internal/api/github"
	"github.com/oshokin/roguelike-launcher/internal/config"
	"github.com/oshokin/roguelike-launcher/internal/service/app"
	"github.com/oshokin/roguelike-launcher/internal/service/installer"
)

const macAsset = "cdda-osx-tiles-graphics-universal.dmg"

// startFeed serves release feeds for every channel and their assets.
func startFeed(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	body := func(s string) *string { return &s }
	asset := func(tag string) []github.Asset {
		return []github.Asset{{Name: macAsset, Size: int64(len(tag)), DownloadURL: server.URL + "/assets/" + tag}}
	}

	serveJSON := func(path string, v any) {
		mux.HandleFunc(path, func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(v)
		})
	}

	serveJSON("/repos/CleverRaven/Cataclysm-DDA/releases/latest", github.Release{
		TagName: "0.H", Body: body("stable notes"), Assets: asset("0.H"),
	})
	serveJSON("/repos/CleverRaven/Cataclysm-DDA/releases", []github.Release{
		{TagName: "cdda-experimental-R0", Body: body("r0 notes")},
		{TagName: "cdda-experimental-R1", Body: body("r1 notes"), Assets: asset("cdda-experimental-R1")},
	})
	serveJSON("/repos/cataclysmbnteam/Cataclysm-BN/releases", []github.Release{})
	serveJSON("/repos/crawl/crawl/releases/latest", github.Release{TagName: "0.32.1"})

	mux.HandleFunc("/assets/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(filepath.Base(r.URL.Path)))
	})

	return server
}

// imageMounter turns the downloaded file into a volume whose bundle records
// the downloaded tag.
type imageMounter struct{}

func (imageMounter) Mount(_ context.Context, archive, workDir string) (installer.Volume, error) {
	tag, err := os.ReadFile(archive)
	if err != nil {
		return installer.Volume{}, err
	}

	root := filepath.Join(workDir, "volume")
	resources := filepath.Join(root, "Cataclysm.app", "Contents", "Resources")

	if err = os.MkdirAll(filepath.Join(resources, "data"), 0o755); err != nil {
		return installer.Volume{}, err
	}

	if err = os.WriteFile(filepath.Join(resources, "data", "VERSION"), tag, 0o644); err != nil {
		return installer.Volume{}, err
	}

	return installer.Volume{Path: root, Attached: true}, nil
}

func (imageMounter) Unmount(context.Context, installer.Volume) error {
	return nil
}

// recordingOpener keeps every target instead of handing it to the desktop.
type recordingOpener struct {
	mu      sync.Mutex
	targets []string
}

func (r *recordingOpener) Open(_ context.Context, target string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.targets = append(r.targets, target)

	return nil
}

func (r *recordingOpener) opened() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]string(nil), r.targets...)
}

// environment is a launcher installation inside temp directories.
type environment struct {
	baseDir    string
	configPath string
	socketPath string
	opener     *recordingOpener
}

func newEnvironment(t *testing.T, feedURL string) *environment {
	t.Helper()

	// Unix socket paths must stay short.
	socketDir, err := os.MkdirTemp("", "rl")
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.RemoveAll(socketDir) })

	env := &environment{
		baseDir:    t.TempDir(),
		configPath: filepath.Join(t.TempDir(), "launcher.yaml"),
		socketPath: filepath.Join(socketDir, "s.sock"),
		opener:     &recordingOpener{},
	}

	retries := 1
	require.NoError(t, config.Save(env.configPath, &config.Config{
		BaseDir:    env.baseDir,
		SocketPath: env.socketPath,
		APIBaseURL: feedURL,
		RetryMax:   &retries,
		LogLevel:   "error",
		LogFile:    config.DisabledLogFile,
	}))

	return env
}

func (e *environment) options(t *testing.T, in *os.File, out *syncBuffer) *app.Options {
	t.Helper()

	opts := &app.Options{
		ConfigPath: e.configPath,
		Out:        out,
		Opener:     e.opener,
		InstallerOptions: []installer.Option{
			installer.WithMounter(imageMounter{}),
			installer.WithProcessLister(nil),
			installer.WithTempDir(t.TempDir()),
		},
	}

	if in != nil {
		opts.In = in
	}

	return opts
}

// syncBuffer is a bytes.Buffer safe for concurrent writers and readers.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.String()
}

func containsText(haystack, needle string) bool {
	return bytes.Contains([]byte(haystack), []byte(needle))
}
