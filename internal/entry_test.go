package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dfryer1193/postpage/api"
	"github.com/dfryer1193/postpage/blog/application"
	"github.com/dfryer1193/postpage/blog/domain"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testConfig(t *testing.T) (*Config, string) {
	t.Helper()
	dir := t.TempDir()
	postsDir := filepath.Join(dir, "posts")
	require.NoError(t, os.Mkdir(postsDir, 0755))

	cfg := NewDefaultConfig()
	cfg.SQLite.Path = filepath.Join(dir, "postpage.db")
	cfg.Source.Dir = postsDir
	return cfg, postsDir
}

func TestRun_RequiresConfig(t *testing.T) {
	assert.ErrorIs(t, Run(context.Background()), errConfigRequired)
}

func TestImport(t *testing.T) {
	cfg, postsDir := testConfig(t)
	require.NoError(t, os.WriteFile(filepath.Join(postsDir, "hello.md"), []byte("# Hello\nWorld."), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(postsDir, "second.md"), []byte("# Second\nMore."), 0644))

	report, err := Import(context.Background(), "", false, WithConfig(cfg), WithLogOutput(io.Discard))
	require.NoError(t, err)
	assert.Equal(t, application.SyncReport{Imported: 2}, report)

	report, err = Import(context.Background(), postsDir, false, WithConfig(cfg), WithLogOutput(io.Discard))
	require.NoError(t, err)
	assert.Equal(t, application.SyncReport{Unchanged: 2}, report)
}

func TestImport_FilesSource(t *testing.T) {
	cfg, _ := testConfig(t)
	cfg.Source.Kind = SourceFiles

	_, err := Import(context.Background(), "", false, WithConfig(cfg), WithLogOutput(io.Discard))
	assert.ErrorIs(t, err, errSyncUnavailable)
}

func TestRenderPost(t *testing.T) {
	cfg, postsDir := testConfig(t)
	cfg.Source.Kind = SourceFiles
	require.NoError(t, os.WriteFile(filepath.Join(postsDir, "hello.md"), []byte("# Hello\nWorld."), 0644))

	tests := []struct {
		name      string
		id        string
		wantErr   error
		wantState string
	}{
		{name: "ready", id: "hello", wantState: "ready"},
		{name: "not found", id: "missing", wantErr: domain.ErrPostNotFound, wantState: "failed"},
		{name: "invalid", id: "../etc", wantErr: domain.ErrInvalidIdentifier, wantState: "failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			err := RenderPost(context.Background(), tt.id, &out, WithConfig(cfg), WithLogOutput(io.Discard))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}

			var page api.PostPage
			require.NoError(t, json.Unmarshal(out.Bytes(), &page))
			assert.Equal(t, tt.wantState, page.State)
		})
	}
}

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func TestRun_ServesAndShutsDown(t *testing.T) {
	cfg, postsDir := testConfig(t)
	cfg.App.HTTP.Port = freePort(t)
	cfg.Source.SyncOnStart = true
	cfg.Source.Watch = true
	require.NoError(t, os.WriteFile(filepath.Join(postsDir, "hello.md"), []byte("# Hello\nWorld."), 0644))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Run(ctx, WithConfig(cfg), WithLogOutput(io.Discard)) }()

	base := fmt.Sprintf("http://127.0.0.1:%d", cfg.App.HTTP.Port)
	require.Eventually(t, func() bool {
		resp, err := http.Get(base + "/health/live")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 50*time.Millisecond)

	resp, err := http.Get(base + "/posts/v1/hello")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var page api.PostPage
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&page))
	assert.Equal(t, "Hello - blog", page.Title)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(15 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}
