package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/matryer/is"
)

func TestDefaultConfigIsValid(t *testing.T) {
	is := is.New(t)
	cfg := DefaultConfig()
	is.NoErr(cfg.Validate())
	is.Equal(cfg.Transfer.Attempts, 3)
	is.Equal(cfg.Transfer.Delay, 500*time.Millisecond)
}

func TestParseEnv(t *testing.T) {
	is := is.New(t)
	t.Setenv("GIT_LFS_CLIENT_LFS_URL", "https://example.com/repo.git/info/lfs/")
	t.Setenv("GIT_LFS_CLIENT_TRANSFER_ATTEMPTS", "5")
	t.Setenv("GIT_LFS_CLIENT_TRANSFER_DELAY", "2s")
	t.Setenv("GIT_LFS_CLIENT_HTTP_HEADERS", "Authorization=Bearer abc,X-Trace=1")
	t.Setenv("GIT_LFS_CLIENT_LFS_UMASK", "0027")

	cfg := DefaultConfig()
	is.NoErr(cfg.ParseEnv())
	is.Equal(cfg.LFS.URL, "https://example.com/repo.git/info/lfs")
	is.Equal(cfg.Transfer.Attempts, 5)
	is.Equal(cfg.Transfer.Delay, 2*time.Second)
	is.Equal(cfg.HTTP.Headers, map[string]string{"Authorization": "Bearer abc", "X-Trace": "1"})

	umask, ok, err := cfg.Umask()
	is.NoErr(err)
	is.True(ok)
	is.Equal(umask, os.FileMode(0o027))
}

func TestParseFile(t *testing.T) {
	is := is.New(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	is.NoErr(os.WriteFile(path, []byte(`
lfs:
  url: https://example.com/org/repo.git/info/lfs
transfer:
  attempts: 4
  delay: 250ms
http:
  timeout: 30s
  headers:
    X-Extra: yes
log:
  format: json
metrics:
  textfile: /var/lib/node_exporter/git_lfs_client.prom
`), 0o644))

	cfg := DefaultConfig()
	is.NoErr(cfg.ParseFile(path))
	is.Equal(cfg.Transfer.Attempts, 4)
	is.Equal(cfg.Transfer.Delay, 250*time.Millisecond)
	is.Equal(cfg.HTTP.Timeout, 30*time.Second)
	is.Equal(cfg.HTTP.Headers["X-Extra"], "yes")
	is.Equal(cfg.Log.Format, "json")
	is.Equal(cfg.Log.Level, "info") // untouched default
	is.Equal(cfg.Metrics.Textfile, "/var/lib/node_exporter/git_lfs_client.prom")
}

func TestEnvOverridesFile(t *testing.T) {
	is := is.New(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	is.NoErr(os.WriteFile(path, []byte("transfer:\n  attempts: 4\n"), 0o644))
	t.Setenv("GIT_LFS_CLIENT_TRANSFER_ATTEMPTS", "7")

	cfg := DefaultConfig()
	is.NoErr(cfg.Parse(path))
	is.Equal(cfg.Transfer.Attempts, 7)
}

func TestValidate(t *testing.T) {
	for name, mutate := range map[string]func(*Config){
		"attempts": func(c *Config) { c.Transfer.Attempts = 0 },
		"delay":    func(c *Config) { c.Transfer.Delay = -time.Second },
		"timeout":  func(c *Config) { c.HTTP.Timeout = -time.Second },
		"format":   func(c *Config) { c.Log.Format = "xml" },
		"umask":    func(c *Config) { c.LFS.Umask = "0999" },
	} {
		t.Run(name, func(t *testing.T) {
			is := is.New(t)
			cfg := DefaultConfig()
			mutate(cfg)
			is.True(cfg.Validate() != nil)
		})
	}

	var cfg *Config
	is.New(t).Equal(cfg.Validate(), ErrNilConfig)
}

func TestFromContext(t *testing.T) {
	is := is.New(t)
	is.Equal(FromContext(context.TODO()), DefaultConfig())

	cfg := DefaultConfig()
	cfg.LFS.Ref = "refs/heads/main"
	is.Equal(FromContext(WithContext(context.TODO(), cfg)), cfg)
}
