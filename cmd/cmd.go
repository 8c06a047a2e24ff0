// Package cmd implements the git-lfs-client command line.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/charmbracelet/git-lfs-client/config"
	"github.com/charmbracelet/git-lfs-client/internal/lfshttp"
	"github.com/charmbracelet/git-lfs-client/internal/local"
	logger "github.com/charmbracelet/git-lfs-client/log"
	"github.com/charmbracelet/git-lfs-client/transfer"
	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/git-lfs/git-lfs/v3/git"
	"github.com/git-lfs/git-lfs/v3/lfs"
	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/storage/filesystem"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

// ErrUnsupportedRemote is returned for endpoints no remote implementation
// can serve, such as ssh.
var ErrUnsupportedRemote = errors.New("unsupported remote")

type options struct {
	repo       string
	url        string
	configPath string
	headers    []string
}

// NewCommand returns the root command.
func NewCommand(stdout, stderr io.Writer) *cobra.Command {
	var opts options
	root := &cobra.Command{
		Use:           "git-lfs-client",
		Short:         "Git LFS transfer client",
		Long:          "Pull and push Git LFS objects between a repository and its LFS remote.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	flags := root.PersistentFlags()
	flags.StringVarP(&opts.repo, "repo", "C", ".", "path to the git repository")
	flags.StringVar(&opts.url, "url", "", "LFS endpoint URL, overrides lfs.url and the origin remote")
	flags.StringVarP(&opts.configPath, "config", "c", "", "path to a YAML config file")
	flags.StringArrayVarP(&opts.headers, "header", "H", nil, "extra HTTP header as KEY=VALUE, may be repeated")

	for _, op := range []transfer.Operation{transfer.DownloadOperation, transfer.UploadOperation} {
		op := op
		name, short := "pull", "Download objects into the local object store"
		if op == transfer.UploadOperation {
			name, short = "push", "Upload objects from the local object store"
		}
		root.AddCommand(&cobra.Command{
			Use:   name + " [POINTER_FILE...]",
			Short: short,
			RunE: func(cmd *cobra.Command, args []string) error {
				return run(cmd.Context(), cmd.OutOrStdout(), op, opts, args)
			},
		})
	}

	return root
}

// repository is a discovered git repository.
type repository struct {
	gitDir  string
	workDir string
	origin  string
}

// lfsPath returns the `.git/lfs` directory of the repository.
func (r repository) lfsPath() string {
	return filepath.Join(r.gitDir, "lfs")
}

// openRepository finds the git repository containing path.
func openRepository(path string) (repository, error) {
	r, err := gogit.PlainOpenWithOptions(path, &gogit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return repository{}, fmt.Errorf("open repository %s: %w", path, err)
	}

	var repo repository
	st, ok := r.Storer.(*filesystem.Storage)
	if !ok {
		return repository{}, fmt.Errorf("repository %s is not on disk", path)
	}
	repo.gitDir = st.Filesystem().Root()
	if wt, err := r.Worktree(); err == nil {
		repo.workDir = wt.Filesystem.Root()
	}
	if origin, err := r.Remote("origin"); err == nil && len(origin.Config().URLs) > 0 {
		repo.origin = origin.Config().URLs[0]
	}
	return repo, nil
}

// endpoint resolves the LFS endpoint. An explicit URL wins over the lfs.url
// git config, which wins over the endpoint derived from the origin remote.
func endpoint(repo repository, cfg *config.Config, override string) (*url.URL, error) {
	explicit := override
	if explicit == "" {
		explicit = cfg.LFS.URL
	}
	if explicit == "" {
		explicit = git.NewReadOnlyConfig(repo.workDir, repo.gitDir).Find("lfs.url")
	}
	if explicit != "" {
		u, err := url.Parse(explicit)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", transfer.ErrURLParse, err)
		}
		return u, nil
	}
	if repo.origin == "" {
		return nil, errors.New("no LFS endpoint: set --url, lfs.url or an origin remote")
	}
	return lfshttp.NewEndpoint(repo.origin)
}

// newRemote returns the remote serving the endpoint. HTTP settings come from
// the config in ctx; headers override the configured ones.
func newRemote(ctx context.Context, e *url.URL, headers transfer.Args, umask os.FileMode) (transfer.Remote, error) {
	cfg := config.FromContext(ctx)
	switch e.Scheme {
	case "http", "https":
		all := make(map[string]string, len(cfg.HTTP.Headers)+len(headers))
		for k, v := range cfg.HTTP.Headers {
			all[k] = v
		}
		for k, v := range headers {
			all[k] = v
		}
		return lfshttp.New(e, lfshttp.WithTimeout(cfg.HTTP.Timeout), lfshttp.WithHeaders(all))
	case "file":
		return local.FromURL(e.String(), umask)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedRemote, e.Redacted())
	}
}

// newClient returns a transfer client using the retry policy and ref of the
// config in ctx.
func newClient(ctx context.Context, lfsPath string, remote transfer.Remote, umask os.FileMode, observer transfer.Observer) *transfer.Client {
	cfg := config.FromContext(ctx)
	return transfer.NewClient(lfsPath, remote,
		transfer.WithRetry(cfg.Transfer.Attempts, cfg.Transfer.Delay),
		transfer.WithUmask(umask),
		transfer.WithRef(cfg.LFS.Ref),
		transfer.WithObserver(observer),
	)
}

// readPointers decodes the given Git LFS pointer files.
func readPointers(paths []string) ([]transfer.Pointer, error) {
	pointers := make([]transfer.Pointer, 0, len(paths))
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		p, err := lfs.DecodePointer(f)
		f.Close() // nolint: errcheck
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		pointer, err := transfer.NewPointer(p.Oid, p.Size)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		pointers = append(pointers, pointer)
	}
	return pointers, nil
}

// summary counts the objects that reached a terminal state.
type summary struct {
	mu      sync.Mutex
	done    int
	skipped int
	bytes   int64
}

func (s *summary) observe(st transfer.ObjectStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch st.State {
	case transfer.StateDone:
		s.done++
		// Objects that were only verified moved no content.
		if st.Attempts > 0 {
			s.bytes += st.Pointer.Size
		}
	case transfer.StateSkipped:
		s.skipped++
	}
}

func (s *summary) String(op transfer.Operation) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	verb := "pulled"
	if op == transfer.UploadOperation {
		verb = "pushed"
	}
	return fmt.Sprintf("%s %d objects (%s), %d skipped", verb, s.done, humanize.IBytes(uint64(s.bytes)), s.skipped)
}

func run(ctx context.Context, out io.Writer, op transfer.Operation, opts options, args []string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := config.DefaultConfig()
	if err := cfg.Parse(opts.configPath); err != nil {
		return err
	}

	l, f, err := logger.NewLogger(cfg)
	if err != nil {
		return err
	}
	if f != nil {
		defer f.Close() // nolint: errcheck
	}
	ctx = log.WithContext(ctx, l)
	ctx = config.WithContext(ctx, cfg)

	headers, err := transfer.ParseArgs(opts.headers)
	if err != nil {
		return err
	}

	pointers, err := readPointers(args)
	if err != nil {
		return err
	}

	repo, err := openRepository(opts.repo)
	if err != nil {
		return err
	}

	umask, ok, err := cfg.Umask()
	if err != nil {
		return err
	}
	if !ok {
		umask = setPermissions(repo.gitDir)
	}
	l.Debug("repository", "gitdir", repo.gitDir, "umask", fmt.Sprintf("%04o", umask))

	e, err := endpoint(repo, cfg, opts.url)
	if err != nil {
		return err
	}
	remote, err := newRemote(ctx, e, headers, umask)
	if err != nil {
		return err
	}
	l.Info("using LFS endpoint", "url", e.Redacted(), "operation", op)

	var sum summary
	client := newClient(ctx, repo.lfsPath(), remote, umask, sum.observe)

	switch op {
	case transfer.DownloadOperation:
		err = client.Pull(ctx, pointers)
	case transfer.UploadOperation:
		err = client.Push(ctx, pointers)
	default:
		err = fmt.Errorf("unknown operation %q", op)
	}

	if path := cfg.Metrics.Textfile; path != "" {
		if werr := prometheus.WriteToTextfile(path, prometheus.DefaultGatherer); werr != nil {
			l.Error("failed to write metrics", "path", path, "err", werr)
		}
	}

	fmt.Fprintln(out, sum.String(op))
	return err
}

// Command is the main git-lfs-client entry. It cancels the running transfer
// when the process is signalled.
func Command(stdout io.Writer, stderr io.Writer, args ...string) error {
	done := make(chan os.Signal, 1)
	setup(done)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case s := <-done:
			log.Warn("signal received, stopping", "signal", strings.ToUpper(s.String()))
			cancel()
		case <-ctx.Done():
		}
	}()

	root := NewCommand(stdout, stderr)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}
