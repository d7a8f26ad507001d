package artifact

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Repository IDs reported for references that are not coordinates.
const (
	LocalRepositoryID = "local"
	URLRepositoryID   = "url"
	FileRepositoryID  = "file"
)

// Repository is a remote Maven-layout repository.
type Repository struct {
	ID  string `toml:"id"  yaml:"id"`
	URL string `toml:"url" yaml:"url"`
}

// ThirdPartyRepository is always searched after the configured repositories.
var ThirdPartyRepository = Repository{
	ID:  "duraspace-thirdparty",
	URL: "https://m2.duraspace.org/content/repositories/thirdparty",
}

// Result describes where a reference was found.
type Result struct {
	Path       string
	Repository string
}

// Resolver turns references into local files. Coordinates are looked up in the local
// repository first, then in each remote repository in order.
type Resolver struct {
	localRepo   string
	downloadDir string
	remotes     []Repository
	thirdParty  bool
	client      *http.Client
	logger      *slog.Logger
}

// NewResolver creates a Resolver backed by localRepo, a Maven-layout directory.
func NewResolver(localRepo string, opts ...Option) *Resolver {
	r := &Resolver{
		localRepo:   localRepo,
		downloadDir: filepath.Join(localRepo, ".downloads"),
		thirdParty:  true,
		client:      http.DefaultClient,
		logger:      slog.Default().WithGroup("artifact.Resolver"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Repositories lists the remote repositories in search order.
func (r *Resolver) Repositories() []Repository {
	out := make([]Repository, 0, len(r.remotes)+1)
	out = append(out, r.remotes...)
	if r.thirdParty {
		out = append(out, ThirdPartyRepository)
	}
	return out
}

// Resolve locates ref and returns its local path. Every failure matches ErrResolution.
func (r *Resolver) Resolve(ctx context.Context, ref string) (Result, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return Result{}, fmt.Errorf("%w: empty reference", ErrResolution)
	}

	logger := r.logger.With("ref", ref)
	res, err := r.resolve(ctx, ref)
	if err != nil {
		logger.Debug("Resolution failed", "error", err)
		return Result{}, fmt.Errorf("%w: %s: %w", ErrResolution, ref, err)
	}
	logger.Debug("Resolved", "path", res.Path, "repository", res.Repository)
	return res, nil
}

func (r *Resolver) resolve(ctx context.Context, ref string) (Result, error) {
	switch {
	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		return r.resolveURL(ctx, ref)
	case strings.HasPrefix(ref, "file://"):
		u, err := url.Parse(ref)
		if err != nil {
			return Result{}, err
		}
		return resolveFile(filepath.FromSlash(u.Path))
	case strings.ContainsAny(ref, `/\`):
		return resolveFile(ref)
	}

	coords, err := ParseCoordinates(ref)
	if err != nil {
		// bare file names in the working directory
		if res, ferr := resolveFile(ref); ferr == nil {
			return res, nil
		}
		return Result{}, err
	}
	return r.resolveCoordinates(ctx, coords)
}

func resolveFile(p string) (Result, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return Result{}, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return Result{}, err
	}
	if info.IsDir() {
		return Result{}, fmt.Errorf("%s is a directory", abs)
	}
	return Result{Path: abs, Repository: FileRepositoryID}, nil
}

func (r *Resolver) resolveURL(ctx context.Context, raw string) (Result, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Result{}, err
	}
	name := path.Base(u.Path)
	if name == "." || name == "/" {
		return Result{}, fmt.Errorf("no file name in %s", raw)
	}
	dest := filepath.Join(r.downloadDir, u.Host, filepath.FromSlash(path.Dir(u.Path)), name)
	if fileExists(dest) {
		return Result{Path: dest, Repository: URLRepositoryID}, nil
	}
	if err := r.download(ctx, raw, dest); err != nil {
		return Result{}, err
	}
	return Result{Path: dest, Repository: URLRepositoryID}, nil
}

func (r *Resolver) resolveCoordinates(ctx context.Context, c Coordinates) (Result, error) {
	dest := filepath.Join(r.localRepo, filepath.FromSlash(c.Path()))
	if fileExists(dest) {
		return Result{Path: dest, Repository: LocalRepositoryID}, nil
	}

	var errs []error
	for _, repo := range r.Repositories() {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		src, err := url.JoinPath(repo.URL, c.Path())
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", repo.ID, err))
			continue
		}
		if err := r.download(ctx, src, dest); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", repo.ID, err))
			continue
		}
		return Result{Path: dest, Repository: repo.ID}, nil
	}
	errs = append(errs, fmt.Errorf("%w: %s in any repository", ErrNotFound, c))
	return Result{}, errors.Join(errs...)
}

func (r *Resolver) download(ctx context.Context, src, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			r.logger.Warn("Failed to close response body", "url", src, "error", err)
		}
	}()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s", ErrNotFound, src)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s from %s", resp.Status, src)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(dest), ".download-*")
	if err != nil {
		return err
	}
	defer func() {
		_ = os.Remove(tmp.Name())
	}()

	n, err := io.Copy(tmp, resp.Body)
	if err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return err
	}
	r.logger.Info("Downloaded artifact", "url", src, "path", dest, "bytes", n)
	return nil
}

func fileExists(p string) bool {
	info, err := os.Stat(p)
	return err == nil && !info.IsDir()
}
