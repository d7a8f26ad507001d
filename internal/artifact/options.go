package artifact

import (
	"log/slog"
	"net/http"
)

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets a custom logger for the Resolver.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// WithLogHandler sets a custom log handler for the Resolver.
func WithLogHandler(handler slog.Handler) Option {
	return func(r *Resolver) {
		r.logger = slog.New(handler)
	}
}

// WithRepositories sets the remote repositories searched before the third-party one.
func WithRepositories(repos ...Repository) Option {
	return func(r *Resolver) {
		r.remotes = append(r.remotes[:0], repos...)
	}
}

// WithoutThirdPartyRepository drops the built-in third-party repository from the search.
func WithoutThirdPartyRepository() Option {
	return func(r *Resolver) {
		r.thirdParty = false
	}
}

// WithDownloadDir sets where URL references are downloaded to.
func WithDownloadDir(dir string) Option {
	return func(r *Resolver) {
		if dir != "" {
			r.downloadDir = dir
		}
	}
}

// WithHTTPClient replaces the client used for downloads.
func WithHTTPClient(client *http.Client) Option {
	return func(r *Resolver) {
		if client != nil {
			r.client = client
		}
	}
}
