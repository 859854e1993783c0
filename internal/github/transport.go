package github

import (
	"fmt"
	"net/http"
	"time"

	"github.com/cli/go-gh/v2/pkg/api"
	"github.com/cli/go-gh/v2/pkg/auth"
)

// TransportOptions configures the HTTP client used for upstream calls
type TransportOptions struct {
	// Host is the web host used for token lookup, e.g. github.com
	Host string

	// Token authenticates requests. Empty means anonymous unless discovery finds one.
	Token string

	// DiscoverToken looks up a token from GH_TOKEN/GITHUB_TOKEN or the gh CLI config
	DiscoverToken bool

	Timeout time.Duration
}

// ResolveToken returns the configured token or, when allowed, a discovered one
// together with where it came from
func ResolveToken(opts TransportOptions) (string, string) {
	if opts.Token != "" {
		return opts.Token, "config"
	}
	if !opts.DiscoverToken {
		return "", ""
	}
	host := opts.Host
	if host == "" {
		host = "github.com"
	}
	return auth.TokenForHost(host)
}

// NewHTTPClient builds the upstream HTTP client. Authenticated clients are
// built by go-gh so they carry the same headers as the gh CLI; anonymous
// access uses a plain client because go-gh refuses to run without a token.
func NewHTTPClient(opts TransportOptions) (*http.Client, string, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	token, source := ResolveToken(opts)
	if token == "" {
		return &http.Client{Timeout: timeout}, "anonymous", nil
	}

	host := opts.Host
	if host == "" {
		host = "github.com"
	}

	client, err := api.NewHTTPClient(api.ClientOptions{
		Host:      host,
		AuthToken: token,
		Timeout:   timeout,
		Transport: http.DefaultTransport,
	})
	if err != nil {
		return nil, "", fmt.Errorf("failed to create authenticated http client: %w", err)
	}
	return client, source, nil
}
