package source

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/surstitch/leadboard/internal/config"
	"github.com/surstitch/leadboard/internal/leads"
)

// maxBody caps a remote CSV download.
const maxBody = 512 << 20

// Kinds of dataset location.
const (
	KindFile = "file"
	KindURL  = "url"
)

// Description is the public view of where a dataset comes from. Secrets are
// never included.
type Description struct {
	Name     string `json:"name"`
	Kind     string `json:"kind"`
	Location string `json:"location"`
	AuthMode string `json:"auth_mode"`
}

// Loader reads the configured dataset from a local file or an http(s) URL.
// It builds the HTTP client once and reuses it across loads.
type Loader struct {
	cfg     config.DatasetConfig
	schema  leads.Schema
	client  *http.Client
	maxBody int64
}

// New returns a Loader for cfg. For URL datasets the HTTP client is built
// from the auth and TLS settings; a bad client certificate fails here.
func New(cfg config.DatasetConfig, schema leads.Schema) (*Loader, error) {
	l := &Loader{cfg: cfg, schema: schema.WithDefaults(), maxBody: maxBody}
	if cfg.Remote() {
		client, err := buildHTTPClient(cfg)
		if err != nil {
			return nil, fmt.Errorf("source %q: build http client: %w", cfg.Name, err)
		}
		l.client = client
	}
	return l, nil
}

// Describe reports the dataset location.
func (l *Loader) Describe() Description {
	d := Description{
		Name:     l.cfg.Name,
		Kind:     KindFile,
		Location: l.cfg.Location(),
		AuthMode: "none",
	}
	if l.cfg.Remote() {
		d.Kind = KindURL
		if l.cfg.Auth.Mode != "" {
			d.AuthMode = l.cfg.Auth.Mode
		}
	}
	return d
}

// Load reads and parses the dataset.
func (l *Loader) Load(ctx context.Context) (*leads.Table, error) {
	if l.cfg.Location() == "" {
		return nil, fmt.Errorf("source %q: no path or url configured", l.cfg.Name)
	}
	if !l.cfg.Remote() {
		return LoadFile(l.cfg.Path, l.schema)
	}

	body, err := l.fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("source %q: %w", l.cfg.Name, err)
	}
	defer body.Close()

	r, err := NewReader(&capReader{r: body, left: l.maxBody}, CompressionFor(l.cfg.URL))
	if err != nil {
		return nil, fmt.Errorf("source %q: %w: %v", l.cfg.Name, leads.ErrMalformed, err)
	}
	defer r.Close()

	tbl, err := leads.Load(r, l.schema)
	if err != nil {
		return nil, fmt.Errorf("source %q: %w", l.cfg.Name, err)
	}
	return tbl, nil
}

// capReader fails once more than left bytes have been read, so an oversized
// download is reported instead of being parsed as a truncated table.
type capReader struct {
	r    io.Reader
	left int64
}

func (c *capReader) Read(p []byte) (int, error) {
	if c.left < 0 {
		return 0, fmt.Errorf("%w: body exceeds limit", leads.ErrMalformed)
	}
	if int64(len(p)) > c.left+1 {
		p = p[:c.left+1]
	}
	n, err := c.r.Read(p)
	c.left -= int64(n)
	if c.left < 0 {
		return 0, fmt.Errorf("%w: body exceeds limit", leads.ErrMalformed)
	}
	return n, err
}

// fetch performs an HTTP GET for the dataset URL. The caller closes the body.
func (l *Loader) fetch(ctx context.Context) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.cfg.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "text/csv")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return resp.Body, nil
}

// authRoundTripper injects authentication headers into every outgoing request.
type authRoundTripper struct {
	base http.RoundTripper
	auth config.AuthConfig
}

func (t *authRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	switch t.auth.Mode {
	case "apikey":
		req = req.Clone(req.Context())
		header := t.auth.Header
		if header == "" {
			header = config.DefaultAuthHeader
		}
		req.Header.Set(header, t.auth.Key())
	case "bearer":
		req = req.Clone(req.Context())
		req.Header.Set("Authorization", "Bearer "+t.auth.Token())
	case "basic":
		req = req.Clone(req.Context())
		req.SetBasicAuth(t.auth.Username, t.auth.Password())
	}
	return t.base.RoundTrip(req)
}

// buildHTTPClient constructs an http.Client for the dataset's auth and TLS settings.
func buildHTTPClient(cfg config.DatasetConfig) (*http.Client, error) {
	tlsCfg := &tls.Config{
		InsecureSkipVerify: cfg.TLS.InsecureSkipVerify, //nolint:gosec // user-configured
	}

	if cfg.Auth.Mode == "mtls" {
		cert, err := tls.LoadX509KeyPair(cfg.Auth.CertFile, cfg.Auth.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("load client cert: %w", err)
		}
		tlsCfg.Certificates = []tls.Certificate{cert}

		if cfg.Auth.CAFile != "" {
			caPEM, err := os.ReadFile(cfg.Auth.CAFile)
			if err != nil {
				return nil, fmt.Errorf("read ca file: %w", err)
			}
			pool := x509.NewCertPool()
			if !pool.AppendCertsFromPEM(caPEM) {
				return nil, fmt.Errorf("no valid certs found in ca file %q", cfg.Auth.CAFile)
			}
			tlsCfg.RootCAs = pool
		}
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = config.DefaultFetchTimeout
	}
	return &http.Client{
		Transport: &authRoundTripper{
			base: &http.Transport{TLSClientConfig: tlsCfg, Proxy: http.ProxyFromEnvironment},
			auth: cfg.Auth,
		},
		Timeout: timeout,
	}, nil
}
