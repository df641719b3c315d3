package phpboot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
)

// DefaultMaxRedirects is used when Downloader.MaxRedirects is zero.
const DefaultMaxRedirects = 10

// Downloader performs GET requests and follows redirects itself so that every
// hop's body is drained and closed before the next request goes out.
type Downloader struct {
	// Client is the http client to use. Its CheckRedirect is ignored. Defaults to http.DefaultClient's transport.
	Client       *http.Client
	MaxRedirects int
	Logger       *log.Logger
}

func (d *Downloader) client() *http.Client {
	client := &http.Client{}
	if d.Client != nil {
		client.Transport = d.Client.Transport
		client.Jar = d.Client.Jar
		client.Timeout = d.Client.Timeout
	}
	client.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	return client
}

func (d *Downloader) maxRedirects() int {
	if d.MaxRedirects > 0 {
		return d.MaxRedirects
	}
	return DefaultMaxRedirects
}

// get issues a GET for rawURL and follows redirects. The returned response has a 2xx status.
func (d *Downloader) get(ctx context.Context, rawURL string) (*http.Response, error) {
	logger := orDiscard(d.Logger)
	client := d.client()
	reqURL := rawURL
	for hops := 0; ; hops++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
		if err != nil {
			return nil, &TransportError{URL: reqURL, Err: err}
		}
		resp, err := client.Do(req)
		if err != nil {
			return nil, &TransportError{URL: reqURL, Err: err}
		}
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return resp, nil
		}
		location := resp.Header.Get("Location")
		drainBody(resp)
		if !isRedirect(resp.StatusCode) || location == "" {
			return nil, &TransportError{URL: reqURL, Err: fmt.Errorf("unexpected status %s", resp.Status)}
		}
		if hops >= d.maxRedirects() {
			return nil, &TransportError{URL: rawURL, Err: fmt.Errorf("stopped after %d redirects", hops)}
		}
		next, err := resolveLocation(reqURL, location)
		if err != nil {
			return nil, &TransportError{URL: reqURL, Err: err}
		}
		logger.Debug("following redirect", "from", reqURL, "to", next, "status", resp.StatusCode)
		reqURL = next
	}
}

// Download downloads the file at rawURL to dest. On error, dest is removed.
func (d *Downloader) Download(ctx context.Context, rawURL, dest string) (errOut error) {
	logger := orDiscard(d.Logger)
	defer func() {
		if errOut != nil {
			removeQuietly(logger, dest)
		}
	}()
	logger.Debug("downloading", "url", rawURL, "dest", dest)
	resp, err := d.get(ctx, rawURL)
	if err != nil {
		return err
	}
	defer deferErr(&errOut, resp.Body.Close)
	err = os.MkdirAll(filepath.Dir(dest), 0o750)
	if err != nil {
		return err
	}
	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	_, err = io.Copy(out, resp.Body)
	if err != nil {
		return errors.Join(&TransportError{URL: rawURL, Err: err}, out.Close())
	}
	return out.Close()
}

// FetchJSON gets rawURL and decodes the body into v. A body that isn't valid
// JSON is a *MetadataParseError.
func (d *Downloader) FetchJSON(ctx context.Context, rawURL string, v any) (errOut error) {
	resp, err := d.get(ctx, rawURL)
	if err != nil {
		return err
	}
	defer deferErr(&errOut, resp.Body.Close)
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{URL: rawURL, Err: err}
	}
	err = json.Unmarshal(body, v)
	if err != nil {
		return &MetadataParseError{URL: rawURL, Err: err}
	}
	return nil
}

func isRedirect(status int) bool {
	switch status {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return true
	}
	return false
}

func resolveLocation(base, location string) (string, error) {
	baseURL, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	loc, err := url.Parse(location)
	if err != nil {
		return "", fmt.Errorf("invalid redirect location %q: %w", location, err)
	}
	return baseURL.ResolveReference(loc).String(), nil
}

// drainBody discards and closes a response body so the connection can be reused.
func drainBody(resp *http.Response) {
	//nolint:errcheck // best-effort
	io.Copy(io.Discard, resp.Body)
	//nolint:errcheck // best-effort
	resp.Body.Close()
}
