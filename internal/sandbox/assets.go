package sandbox

import (
	"context"
	_ "embed"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

const (
	preludeFile     = "prelude.star"
	maxPreludeBytes = 1 << 20
)

//go:embed prelude.star
var embeddedPrelude string

// loadPrelude resolves the prelude source from indexURL: an http(s) base
// URL, a file:// URL or local directory, or the embedded copy when empty.
func loadPrelude(ctx context.Context, client *http.Client, indexURL string) (string, string, error) {
	indexURL = strings.TrimSpace(indexURL)
	if indexURL == "" {
		return embeddedPrelude, "embedded:" + preludeFile, nil
	}
	u, err := url.Parse(indexURL)
	if err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		return fetchPrelude(ctx, client, u)
	}
	dir := indexURL
	if err == nil && u.Scheme == "file" {
		dir = u.Path
	}
	path := filepath.Join(dir, preludeFile)
	b, err := os.ReadFile(path)
	if err != nil {
		return "", "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(b), path, nil
}

func fetchPrelude(ctx context.Context, client *http.Client, base *url.URL) (string, string, error) {
	if client == nil {
		client = http.DefaultClient
	}
	ref := base.JoinPath(preludeFile).String()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return "", "", err
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("fetch %s: %w", ref, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("fetch %s: status %d", ref, resp.StatusCode)
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, maxPreludeBytes))
	if err != nil {
		return "", "", fmt.Errorf("fetch %s: %w", ref, err)
	}
	return string(b), ref, nil
}
