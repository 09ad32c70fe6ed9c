package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"moontv/work/client"
)

// Loader supplies the raw catalog source-of-record bytes. The cache
// treats it as an external collaborator: it only ever asks for the
// whole document and copes with failure itself.
type Loader interface {
	Load(ctx context.Context) ([]byte, error)
}

// New picks a loader for the configured source location: http(s) URLs
// get the remote loader, anything else is treated as a file path.
func New(location string, httpClient *client.HeaderSettingClient) Loader {
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		return &HTTPLoader{URL: location, Client: httpClient}
	}
	return &FileLoader{Path: location}
}

// FileLoader reads the catalog document from local disk.
type FileLoader struct {
	Path string
}

func (l *FileLoader) Load(_ context.Context) ([]byte, error) {
	data, err := os.ReadFile(l.Path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}
	return data, nil
}

// HTTPLoader fetches the catalog document from a remote origin.
type HTTPLoader struct {
	URL    string
	Client *client.HeaderSettingClient
}

func (l *HTTPLoader) Load(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("build catalog request: %w", err)
	}

	resp, err := l.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch catalog: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch catalog: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read catalog body: %w", err)
	}
	return data, nil
}
