// Package media caches downloaded chat attachments on disk so a voice note
// or image opened twice is fetched once.
package media

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Cache stores attachments in {baseDir}/cache/attachments, keyed by the hash
// of their URL. Attachment URLs are immutable on the backend, so a cache hit
// never needs revalidation.
type Cache struct {
	mu   sync.Mutex
	dir  string
	http *http.Client
}

// NewCache creates the cache directory under baseDir.
func NewCache(baseDir string) *Cache {
	dir := filepath.Join(baseDir, "cache", "attachments")
	_ = os.MkdirAll(dir, 0755)
	return &Cache{
		dir:  dir,
		http: &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *Cache) filePath(rawURL string) string {
	sum := sha256.Sum256([]byte(rawURL))
	name := hex.EncodeToString(sum[:16])
	if u, err := url.Parse(rawURL); err == nil {
		if ext := filepath.Ext(u.Path); ext != "" {
			name += ext
		}
	}
	return filepath.Join(c.dir, name)
}

// Path returns the local path for a cached attachment and whether it exists.
func (c *Cache) Path(rawURL string) (string, bool) {
	p := c.filePath(rawURL)
	if _, err := os.Stat(p); err != nil {
		return p, false
	}
	return p, true
}

// Fetch returns the local path of the attachment, downloading it on a miss.
// The download writes to a temp file first so a failed transfer never leaves
// a truncated entry behind.
func (c *Cache) Fetch(ctx context.Context, rawURL string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.Path(rawURL)
	if ok {
		return p, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch attachment: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch attachment: status %d", resp.StatusCode)
	}

	tmp, err := os.CreateTemp(c.dir, ".download-*")
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("fetch attachment: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	return p, nil
}
