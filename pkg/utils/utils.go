// Package utils provides download and caching helpers for map assets.
package utils

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"
)

var ErrNotFound = errors.New("file not found on server")

// IsURL reports whether location should be fetched over http(s).
func IsURL(location string) bool {
	return strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://")
}

func get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		if err := resp.Body.Close(); err != nil {
			log.Printf("Error closing response body: %v", err)
		}
		if resp.StatusCode == http.StatusNotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("bad status: %s", resp.Status)
	}
	return resp, nil
}

func newBar(size int64, label string, w io.Writer) *progressbar.ProgressBar {
	return progressbar.NewOptions64(size,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(label),
		progressbar.OptionShowBytes(true),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionOnCompletion(func() { _, _ = fmt.Fprintln(w) }),
	)
}

// DownloadFile downloads a file from a URL to a local path safely. Progress
// is drawn to progress when it is not nil.
func DownloadFile(ctx context.Context, url, path string, progress io.Writer) error {
	resp, err := get(ctx, url)
	if err != nil {
		return err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.Printf("Error closing response body: %v", err)
		}
	}()

	// Create a temp file in the same directory to ensure atomic move
	tmpFile, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmpFile.Name()
	defer func() {
		if err := os.Remove(tmpName); err != nil && !os.IsNotExist(err) {
			log.Printf("Error removing temp file %s: %v", tmpName, err)
		}
	}() // Clean up if we fail

	var w io.Writer = tmpFile
	if progress != nil {
		w = io.MultiWriter(tmpFile, newBar(resp.ContentLength, filepath.Base(path), progress))
	}
	if _, err := io.Copy(w, resp.Body); err != nil {
		_ = tmpFile.Close()
		return err
	}
	if err := tmpFile.Close(); err != nil {
		return err
	}

	// Atomic rename to final path
	return os.Rename(tmpName, path)
}

// GetCachedReader returns a reader for the given URL. With a cache the body
// is fetched once and served from the cache afterwards; without one it is
// streamed.
func GetCachedReader(ctx context.Context, url string, cache *AssetCache, logPrefix string) (io.ReadCloser, error) {
	if cache == nil {
		log.Printf("%s Streaming from %s", logPrefix, url)
		resp, err := get(ctx, url)
		if err != nil {
			return nil, err
		}
		return resp.Body, nil
	}

	data, ok, err := cache.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to read cache: %w", err)
	}
	if ok {
		log.Printf("%s Using cached copy of %s", logPrefix, url)
		return io.NopCloser(bytes.NewReader(data)), nil
	}

	log.Printf("%s Downloading %s", logPrefix, url)
	resp, err := get(ctx, url)
	if err != nil {
		return nil, err // Return the error directly so caller can see ErrNotFound
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.Printf("Error closing response body: %v", err)
		}
	}()
	data, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if err := cache.Put(url, data, 0); err != nil {
		log.Printf("%s Failed to cache %s: %v", logPrefix, url, err)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}
