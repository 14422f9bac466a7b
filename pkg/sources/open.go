package sources

import (
	"bytes"
	"context"
	"io"
	"os"

	"github.com/sudorandom/mtr-history/pkg/utils"
)

// Open returns a reader for location: an http(s) URL goes through the cache,
// anything else is a local path. An empty location yields fallback.
func Open(ctx context.Context, location string, fallback []byte, cache *utils.AssetCache, logPrefix string) (io.ReadCloser, error) {
	switch {
	case location == "":
		return io.NopCloser(bytes.NewReader(fallback)), nil
	case utils.IsURL(location):
		return utils.GetCachedReader(ctx, location, cache, logPrefix)
	default:
		return os.Open(location)
	}
}
