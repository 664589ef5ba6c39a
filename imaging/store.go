package imaging

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Store persists generated images as PNG files under a root directory.
// Saved files are served by the static file layer; Save returns a locator
// relative to the root which BuildURL turns into a client-reachable URL.
type Store struct {
	root string
}

// NewStore creates the output root if needed and returns a Store over it.
func NewStore(root string) (*Store, error) {
	if root == "" {
		return nil, fmt.Errorf("imaging: output root cannot be empty")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("imaging: failed to create output root: %w", err)
	}
	return &Store{root: root}, nil
}

// Save writes img as a PNG with a random name and returns its locator
// relative to the store root (e.g. "3f1a....png").
func (s *Store) Save(img image.Image) (string, error) {
	name := uuid.New().String() + ".png"
	path := filepath.Join(s.root, name)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("imaging: failed to create image file: %w", err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		// Don't leave a truncated file behind on encode failure.
		os.Remove(path)
		return "", fmt.Errorf("imaging: failed to encode image file: %w", err)
	}

	return name, nil
}

// Root returns the store's output root directory.
func (s *Store) Root() string {
	return s.root
}

// BuildURL joins a base URL, the static-serving prefix and a locator into
// the URL a client can fetch the image from.
func BuildURL(baseURL, staticPrefix, locator string) string {
	base := strings.TrimRight(baseURL, "/")
	prefix := "/" + strings.Trim(staticPrefix, "/")
	return base + prefix + "/" + strings.TrimLeft(locator, "/")
}
