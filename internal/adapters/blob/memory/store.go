// Package memory es un blob store en proceso para dev y tests.
package memory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"
)

var ErrExists = errors.New("blob already exists")

type object struct {
	body        []byte
	contentType string
}

type Store struct {
	mu      sync.RWMutex
	objects map[string]object
	baseURL string
}

// New crea un store que arma URLs públicas como baseURL/<key>.
func New(baseURL string) *Store {
	return &Store{
		objects: make(map[string]object),
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Upload es create-only: una key nunca se sobrescribe.
func (s *Store) Upload(ctx context.Context, key, contentType string, r io.Reader) (string, error) {
	key = strings.TrimLeft(strings.TrimSpace(key), "/")
	if key == "" {
		return "", errors.New("blob key required")
	}
	body, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read blob: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[key]; ok {
		return "", fmt.Errorf("%w: %s", ErrExists, key)
	}
	s.objects[key] = object{body: body, contentType: contentType}
	return s.PublicURL(key), nil
}

func (s *Store) PublicURL(key string) string {
	return s.baseURL + "/" + (&url.URL{Path: key}).EscapedPath()
}

// Get devuelve el contenido guardado (tests y /media en dev).
func (s *Store) Get(key string) ([]byte, string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.objects[key]
	if !ok {
		return nil, "", false
	}
	return append([]byte(nil), o.body...), o.contentType, true
}
