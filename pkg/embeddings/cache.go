package embeddings

import (
	"bytes"
	"crypto/sha1" //nolint:gosec
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// vectorCache memoizes embeddings keyed by (model, language, text).
// Re-embedding identical text is idempotent, so hits are always safe.
// The in-memory map is always on; set dir to add a disk layer that
// survives across runs.
type vectorCache struct {
	mu      sync.RWMutex
	m       map[string][]float32
	dir     string
	modelID string
}

func newVectorCache(dir, modelID string) *vectorCache {
	return &vectorCache{m: make(map[string][]float32), dir: dir, modelID: modelID}
}

func (c *vectorCache) key(language, text string) string {
	h := sha1.Sum([]byte(c.modelID + "|" + language + "|" + text)) //nolint:gosec
	return hex.EncodeToString(h[:])
}

func (c *vectorCache) get(key string) ([]float32, bool) {
	c.mu.RLock()
	v, ok := c.m[key]
	c.mu.RUnlock()
	if ok {
		return v, true
	}
	v, ok, err := c.load(key)
	if err != nil {
		log.Warnf("vector cache read failed: %v", err)
		return nil, false
	}
	if ok {
		c.put(key, v)
	}
	return v, ok
}

func (c *vectorCache) put(key string, v []float32) {
	c.mu.Lock()
	c.m[key] = v
	c.mu.Unlock()
	if err := c.save(key, v); err != nil {
		log.Warnf("vector cache write failed: %v", err)
	}
}

func (c *vectorCache) load(key string) ([]float32, bool, error) {
	if c.dir == "" {
		return nil, false, nil
	}
	path := filepath.Join(c.dir, key+".bin")
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}
	if len(data) < 4 {
		return nil, false, fmt.Errorf("cache file broken: %s", path)
	}
	length := binary.LittleEndian.Uint32(data[:4])
	need := int(length) * 4
	if len(data) < 4+need {
		return nil, false, fmt.Errorf("cache truncated: %s", path)
	}
	vec := make([]float32, int(length))
	if err := binary.Read(bytes.NewReader(data[4:4+need]), binary.LittleEndian, vec); err != nil {
		return nil, false, err
	}
	return vec, true, nil
}

func (c *vectorCache) save(key string, v []float32) error {
	if c.dir == "" {
		return nil
	}
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(c.dir, key+".bin")
	buf := &bytes.Buffer{}
	_ = binary.Write(buf, binary.LittleEndian, uint32(len(v)))
	if err := binary.Write(buf, binary.LittleEndian, v); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}
