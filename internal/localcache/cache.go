package localcache

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"pkt.systems/kryptograf"
	"pkt.systems/kryptograf/keymgmt"
	"pkt.systems/layoutsync/internal/persist"
	"pkt.systems/layoutsync/schema"
	"pkt.systems/pslog"
)

const (
	descriptorName = "layoutsync:cache"
	indexFile      = "index.json"

	// DefaultMaxEntries bounds the number of cached snapshots.
	DefaultMaxEntries = 8
	// DefaultMaxBytes bounds the total cached snapshot size.
	DefaultMaxBytes = 4 << 20
)

// Options configures the snapshot cache.
type Options struct {
	// Dir holds the encrypted snapshot files and the eviction index.
	Dir string
	// KeyStorePath is the kryptograf key store protecting snapshots
	// at rest.
	KeyStorePath string
	MaxEntries   int
	MaxBytes     int64
	Logger       pslog.Logger
}

// Cache stores the last known device configuration per device type,
// encrypted at rest, with a size ceiling and least-recently-used
// eviction. Reset evicts every snapshot but keeps the key store: a
// scoped clean-state capability rather than a wholesale storage clear.
type Cache struct {
	dir        string
	storePath  string
	maxEntries int
	maxBytes   int64
	log        pslog.Logger
	mu         sync.Mutex
}

type indexEntry struct {
	Name    string    `json:"name"`
	Size    int64     `json:"size"`
	Touched time.Time `json:"touched"`
}

// New initializes the cache directory and ensures the key store root
// key exists.
func New(opts Options) (*Cache, error) {
	if strings.TrimSpace(opts.Dir) == "" {
		return nil, errors.New("cache directory is required")
	}
	if strings.TrimSpace(opts.KeyStorePath) == "" {
		return nil, errors.New("cache key store path is required")
	}
	if err := os.MkdirAll(opts.Dir, 0o700); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(opts.KeyStorePath), 0o700); err != nil {
		return nil, err
	}
	store, err := keymgmt.LoadProto(opts.KeyStorePath)
	if err != nil {
		return nil, err
	}
	if _, err := store.EnsureRootKey(); err != nil {
		return nil, err
	}
	if err := store.Commit(); err != nil {
		return nil, err
	}
	maxEntries := opts.MaxEntries
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	maxBytes := opts.MaxBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	logger := opts.Logger
	if logger != nil {
		logger = logger.With("cache_dir", opts.Dir)
	}
	return &Cache{
		dir:        opts.Dir,
		storePath:  opts.KeyStorePath,
		maxEntries: maxEntries,
		maxBytes:   maxBytes,
		log:        logger,
	}, nil
}

// Load reads the cached snapshot for a device type. A miss is not an
// error.
func (c *Cache) Load(deviceType schema.DeviceType) (schema.DeviceConfig, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	path := c.entryPath(string(deviceType))
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if c.log != nil {
				c.log.Debug("cache load miss", "device", deviceType)
			}
			return schema.DeviceConfig{}, false, nil
		}
		return schema.DeviceConfig{}, false, err
	}
	defer func() { _ = file.Close() }()
	material, root, err := c.material()
	if err != nil {
		return schema.DeviceConfig{}, false, err
	}
	kg := kryptograf.New(root)
	reader, err := kg.DecryptReader(file, material)
	if err != nil {
		if c.log != nil {
			c.log.Warn("cache load failed", "device", deviceType, "err", err)
		}
		return schema.DeviceConfig{}, false, err
	}
	defer func() { _ = reader.Close() }()
	plain, err := io.ReadAll(reader)
	if err != nil {
		return schema.DeviceConfig{}, false, err
	}
	var doc schema.DeviceConfig
	if err := json.Unmarshal(plain, &doc); err != nil {
		if c.log != nil {
			c.log.Warn("cache load failed", "device", deviceType, "err", err)
		}
		return schema.DeviceConfig{}, false, err
	}
	c.touch(string(deviceType))
	if c.log != nil {
		c.log.Debug("cache load ok", "device", deviceType, "tabs", len(doc.Tabs))
	}
	return doc, true, nil
}

// Store writes a snapshot for a device type and evicts least-recently
// used entries past the configured ceilings.
func (c *Cache) Store(deviceType schema.DeviceType, doc schema.DeviceConfig) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	plain, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	material, root, err := c.material()
	if err != nil {
		return err
	}
	kg := kryptograf.New(root)
	path := c.entryPath(string(deviceType))
	err = persist.Atomic(path, func(w io.Writer) error {
		writer, err := kg.EncryptWriter(w, material)
		if err != nil {
			return err
		}
		if _, err := io.Copy(writer, bytes.NewReader(plain)); err != nil {
			_ = writer.Close()
			return err
		}
		return writer.Close()
	})
	if err != nil {
		return err
	}
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	c.record(string(deviceType), info.Size())
	c.evict()
	if c.log != nil {
		c.log.Debug("cache store ok", "device", deviceType, "bytes", info.Size())
	}
	return nil
}

// Reset evicts every cached snapshot. The key store stays intact.
func (c *Cache) Reset() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	entries := c.loadIndex()
	for _, entry := range entries {
		if err := os.Remove(c.entryPath(entry.Name)); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	if err := os.Remove(filepath.Join(c.dir, indexFile)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	if c.log != nil {
		c.log.Info("cache reset", "evicted", len(entries))
	}
	return nil
}

// Entries returns the index entries ordered most recently used first.
func (c *Cache) Entries() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	entries := c.loadIndex()
	names := make([]string, len(entries))
	for i, entry := range entries {
		names[i] = entry.Name
	}
	return names
}

func (c *Cache) material() (keymgmt.Material, keymgmt.RootKey, error) {
	store, err := keymgmt.LoadProto(c.storePath)
	if err != nil {
		return keymgmt.Material{}, keymgmt.RootKey{}, err
	}
	root, err := store.EnsureRootKey()
	if err != nil {
		return keymgmt.Material{}, keymgmt.RootKey{}, err
	}
	material, err := store.EnsureDescriptor(descriptorName, root, []byte(descriptorName))
	if err != nil {
		return keymgmt.Material{}, keymgmt.RootKey{}, err
	}
	if err := store.Commit(); err != nil {
		return keymgmt.Material{}, keymgmt.RootKey{}, err
	}
	return material, root, nil
}

func (c *Cache) entryPath(name string) string {
	return filepath.Join(c.dir, sanitize(name)+".enc")
}

// loadIndex returns entries ordered most recently used first. A
// missing or corrupt index is treated as empty.
func (c *Cache) loadIndex() []indexEntry {
	data, err := os.ReadFile(filepath.Join(c.dir, indexFile))
	if err != nil {
		return nil
	}
	var entries []indexEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Touched.After(entries[j].Touched) })
	return entries
}

func (c *Cache) saveIndex(entries []indexEntry) {
	data, err := json.Marshal(entries)
	if err != nil {
		return
	}
	if err := persist.WriteFile(filepath.Join(c.dir, indexFile), data); err != nil && c.log != nil {
		c.log.Warn("cache index save failed", "err", err)
	}
}

func (c *Cache) record(name string, size int64) {
	entries := c.loadIndex()
	now := time.Now().UTC()
	for i := range entries {
		if entries[i].Name == name {
			entries[i].Size = size
			entries[i].Touched = now
			c.saveIndex(entries)
			return
		}
	}
	entries = append(entries, indexEntry{Name: name, Size: size, Touched: now})
	c.saveIndex(entries)
}

func (c *Cache) touch(name string) {
	entries := c.loadIndex()
	for i := range entries {
		if entries[i].Name == name {
			entries[i].Touched = time.Now().UTC()
			c.saveIndex(entries)
			return
		}
	}
}

// evict drops least-recently-used entries until both ceilings hold.
func (c *Cache) evict() {
	entries := c.loadIndex()
	var total int64
	for _, entry := range entries {
		total += entry.Size
	}
	kept := entries
	for len(kept) > 0 && (len(kept) > c.maxEntries || total > c.maxBytes) {
		victim := kept[len(kept)-1]
		if err := os.Remove(c.entryPath(victim.Name)); err != nil && !errors.Is(err, os.ErrNotExist) {
			if c.log != nil {
				c.log.Warn("cache evict failed", "entry", victim.Name, "err", err)
			}
			break
		}
		if c.log != nil {
			c.log.Debug("cache evicted", "entry", victim.Name, "bytes", victim.Size)
		}
		total -= victim.Size
		kept = kept[:len(kept)-1]
	}
	if len(kept) != len(entries) {
		c.saveIndex(kept)
	}
}

func sanitize(value string) string {
	var b strings.Builder
	for _, r := range value {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-' || r == '_' || r == '.':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "unknown"
	}
	return b.String()
}
