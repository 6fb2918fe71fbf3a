package driver

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"

	"excheck/internal/config"
	"excheck/internal/diag"
	"excheck/internal/source"
	"excheck/internal/version"
)

// Current schema version - increment when DiskPayload format changes
const diskCacheSchemaVersion uint16 = 1

// Digest keys one cached run.
type Digest [32]byte

func (d Digest) String() string { return hex.EncodeToString(d[:]) }

// DiskCache stores the diagnostics of whole runs keyed by a digest of the
// inputs: every file, the configuration and the extension catalogs.
// Payloads are msgpack, compressed with zstd. Thread-safe for concurrent
// access.
type DiskCache struct {
	mu  sync.RWMutex
	dir string
}

// DiskPayload is the cached outcome of one run.
type DiskPayload struct {
	Schema uint16
	Files  []CachedFile
	Global []CachedDiagnostic // location-less diagnostics
}

type CachedFile struct {
	Path        string
	Hash        [32]byte
	Diagnostics []CachedDiagnostic
}

// CachedDiagnostic is a diagnostic with its spans reduced to offsets; the
// file is implied by the enclosing CachedFile.
type CachedDiagnostic struct {
	Code       uint16
	Severity   uint8
	Start, End uint32
	Message    string
	Properties map[string]string
	Notes      []CachedNote
}

type CachedNote struct {
	Located    bool
	Start, End uint32
	Msg        string
}

// OpenDiskCache opens the cache in dir, or in the user cache directory when
// dir is empty.
func OpenDiskCache(dir string) (*DiskCache, error) {
	if dir == "" {
		base := os.Getenv("XDG_CACHE_HOME")
		if base == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return nil, err
			}
			base = filepath.Join(home, ".cache")
		}
		dir = filepath.Join(base, "excheck")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &DiskCache{dir: dir}, nil
}

// Dir returns the cache directory.
func (c *DiskCache) Dir() string { return c.dir }

func (c *DiskCache) pathFor(key Digest) string {
	// Прогоны лежат в подкаталоге "runs", так их проще чистить.
	return filepath.Join(c.dir, "runs", key.String()+".mp.zst")
}

// Put serializes and writes a payload to the disk cache.
func (c *DiskCache) Put(key Digest, payload *DiskPayload) error {
	if c == nil || payload == nil {
		return nil
	}
	raw, err := msgpack.Marshal(payload)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return err
	}
	data := enc.EncodeAll(raw, make([]byte, 0, len(raw)/2))
	if err := enc.Close(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	p := c.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer os.Remove(tmp) // после Rename файла уже нет
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	// Атомарная замена
	return os.Rename(tmp, p)
}

// Get reads and deserializes a payload from the disk cache.
func (c *DiskCache) Get(key Digest, out *DiskPayload) (bool, error) {
	if c == nil {
		return false, nil
	}
	c.mu.RLock()
	data, err := os.ReadFile(c.pathFor(key))
	c.mu.RUnlock()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	dec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
	if err != nil {
		return false, err
	}
	defer dec.Close()
	raw, err := dec.DecodeAll(data, nil)
	if err != nil {
		return false, err
	}
	if err := msgpack.Unmarshal(raw, out); err != nil {
		return false, err
	}
	return out.Schema == diskCacheSchemaVersion, nil
}

// DropAll invalidates the cache.
func (c *DiskCache) DropAll() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	// тривиально: переименуем каталог и удалим
	old := c.dir + ".old-" + time.Now().Format("20060102150405")
	if err := os.Rename(c.dir, old); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if err := os.RemoveAll(old); err != nil {
		return err
	}
	return os.MkdirAll(c.dir, 0o755)
}

// runDigest hashes everything the diagnostics of a run depend on.
func runDigest(cfg config.Result, fileSet *source.FileSet, ids []source.FileID) Digest {
	h := sha256.New()
	var buf [4]byte
	writeString := func(s string) {
		binary.LittleEndian.PutUint32(buf[:], uint32(len(s)))
		_, _ = h.Write(buf[:])
		_, _ = h.Write([]byte(s))
	}
	binary.LittleEndian.PutUint16(buf[:2], diskCacheSchemaVersion)
	_, _ = h.Write(buf[:2])
	writeString(version.Version)

	if cfg.OK() {
		writeString("ok")
		if data, err := config.Encode(cfg.Config); err == nil {
			_, _ = h.Write(data)
		}
		for _, p := range cfg.CatalogPaths() {
			writeString(p)
			if data, err := os.ReadFile(p); err == nil {
				sum := sha256.Sum256(data)
				_, _ = h.Write(sum[:])
			}
		}
	} else {
		writeString("failed")
		writeString(cfg.Err.Error())
	}

	for _, id := range ids {
		f := fileSet.Get(id)
		writeString(f.Path)
		_, _ = h.Write(f.Hash[:])
	}
	var out Digest
	copy(out[:], h.Sum(nil))
	return out
}

func newPayload(res *Result) *DiskPayload {
	p := &DiskPayload{
		Schema: diskCacheSchemaVersion,
		Files:  make([]CachedFile, len(res.Files)),
	}
	for i, f := range res.Files {
		cf := CachedFile{Path: f.Path, Hash: res.FileSet.Get(f.File).Hash}
		for _, d := range f.Diagnostics {
			cf.Diagnostics = append(cf.Diagnostics, toCached(d))
		}
		p.Files[i] = cf
	}
	for _, d := range res.Bag.Items() {
		if !d.Located() {
			p.Global = append(p.Global, toCached(d))
		}
	}
	return p
}

func toCached(d diag.Diagnostic) CachedDiagnostic {
	cd := CachedDiagnostic{
		Code:       uint16(d.Code),
		Severity:   uint8(d.Severity),
		Start:      d.Primary.Start,
		End:        d.Primary.End,
		Message:    d.Message,
		Properties: d.Properties,
	}
	for _, n := range d.Notes {
		cd.Notes = append(cd.Notes, CachedNote{Located: n.Span.IsValid(), Start: n.Span.Start, End: n.Span.End, Msg: n.Msg})
	}
	return cd
}

func (cd CachedDiagnostic) restore(file source.FileID) diag.Diagnostic {
	span := func(located bool, start, end uint32) source.Span {
		if !located {
			return source.NoSpan
		}
		return source.Span{File: file, Start: start, End: end}
	}
	d := diag.Diagnostic{
		Code:       diag.Code(cd.Code),
		Severity:   diag.Severity(cd.Severity),
		Message:    cd.Message,
		Primary:    span(file != source.NoFileID, cd.Start, cd.End),
		Properties: cd.Properties,
	}
	if d.Properties == nil {
		d.Properties = map[string]string{}
	}
	for _, n := range cd.Notes {
		d.Notes = append(d.Notes, diag.Note{Span: span(n.Located, n.Start, n.End), Msg: n.Msg})
	}
	return d
}

// restore rebuilds a Result from the payload. It reports false when the
// payload does not describe exactly the loaded files.
func (p *DiskPayload) restore(fileSet *source.FileSet, ids []source.FileID, limit int) (*Result, bool) {
	if p.Schema != diskCacheSchemaVersion || len(p.Files) != len(ids) {
		return nil, false
	}
	res := &Result{
		FileSet: fileSet,
		Files:   make([]FileResult, len(ids)),
		Cached:  true,
	}
	for i, id := range ids {
		f := fileSet.Get(id)
		cf := p.Files[i]
		if cf.Path != f.Path || cf.Hash != f.Hash {
			return nil, false
		}
		fr := FileResult{Path: f.Path, File: id}
		for _, cd := range cf.Diagnostics {
			fr.Diagnostics = append(fr.Diagnostics, cd.restore(id))
		}
		res.Files[i] = fr
	}
	global := make([]diag.Diagnostic, 0, len(p.Global))
	for _, cd := range p.Global {
		global = append(global, cd.restore(source.NoFileID))
	}
	res.Bag = collect(global, res.Files, limit)
	return res, true
}
