package spectrogram

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/chase3718/animatronic/internal/audio"
	"github.com/chase3718/animatronic/internal/worker"
)

// Cache layout under the root directory.
const (
	DefaultDir      = "default"
	RecentDir       = "recent"
	MatrixFile      = "spectrogram.xz"
	RatiosFile      = "ratios.json"
	hashChunkSize   = 8192
	tmpFilePattern  = ".tmp-*"
	archiveFileMode = 0o644
)

var (
	// ErrCacheMiss: nothing persisted yet for a content id.
	ErrCacheMiss = errors.New("spectrogram cache miss")
	// ErrCacheCorrupt: persisted files exist but cannot be used.
	ErrCacheCorrupt = errors.New("spectrogram cache corrupt")
	// ErrSourceRead: the audio file itself could not be read or decoded.
	ErrSourceRead = errors.New("audio source unreadable")
)

// Decoder turns an audio file into mono samples.
type Decoder interface {
	Decode(ctx context.Context, path string) (samples []float64, sampleRate int, err error)
}

type result struct {
	spec      *Spectrogram
	cached    bool
	persisted <-chan struct{}
}

// Cache computes spectrograms, keyed by the content hash of the file, and
// persists them under Root so repeated loads skip the transform.
type Cache struct {
	root     string
	decoder  Decoder
	analyzer *Analyzer
	pool     *worker.Pool
	logger   *slog.Logger

	group    singleflight.Group
	analyses atomic.Int64

	mu      sync.Mutex
	writing map[string]*result // analysed, cache write still running
}

// NewCache creates a cache rooted at root. Background writes run on pool.
func NewCache(root string, dec Decoder, pool *worker.Pool, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{
		root:     root,
		decoder:  dec,
		analyzer: NewAnalyzer(),
		pool:     pool,
		logger:   logger.With("component", "spectrogram"),
		writing:  make(map[string]*result),
	}
}

// Root returns the cache root directory.
func (c *Cache) Root() string { return c.root }

// Dir returns the cache directory of a content id (or DefaultDir).
func (c *Cache) Dir(contentID string) string {
	return filepath.Join(c.root, contentID)
}

// Analyses counts how many times the expensive transform has run.
func (c *Cache) Analyses() int64 { return c.analyses.Load() }

// Compute loads path synchronously and returns the finished track.
func (c *Cache) Compute(ctx context.Context, path string) (*Track, error) {
	t := NewTrack(path)
	err := c.Load(ctx, t)
	return t, err
}

// Load fills t from the cache or by analysing the file, then clears its
// loading flag. Concurrent loads of identical content share one analysis.
// Only ErrSourceRead failures are returned; cache problems fall back to
// recomputation.
func (c *Cache) Load(ctx context.Context, t *Track) (err error) {
	defer func() { t.finish(err) }()

	id, err := HashFile(t.Path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSourceRead, err)
	}
	t.contentID = id
	t.title = audio.Title(t.Path)

	v, err, shared := c.group.Do(id, func() (any, error) {
		return c.resolve(ctx, t.Path, id)
	})
	if err != nil {
		return err
	}
	res := v.(*result)
	if shared {
		c.logger.Debug("spectrogram: joined in-flight load", "id", id)
	}

	t.spec = res.spec
	t.persisted = res.persisted
	t.cached.Store(res.cached)
	return nil
}

func (c *Cache) resolve(ctx context.Context, path, id string) (*result, error) {
	dir := c.Dir(id)

	c.mu.Lock()
	res, ok := c.writing[id]
	c.mu.Unlock()
	if ok {
		c.logger.Debug("spectrogram: reusing analysis awaiting its cache write", "id", id)
		return res, nil
	}

	spec, err := c.read(dir)
	if err == nil {
		c.logger.Info("spectrogram: loaded from cache", "id", id, "dir", dir)
		return &result{spec: spec, cached: true, persisted: closedChan}, nil
	}
	c.logger.Warn("spectrogram: no usable cache, generating", "id", id, "reason", err)

	samples, rate, err := c.decoder.Decode(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSourceRead, err)
	}
	spec, err = c.analyzer.Analyze(samples, rate)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSourceRead, err)
	}
	c.analyses.Add(1)

	freqBins, timeBins := spec.Bins()
	c.logger.Info("spectrogram: analysed", "id", id, "freq_bins", freqBins, "time_bins", timeBins,
		"time_index_ratio", spec.TimeIndexRatio, "frequency_index_ratio", spec.FrequencyIndexRatio)

	done := make(chan struct{})
	res = &result{spec: spec, persisted: done}
	c.mu.Lock()
	c.writing[id] = res
	c.mu.Unlock()

	c.pool.Go("cache "+id, func() {
		defer close(done)
		defer func() {
			c.mu.Lock()
			delete(c.writing, id)
			c.mu.Unlock()
		}()
		if err := c.persist(dir, path, id, spec); err != nil {
			c.logger.Error("spectrogram: cache write failed", "id", id, "err", err)
		}
	})
	return res, nil
}

// read loads a persisted analysis. Missing files give ErrCacheMiss, anything
// unreadable gives ErrCacheCorrupt.
func (c *Cache) read(dir string) (*Spectrogram, error) {
	mf, err := os.Open(filepath.Join(dir, MatrixFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("%w: %w", ErrCacheCorrupt, err)
	}
	defer mf.Close()

	rf, err := os.Open(filepath.Join(dir, RatiosFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("%w: %w", ErrCacheCorrupt, err)
	}
	defer rf.Close()

	m, err := DecodeMatrix(mf)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCacheCorrupt, MatrixFile, err)
	}
	r, err := DecodeRatios(rf)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCacheCorrupt, RatiosFile, err)
	}
	return &Spectrogram{
		Decibels:            m,
		TimeIndexRatio:      r.TimeIndexRatio,
		FrequencyIndexRatio: r.FrequencyIndexRatio,
	}, nil
}

func (c *Cache) persist(dir, src, id string, spec *Spectrogram) error {
	freqBins, timeBins := spec.Bins()
	if err := checkShape(freqBins, timeBins); err != nil {
		c.logger.Warn("spectrogram: too large to cache, keeping it in memory only", "id", id, "err", err)
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	err := writeAtomic(dir, MatrixFile, func(w io.Writer) error {
		return EncodeMatrix(w, spec.Decibels)
	})
	if err != nil {
		return fmt.Errorf("write %s: %w", MatrixFile, err)
	}
	err = writeAtomic(dir, RatiosFile, func(w io.Writer) error {
		return EncodeRatios(w, Ratios{
			TimeIndexRatio:      spec.TimeIndexRatio,
			FrequencyIndexRatio: spec.FrequencyIndexRatio,
		})
	})
	if err != nil {
		return fmt.Errorf("write %s: %w", RatiosFile, err)
	}
	c.logger.Info("spectrogram: cached", "id", id, "dir", dir)

	if err := c.archive(src, id); err != nil {
		c.logger.Warn("spectrogram: archive to recent failed", "src", src, "err", err)
	}
	return nil
}

// archive copies the source file into the recent directory.
func (c *Cache) archive(src, id string) error {
	recent := filepath.Join(c.root, RecentDir)
	if err := os.MkdirAll(recent, 0o755); err != nil {
		return err
	}
	dst := filepath.Join(recent, filepath.Base(src))

	if dstInfo, err := os.Stat(dst); err == nil {
		srcInfo, err := os.Stat(src)
		if err == nil && os.SameFile(srcInfo, dstInfo) {
			c.logger.Warn("spectrogram: file is already in recent directory", "file", src)
			return nil
		}
		if h, err := HashFile(dst); err == nil && h == id {
			c.logger.Warn("spectrogram: identical file already in recent directory", "file", dst)
			return nil
		}
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	err = writeAtomic(recent, filepath.Base(src), func(w io.Writer) error {
		_, err := io.Copy(w, in)
		return err
	})
	if err != nil {
		return err
	}
	c.logger.Info("spectrogram: copied to recent directory", "file", src, "dst", dst)
	return nil
}

// HashFile returns the hex MD5 digest of the file's contents, read in
// fixed-size chunks.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := md5.New()
	buf := make([]byte, hashChunkSize)
	for {
		n, err := f.Read(buf)
		h.Write(buf[:n])
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// writeAtomic writes name in dir through a temp file and a rename, so
// readers never observe a partial file.
func writeAtomic(dir, name string, fill func(io.Writer) error) error {
	tmp, err := os.CreateTemp(dir, name+tmpFilePattern)
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := fill(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(archiveFileMode); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), filepath.Join(dir, name))
}
