// Package local stores media bytes on the local filesystem, spread over numbered segment directories.
package local

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"strings"

	"mediabundle/internal/domain"
)

const defaultSegments = 10

// Config holds local filesystem backend settings.
type Config struct {
	RootPath   string
	Segments   int
	CreateDirs bool
}

type options struct {
	Segment  string `json:"segment"`
	FileName string `json:"fileName"`
}

// Storage implements the media storage gateway on a directory tree.
type Storage struct {
	rootPath   string
	segments   int
	createDirs bool
	pick       func(n int) int
}

// New creates a local storage rooted at cfg.RootPath.
func New(cfg Config) (*Storage, error) {
	if cfg.RootPath == "" {
		return nil, fmt.Errorf("root path is required")
	}
	if cfg.Segments <= 0 {
		cfg.Segments = defaultSegments
	}

	info, err := os.Stat(cfg.RootPath)
	if err != nil {
		if os.IsNotExist(err) && cfg.CreateDirs {
			if mkErr := os.MkdirAll(cfg.RootPath, 0755); mkErr != nil {
				return nil, fmt.Errorf("create root path %s: %w", cfg.RootPath, mkErr)
			}
		} else {
			return nil, fmt.Errorf("stat root path %s: %w", cfg.RootPath, err)
		}
	} else if !info.IsDir() {
		return nil, fmt.Errorf("root path %s is not a directory", cfg.RootPath)
	}

	return &Storage{
		rootPath:   cfg.RootPath,
		segments:   cfg.Segments,
		createDirs: cfg.CreateDirs,
		pick:       rand.Intn,
	}, nil
}

// Save copies sourcePath into a segment directory. A previous token pins the segment.
func (s *Storage) Save(_ context.Context, sourcePath, fileName string, _ int, previous domain.StorageOptions) (domain.StorageOptions, error) {
	segment := fmt.Sprintf("%02d", s.pick(s.segments)+1)
	if previous != "" {
		prev, err := decode(previous)
		if err != nil {
			return "", err
		}
		segment = prev.Segment
	}

	dir := filepath.Join(s.rootPath, segment)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create segment %s: %w", segment, err)
	}

	tmpName, err := copyToTemp(sourcePath, dir)
	if err != nil {
		return "", err
	}
	defer os.Remove(tmpName)

	name, err := linkUnique(tmpName, dir, filepath.Base(fileName))
	if err != nil {
		return "", err
	}

	raw, err := json.Marshal(options{Segment: segment, FileName: name})
	if err != nil {
		return "", fmt.Errorf("encode storage options: %w", err)
	}
	return domain.StorageOptions(raw), nil
}

// Remove deletes the file behind token. A file that is already gone is not an error.
func (s *Storage) Remove(_ context.Context, token domain.StorageOptions) error {
	opts, err := decode(token)
	if err != nil {
		return err
	}
	err = os.Remove(filepath.Join(s.rootPath, opts.Segment, opts.FileName))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete %s/%s: %w", opts.Segment, opts.FileName, err)
	}
	return nil
}

// Path resolves a token to the absolute file path.
func (s *Storage) Path(token domain.StorageOptions) (string, error) {
	opts, err := decode(token)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.rootPath, opts.Segment, opts.FileName), nil
}

func decode(token domain.StorageOptions) (options, error) {
	var opts options
	if err := json.Unmarshal([]byte(token), &opts); err != nil {
		return opts, fmt.Errorf("parse storage options %q: %w", token, err)
	}
	if !plainName(opts.Segment) || !plainName(opts.FileName) {
		return opts, fmt.Errorf("invalid storage options %q", token)
	}
	return opts, nil
}

func plainName(name string) bool {
	return name != "" && name != "." && name != ".." && name == filepath.Base(name)
}

// linkUnique links tmpName into dir under fileName, appending -1, -2, ... before the
// extension until a link succeeds. The link fails on an existing name, so concurrent
// saves never claim the same one.
func linkUnique(tmpName, dir, fileName string) (string, error) {
	ext := filepath.Ext(fileName)
	base := strings.TrimSuffix(fileName, ext)
	candidate := fileName
	for i := 1; ; i++ {
		err := os.Link(tmpName, filepath.Join(dir, candidate))
		if err == nil {
			return candidate, nil
		}
		if !os.IsExist(err) {
			return "", fmt.Errorf("link %s: %w", candidate, err)
		}
		candidate = fmt.Sprintf("%s-%d%s", base, i, ext)
	}
}

// copyToTemp writes src to a temp file in dir and returns its path.
func copyToTemp(src, dir string) (string, error) {
	in, err := os.Open(src)
	if err != nil {
		return "", fmt.Errorf("open source %s: %w", src, err)
	}
	defer in.Close()

	tmp, err := os.CreateTemp(dir, ".media-*.tmp")
	if err != nil {
		return "", fmt.Errorf("create temp in %s: %w", dir, err)
	}
	tmpName := tmp.Name()

	if _, err := io.Copy(tmp, in); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("write %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("close %s: %w", tmpName, err)
	}
	return tmpName, nil
}
