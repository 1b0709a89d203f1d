package classpath

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
)

// File extension of class sources.
const classExt = ".sh"

// One resolved classpath location.
type layer struct {
	location string    // Location as listed in the spec.
	fsys     fs.FS     // Read-only view of the location's contents.
	closer   io.Closer // Releases the layer, nil when nothing to release.
}

// Read-only union of the resolved classpath locations.
//
// Lookups consult layers in spec order and never reach the host filesystem.
// A scope is safe for concurrent reads.
type Scope struct {
	layers []layer
}

// A class located in a scope.
type Class struct {
	Name     string // Dotted class name (e.g., "com.example.Main").
	Path     string // Slash-separated path inside the layer.
	Location string // Classpath location the class was found in.
	Source   []byte // Class source.
}

// Opens every location of the spec.
//
// Locations that do not exist are skipped, matching how a class loader
// treats dangling classpath entries. Locations that exist but cannot be read
// fail the whole scope. If no location resolves, a [ResolutionError] is
// returned.
func Open(spec Spec) (*Scope, error) {
	s := &Scope{}

	for _, location := range spec {
		l, err := openLayer(location)
		if err != nil {
			s.Close()
			return nil, err
		}
		if l == nil {
			slog.Debug("skipping missing classpath entry", "location", location)
			continue
		}
		s.layers = append(s.layers, *l)
	}

	if len(s.layers) == 0 {
		return nil, &ResolutionError{Classpath: spec.String(), Reason: "no entry could be located"}
	}

	return s, nil
}

// Opens a single location, returning nil when it does not exist.
func openLayer(location string) (*layer, error) {
	info, err := os.Stat(location)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrArchive, err)
	}

	if info.IsDir() {
		return &layer{location: location, fsys: os.DirFS(location)}, nil
	}

	switch name := strings.ToLower(location); {
	case strings.HasSuffix(name, ".jar"), strings.HasSuffix(name, ".zip"):
		rc, err := zip.OpenReader(location)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrArchive, location, err)
		}
		return &layer{location: location, fsys: rc, closer: rc}, nil

	case strings.HasSuffix(name, ".tar"), strings.HasSuffix(name, ".tar.gz"), strings.HasSuffix(name, ".tgz"):
		dir, err := unpackTar(location, !strings.HasSuffix(name, ".tar"))
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrArchive, location, err)
		}
		return &layer{location: location, fsys: os.DirFS(dir), closer: removeDir(dir)}, nil
	}

	slog.Debug("skipping unsupported classpath entry", "location", location)
	return nil, nil
}

// Unpacks a tar archive into a fresh temporary directory.
//
// Only regular files and directories are extracted. Entries that would
// escape the directory are rejected.
func unpackTar(location string, compressed bool) (string, error) {
	fh, err := os.Open(location)
	if err != nil {
		return "", err
	}
	defer fh.Close()

	var r io.Reader = fh
	if compressed {
		zr, err := gzip.NewReader(fh)
		if err != nil {
			return "", err
		}
		defer zr.Close()
		r = zr
	}

	dir, err := os.MkdirTemp("", "tackd-classpath-*")
	if err != nil {
		return "", err
	}

	if err := extract(tar.NewReader(r), dir); err != nil {
		os.RemoveAll(dir)
		return "", err
	}

	return dir, nil
}

func extract(tr *tar.Reader, dir string) error {
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		name := path.Clean(strings.TrimPrefix(hdr.Name, "./"))
		if !filepath.IsLocal(name) {
			return fmt.Errorf("entry %q escapes the archive root", hdr.Name)
		}
		target := filepath.Join(dir, filepath.FromSlash(name))

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := writeFile(target, tr); err != nil {
				return err
			}
		}
	}
}

func writeFile(target string, r io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

type removeDir string

func (d removeDir) Close() error { return os.RemoveAll(string(d)) }

// Returns the locations that resolved, in lookup order.
func (s *Scope) Locations() []string {
	locations := make([]string, len(s.layers))
	for i, l := range s.layers {
		locations[i] = l.location
	}
	return locations
}

// Opens a file from the first layer that has it.
//
// Implements [fs.FS].
func (s *Scope) Open(name string) (fs.File, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrInvalid}
	}
	for _, l := range s.layers {
		f, err := l.fsys.Open(name)
		if err == nil {
			return f, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}
	return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
}

// Finds a class by its dotted name.
//
// Returns [ErrClassNotFound] when no layer has the class source.
func (s *Scope) Lookup(name string) (*Class, error) {
	p, err := ClassPath(name)
	if err != nil {
		return nil, err
	}

	for _, l := range s.layers {
		src, err := fs.ReadFile(l.fsys, p)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrArchive, l.location, err)
		}
		return &Class{Name: name, Path: p, Location: l.location, Source: src}, nil
	}

	return nil, fmt.Errorf("%w: %s", ErrClassNotFound, name)
}

// Releases archive handles and unpacked directories.
func (s *Scope) Close() error {
	var result *multierror.Error
	for _, l := range s.layers {
		if l.closer == nil {
			continue
		}
		if err := l.closer.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	s.layers = nil
	return result.ErrorOrNil()
}

// Maps a dotted class name to its source path.
//
// "com.example.Main" becomes "com/example/Main.sh".
func ClassPath(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("%w: empty name", ErrInvalidClass)
	}
	parts := strings.Split(name, ".")
	for _, part := range parts {
		if part == "" || strings.ContainsAny(part, `/\`) {
			return "", fmt.Errorf("%w: %q", ErrInvalidClass, name)
		}
	}
	p := path.Join(parts...) + classExt
	if !fs.ValidPath(p) {
		return "", fmt.Errorf("%w: %q", ErrInvalidClass, name)
	}
	return p, nil
}
