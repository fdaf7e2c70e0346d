// Package dal is the document access layer: it reads document files into
// ordered raw block sequences with style metadata, applies mutation commands,
// and saves results. All file I/O and binary format handling lives here; the
// engines above it only ever see raw blocks.
package dal

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
)

var (
	// ErrUnsupportedFormat is returned for file extensions no backend handles.
	ErrUnsupportedFormat = errors.New("unsupported file format")
	// ErrReadOnlyFormat is returned when mutations are applied to a format
	// that can only be read.
	ErrReadOnlyFormat = errors.New("format is read-only")
)

// Backend reads a document file into a raw block sequence.
type Backend interface {
	ReadFile(path string) ([]RawBlock, error)
}

// SupportedExtensions lists file extensions the store can handle.
var SupportedExtensions = map[string]bool{
	".txt":  true,
	".md":   true,
	".csv":  true,
	".html": true,
	".htm":  true,
	".pdf":  true,
	".docx": true,
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	return SupportedExtensions[strings.ToLower(filepath.Ext(filename))]
}

// Handle is an open document. It caches the raw block sequence and, for
// writable formats, the parsed file state needed to save changes.
type Handle struct {
	Path   string
	Format string

	blocks []RawBlock
	docx   *docxFile // non-nil for .docx
	dirty  bool
}

// Store opens, reads, mutates, and saves document files. Access to each
// path is serialized with a per-path lock so concurrent requests cannot
// interleave a read with a half-written save.
type Store struct {
	mu       sync.Mutex
	locks    map[string]*sync.Mutex
	pdfer    *PDFBackend
	basePath string
}

// NewStore creates a store. Relative paths passed to Open resolve against
// basePath when it is non-empty.
func NewStore(basePath string, pdfFallback bool) *Store {
	return &Store{
		locks:    make(map[string]*sync.Mutex),
		pdfer:    &PDFBackend{FallbackPdftotext: pdfFallback},
		basePath: basePath,
	}
}

// Resolve expands a possibly relative path against the store's base path.
func (s *Store) Resolve(path string) string {
	if path == "" || filepath.IsAbs(path) || s.basePath == "" {
		return path
	}
	return filepath.Join(s.basePath, path)
}

func (s *Store) pathLock(path string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[path]
	if !ok {
		l = &sync.Mutex{}
		s.locks[path] = l
	}
	return l
}

func (s *Store) backendFor(path string) (Backend, string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".txt":
		return &TextBackend{}, "txt", nil
	case ".md", ".markdown":
		return &MarkdownBackend{}, "md", nil
	case ".csv":
		return &CSVBackend{}, "csv", nil
	case ".html", ".htm":
		return &HTMLBackend{}, "html", nil
	case ".pdf":
		return s.pdfer, "pdf", nil
	case ".docx":
		return nil, "docx", nil // handled natively, not via Backend
	}
	return nil, "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
}

// Open reads the document at path and returns a handle over its content.
// The read happens under the path lock; the returned handle is a private
// snapshot and needs no further locking.
func (s *Store) Open(path string) (*Handle, error) {
	path = s.Resolve(path)
	lock := s.pathLock(path)
	lock.Lock()
	defer lock.Unlock()

	backend, format, err := s.backendFor(path)
	if err != nil {
		return nil, err
	}

	h := &Handle{Path: path, Format: format}
	if format == "docx" {
		df, err := openDocx(path)
		if err != nil {
			return nil, err
		}
		h.docx = df
		h.blocks = df.rawBlocks()
		return h, nil
	}

	blocks, err := backend.ReadFile(path)
	if err != nil {
		return nil, err
	}
	h.blocks = blocks
	return h, nil
}

// Read returns the ordered raw block list for an open handle.
func (s *Store) Read(h *Handle) []RawBlock {
	return h.blocks
}

// ApplyMutations applies the given commands in order. Either all commands
// apply or none do: commands are validated against the current block
// sequence before the first one is executed.
func (s *Store) ApplyMutations(h *Handle, muts []Mutation) error {
	if h.docx == nil {
		return fmt.Errorf("%w: %s", ErrReadOnlyFormat, h.Format)
	}
	for i, m := range muts {
		if err := h.docx.validate(m); err != nil {
			return fmt.Errorf("mutation %d: %w", i, err)
		}
	}
	for _, m := range muts {
		h.docx.apply(m)
	}
	h.blocks = h.docx.rawBlocks()
	h.dirty = true
	return nil
}

// Close releases the handle, saving back to its path when requested.
func (s *Store) Close(h *Handle, save bool) error {
	if !save || !h.dirty {
		return nil
	}
	return s.SaveAs(h, h.Path)
}

// SaveAs writes the handle's current content to outPath. Only docx handles
// can be saved; read-only formats must go through the export path instead.
func (s *Store) SaveAs(h *Handle, outPath string) error {
	if h.docx == nil {
		return fmt.Errorf("%w: %s", ErrReadOnlyFormat, h.Format)
	}
	outPath = s.Resolve(outPath)
	lock := s.pathLock(outPath)
	lock.Lock()
	defer lock.Unlock()
	return h.docx.save(outPath)
}

// Create writes a new empty document at path. Supported: .docx, .txt.
func (s *Store) Create(path string) error {
	path = s.Resolve(path)
	lock := s.pathLock(path)
	lock.Lock()
	defer lock.Unlock()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".docx":
		return createEmptyDocx(path)
	case ".txt":
		return createEmptyFile(path)
	}
	return fmt.Errorf("%w: create supports .docx and .txt", ErrUnsupportedFormat)
}

// ModifiedPath derives the default output path for a rewrite:
// base_modified.ext next to the original.
func ModifiedPath(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "_modified" + ext
}
