package export

import (
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"io"
	"os"
	"path/filepath"

	"github.com/davidleathers/dce-fixture-synth/internal/domain/errors"
)

// FileInfo describes one committed output file
type FileInfo struct {
	Name   string `json:"name"`
	Format string `json:"format"`
	Rows   int    `json:"rows"`
	Bytes  int64  `json:"bytes"`
	SHA256 string `json:"sha256"`
	Path   string `json:"-"`
}

// Staging collects output files as temporaries in the target directory and
// publishes them together. Nothing is visible under its final name until Commit.
type Staging struct {
	dir   string
	files []*StagedFile
}

// StagedFile is a temp file that hashes everything written to it
type StagedFile struct {
	info   FileInfo
	tmp    *os.File
	hash   hash.Hash
	out    io.Writer
	closed bool
}

// NewStaging prepares dir, creating it when missing
func NewStaging(dir string) (*Staging, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.NewSinkError(dir, "cannot create output directory").WithCause(err)
	}
	return &Staging{dir: dir}, nil
}

// Dir returns the target directory
func (s *Staging) Dir() string {
	return s.dir
}

// Create opens a temp file that Commit will rename to name
func (s *Staging) Create(name, format string, rows int) (*StagedFile, error) {
	tmp, err := os.CreateTemp(s.dir, "."+name+".tmp-*")
	if err != nil {
		return nil, errors.NewSinkError(name, "cannot create file").WithCause(err)
	}
	h := sha256.New()
	f := &StagedFile{
		info: FileInfo{
			Name:   name,
			Format: format,
			Rows:   rows,
			Path:   filepath.Join(s.dir, name),
		},
		tmp:  tmp,
		hash: h,
		out:  io.MultiWriter(tmp, h),
	}
	s.files = append(s.files, f)
	return f, nil
}

// Write implements io.Writer
func (f *StagedFile) Write(p []byte) (int, error) {
	n, err := f.out.Write(p)
	f.info.Bytes += int64(n)
	if err != nil {
		return n, errors.NewSinkError(f.info.Name, "write failed").WithCause(err)
	}
	return n, nil
}

// Close syncs and closes the temp file; it is safe to call twice
func (f *StagedFile) Close() error {
	if f.closed {
		return nil
	}
	f.closed = true
	if err := f.tmp.Sync(); err != nil {
		f.tmp.Close()
		return errors.NewSinkError(f.info.Name, "sync failed").WithCause(err)
	}
	if err := f.tmp.Close(); err != nil {
		return errors.NewSinkError(f.info.Name, "close failed").WithCause(err)
	}
	f.info.SHA256 = hex.EncodeToString(f.hash.Sum(nil))
	return nil
}

// Files returns what has been staged so far, in creation order
func (s *Staging) Files() []FileInfo {
	out := make([]FileInfo, 0, len(s.files))
	for _, f := range s.files {
		out = append(out, f.info)
	}
	return out
}

// Commit closes and renames every staged file into place. On the first failure the
// remaining temps are removed and the error names the file.
func (s *Staging) Commit() ([]FileInfo, error) {
	for _, f := range s.files {
		if err := f.Close(); err != nil {
			s.Abort()
			return nil, err
		}
	}
	committed := make([]FileInfo, 0, len(s.files))
	for i, f := range s.files {
		if err := os.Rename(f.tmp.Name(), f.info.Path); err != nil {
			s.files = s.files[i:]
			s.Abort()
			return nil, errors.NewSinkError(f.info.Name, "rename failed").WithCause(err)
		}
		committed = append(committed, f.info)
	}
	s.files = nil
	return committed, nil
}

// Abort discards every uncommitted temp file
func (s *Staging) Abort() {
	for _, f := range s.files {
		if !f.closed {
			f.closed = true
			f.tmp.Close()
		}
		os.Remove(f.tmp.Name())
	}
	s.files = nil
}
