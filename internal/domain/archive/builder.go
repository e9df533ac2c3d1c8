package archive

import (
	"archive/tar"
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
)

// DefaultBaseName is the download name used when none is configured
const DefaultBaseName = "CodeCanvasProject"

// Format is an archive container and compression combination
type Format string

const (
	Zip    Format = "zip"
	TarGz  Format = "tar.gz"
	TarZst Format = "tar.zst"
)

// ParseFormat resolves a user-supplied format name. Empty means Zip.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ".")) {
	case "", "zip":
		return Zip, nil
	case "tar.gz", "tgz", "gzip":
		return TarGz, nil
	case "tar.zst", "tzst", "zst", "zstd":
		return TarZst, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}

// ContentType returns the MIME type served for the format
func (f Format) ContentType() string {
	switch f {
	case TarGz:
		return "application/gzip"
	case TarZst:
		return "application/zstd"
	default:
		return "application/zip"
	}
}

// FileName returns the suggested download name, e.g. CodeCanvasProject.zip
func FileName(base string, f Format) string {
	if base == "" {
		base = DefaultBaseName
	}
	if f == "" {
		f = Zip
	}
	return base + "." + string(f)
}

type file struct {
	name    string
	content string
}

// Builder assembles an in-memory archive
type Builder struct {
	format  Format
	files   []file
	modTime time.Time
}

// NewBuilder creates a builder for format
func NewBuilder(format Format) *Builder {
	if format == "" {
		format = Zip
	}
	return &Builder{format: format, modTime: time.Now()}
}

// AddFile queues a file. Order is preserved in the archive.
func (b *Builder) AddFile(name, content string) *Builder {
	b.files = append(b.files, file{name: name, content: content})
	return b
}

// WithModTime sets the timestamp recorded for every entry
func (b *Builder) WithModTime(t time.Time) *Builder {
	b.modTime = t
	return b
}

// Build produces the archive bytes
func (b *Builder) Build() ([]byte, error) {
	var buf bytes.Buffer

	var err error
	switch b.format {
	case Zip:
		err = b.writeZip(&buf)
	case TarGz:
		err = b.writeCompressedTar(&buf, func(w io.Writer) (io.WriteCloser, error) {
			return gzip.NewWriter(w), nil
		})
	case TarZst:
		err = b.writeCompressedTar(&buf, func(w io.Writer) (io.WriteCloser, error) {
			return zstd.NewWriter(w)
		})
	default:
		err = fmt.Errorf("%w: %q", ErrUnsupportedFormat, b.format)
	}
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (b *Builder) writeZip(w io.Writer) error {
	zw := zip.NewWriter(w)

	for _, f := range b.files {
		hdr := &zip.FileHeader{
			Name:     f.name,
			Method:   zip.Deflate,
			Modified: b.modTime,
		}
		entry, err := zw.CreateHeader(hdr)
		if err != nil {
			return fmt.Errorf("zip entry %s: %w", f.name, err)
		}
		if _, err := io.WriteString(entry, f.content); err != nil {
			return fmt.Errorf("zip write %s: %w", f.name, err)
		}
	}

	return zw.Close()
}

func (b *Builder) writeCompressedTar(w io.Writer, compressor func(io.Writer) (io.WriteCloser, error)) error {
	cw, err := compressor(w)
	if err != nil {
		return fmt.Errorf("compressor: %w", err)
	}

	tw := tar.NewWriter(cw)
	for _, f := range b.files {
		hdr := &tar.Header{
			Name:    f.name,
			Mode:    0o644,
			Size:    int64(len(f.content)),
			ModTime: b.modTime,
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return fmt.Errorf("tar header %s: %w", f.name, err)
		}
		if _, err := io.WriteString(tw, f.content); err != nil {
			return fmt.Errorf("tar write %s: %w", f.name, err)
		}
	}

	if err := tw.Close(); err != nil {
		return err
	}
	return cw.Close()
}
