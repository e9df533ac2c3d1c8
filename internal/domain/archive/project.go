package archive

import (
	"archive/tar"
	"bytes"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
	"github.com/saintfish/chardet"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/transform"

	"github.com/GriffinCanCode/codecanvas/internal/domain/buffer"
)

// MaxFileBytes caps a single decompressed project file
const MaxFileBytes = 4 << 20

var (
	ErrEmptyProject      = errors.New("archive contains no project files")
	ErrUnsupportedFormat = errors.New("unsupported archive format")
	ErrFileTooLarge      = errors.New("project file too large")
)

// Export packs the three buffers as index.html, style.css and script.js,
// in that order
func Export(snapshot buffer.Snapshot, format Format) ([]byte, error) {
	b := NewBuilder(format)
	for _, id := range buffer.All() {
		b.AddFile(id.FileName(), snapshot[id])
	}
	return b.Build()
}

// Imported is the result of reading a project archive
type Imported struct {
	Format  Format
	Buffers buffer.Snapshot // Only the buffers found
	Found   []buffer.ID     // In buffer order
}

// Import reads a project archive. Files are matched by base name in any
// directory; the first match wins. Text in a legacy encoding is converted
// to UTF-8.
func Import(data []byte) (*Imported, error) {
	mt := mimetype.Detect(data)

	var (
		format Format
		raw    map[buffer.ID][]byte
		err    error
	)
	switch {
	case is(mt, "application/zip"):
		format = Zip
		raw, err = readZip(data)
	case is(mt, "application/gzip"):
		format = TarGz
		raw, err = readCompressedTar(data, func(r io.Reader) (io.ReadCloser, error) {
			return gzip.NewReader(r)
		})
	case is(mt, "application/zstd"):
		format = TarZst
		raw, err = readCompressedTar(data, func(r io.Reader) (io.ReadCloser, error) {
			dec, err := zstd.NewReader(r)
			if err != nil {
				return nil, err
			}
			return dec.IOReadCloser(), nil
		})
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, mt.String())
	}
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, ErrEmptyProject
	}

	out := &Imported{Format: format, Buffers: make(buffer.Snapshot, len(raw))}
	for _, id := range buffer.All() {
		content, ok := raw[id]
		if !ok {
			continue
		}
		out.Buffers[id] = toUTF8(content)
		out.Found = append(out.Found, id)
	}
	return out, nil
}

// is matches mime against the detected type or any of its parents, so
// zip-based subtypes still read as zip
func is(mt *mimetype.MIME, mime string) bool {
	for m := mt; m != nil; m = m.Parent() {
		if m.Is(mime) {
			return true
		}
	}
	return false
}

func readZip(data []byte) (map[buffer.ID][]byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open zip: %w", err)
	}

	found := make(map[buffer.ID][]byte)
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		id, ok := match(f.Name, found)
		if !ok {
			continue
		}

		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", f.Name, err)
		}
		content, err := readLimited(rc, f.Name)
		rc.Close()
		if err != nil {
			return nil, err
		}
		found[id] = content
	}
	return found, nil
}

func readCompressedTar(data []byte, decompressor func(io.Reader) (io.ReadCloser, error)) (map[buffer.ID][]byte, error) {
	dr, err := decompressor(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decompress: %w", err)
	}
	defer dr.Close()

	found := make(map[buffer.ID][]byte)
	tr := tar.NewReader(dr)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read tar: %w", err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		id, ok := match(hdr.Name, found)
		if !ok {
			continue
		}
		content, err := readLimited(tr, hdr.Name)
		if err != nil {
			return nil, err
		}
		found[id] = content
	}
	return found, nil
}

// match maps an entry name to a buffer not yet found. macOS resource fork
// entries are ignored.
func match(name string, found map[buffer.ID][]byte) (buffer.ID, bool) {
	if strings.HasPrefix(name, "__MACOSX/") {
		return 0, false
	}
	id, ok := buffer.ForFileName(path.Base(name))
	if !ok {
		return 0, false
	}
	if _, dup := found[id]; dup {
		return 0, false
	}
	return id, true
}

func readLimited(r io.Reader, name string) ([]byte, error) {
	content, err := io.ReadAll(io.LimitReader(r, MaxFileBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	if len(content) > MaxFileBytes {
		return nil, fmt.Errorf("%w: %s", ErrFileTooLarge, name)
	}
	return content, nil
}

// toUTF8 decodes text using the detected charset. Valid UTF-8 passes
// through with any byte order mark removed.
func toUTF8(data []byte) string {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if utf8.Valid(data) {
		return string(data)
	}

	result, err := chardet.NewTextDetector().DetectBest(data)
	if err != nil || result == nil {
		return strings.ToValidUTF8(string(data), "�")
	}

	enc, _ := charset.Lookup(result.Charset)
	if enc == nil {
		return strings.ToValidUTF8(string(data), "�")
	}

	decoded, _, err := transform.Bytes(enc.NewDecoder(), data)
	if err != nil {
		return strings.ToValidUTF8(string(data), "�")
	}
	return string(decoded)
}
