package archive

import (
	"archive/tar"
	"bytes"
	"io"
	"testing"
	"time"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/codecanvas/internal/domain/buffer"
)

var project = buffer.Snapshot{
	buffer.Markup: "<h1>Hi</h1>",
	buffer.Style:  "h1 { color: teal; }",
	buffer.Script: "console.log('hi');",
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want Format
	}{
		{"", Zip},
		{"zip", Zip},
		{".ZIP", Zip},
		{"tgz", TarGz},
		{"tar.gz", TarGz},
		{"zstd", TarZst},
		{"tar.zst", TarZst},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseFormat("rar")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "CodeCanvasProject.zip", FileName("", Zip))
	assert.Equal(t, "CodeCanvasProject.zip", FileName("", ""))
	assert.Equal(t, "demo.tar.zst", FileName("demo", TarZst))
}

func TestExportZipOrderAndContent(t *testing.T) {
	data, err := Export(project, Zip)
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	require.Len(t, zr.File, 3)

	names := make([]string, 0, 3)
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"index.html", "style.css", "script.js"}, names)

	rc, err := zr.File[1].Open()
	require.NoError(t, err)
	defer rc.Close()
	css, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, project[buffer.Style], string(css))
}

func TestExportEmptyBuffersStillWritten(t *testing.T) {
	data, err := Export(buffer.Snapshot{}, Zip)
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	assert.Len(t, zr.File, 3)
}

func TestRoundTripAllFormats(t *testing.T) {
	for _, format := range []Format{Zip, TarGz, TarZst} {
		t.Run(string(format), func(t *testing.T) {
			data, err := Export(project, format)
			require.NoError(t, err)

			imported, err := Import(data)
			require.NoError(t, err)
			assert.Equal(t, format, imported.Format)
			assert.Equal(t, buffer.All(), imported.Found)
			assert.Equal(t, project, imported.Buffers)
		})
	}
}

func TestImportPartialProjectInSubdirectory(t *testing.T) {
	data, err := NewBuilder(Zip).
		AddFile("__MACOSX/site/._index.html", "junk").
		AddFile("site/index.html", "<p>nested</p>").
		AddFile("site/readme.md", "ignored").
		AddFile("other/index.html", "<p>second</p>").
		Build()
	require.NoError(t, err)

	imported, err := Import(data)
	require.NoError(t, err)
	assert.Equal(t, []buffer.ID{buffer.Markup}, imported.Found)
	assert.Equal(t, "<p>nested</p>", imported.Buffers[buffer.Markup])
	_, hasStyle := imported.Buffers[buffer.Style]
	assert.False(t, hasStyle)
}

func TestImportEmptyProject(t *testing.T) {
	data, err := NewBuilder(TarGz).AddFile("notes.txt", "nothing here").Build()
	require.NoError(t, err)

	_, err = Import(data)
	assert.ErrorIs(t, err, ErrEmptyProject)
}

func TestImportUnsupported(t *testing.T) {
	_, err := Import([]byte("just some text, not an archive"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestImportStripsBOM(t *testing.T) {
	data, err := NewBuilder(Zip).AddFile("style.css", "\xef\xbb\xbfbody{}").Build()
	require.NoError(t, err)

	imported, err := Import(data)
	require.NoError(t, err)
	assert.Equal(t, "body{}", imported.Buffers[buffer.Style])
}

func TestImportConvertsLegacyEncoding(t *testing.T) {
	latin1 := []byte("<p>Le caf\xe9 est ferm\xe9 le dimanche. Nous pr\xe9f\xe9rons le th\xe9 \xe0 la menthe, " +
		"et les cr\xeapes sont d\xe9licieuses \xe0 toute heure de la journ\xe9e.</p>")
	data, err := NewBuilder(Zip).AddFile("index.html", string(latin1)).Build()
	require.NoError(t, err)

	imported, err := Import(data)
	require.NoError(t, err)
	assert.Contains(t, imported.Buffers[buffer.Markup], "café")
}

func TestImportRejectsOversizedFile(t *testing.T) {
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	big := bytes.Repeat([]byte("a"), MaxFileBytes+1)
	require.NoError(t, tw.WriteHeader(&tar.Header{Name: "script.js", Mode: 0o644, Size: int64(len(big)), ModTime: time.Now()}))
	_, err := tw.Write(big)
	require.NoError(t, err)
	require.NoError(t, tw.Close())

	_, err = readCompressedTar(buf.Bytes(), func(r io.Reader) (io.ReadCloser, error) {
		return io.NopCloser(r), nil
	})
	assert.ErrorIs(t, err, ErrFileTooLarge)
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "application/zip", Zip.ContentType())
	assert.Equal(t, "application/gzip", TarGz.ContentType())
	assert.Equal(t, "application/zstd", TarZst.ContentType())
}
