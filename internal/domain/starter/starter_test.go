package starter

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/codecanvas/internal/domain/buffer"
)

func TestBuiltinTemplates(t *testing.T) {
	r, err := NewRegistry()
	require.NoError(t, err)

	def := r.Default()
	assert.Equal(t, DefaultName, def.Name)
	assert.Contains(t, def.Markup, "Welcome to <b>CodeCanvas</b> Editor")
	assert.Contains(t, def.Style, "box-sizing: border-box;")
	assert.Equal(t, `console.log("Your script.js File Is Running...")`, def.Script)

	blank, err := r.Get("blank")
	require.NoError(t, err)
	assert.Equal(t, buffer.Snapshot{buffer.Markup: "", buffer.Style: "", buffer.Script: ""}, blank.Snapshot())

	counter, err := r.Get("counter")
	require.NoError(t, err)
	assert.Contains(t, counter.Markup, `<h1 id="count">0</h1>`)

	var names []string
	for _, tpl := range r.List() {
		names = append(names, tpl.Name)
	}
	assert.Equal(t, []string{"blank", "counter", "default"}, names)
}

func TestResolve(t *testing.T) {
	r, err := NewRegistry()
	require.NoError(t, err)

	tpl, err := r.Resolve("")
	require.NoError(t, err)
	assert.Equal(t, DefaultName, tpl.Name)

	_, err = r.Resolve("missing")
	assert.ErrorIs(t, err, ErrUnknownTemplate)
}

func TestParseNameFallback(t *testing.T) {
	tpl, err := Parse("landing.yml", []byte("markup: <p>x</p>\n"))
	require.NoError(t, err)
	assert.Equal(t, "landing", tpl.Name)
	assert.Equal(t, "<p>x</p>", tpl.Markup)

	_, err = Parse("landing.json", []byte("{}"))
	assert.Error(t, err)
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	write := func(rel, content string) {
		p := filepath.Join(dir, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}

	write("one.yaml", "name: one\nscript: console.log(1)\n")
	write("nested/deeper/two.toml", "name = \"two\"\nstyle = \"p{}\"\n")
	write("nested/default.yml", "name: default\nmarkup: <p>override</p>\n")
	write("notes.txt", "not a template")
	write("broken.yaml", "name: [unclosed\n")

	r, err := NewRegistry()
	require.NoError(t, err)

	n, err := r.LoadDir(context.Background(), dir)
	assert.Error(t, err, "broken file is reported")
	assert.Contains(t, err.Error(), "broken.yaml")
	assert.Equal(t, 3, n)

	one, err := r.Get("one")
	require.NoError(t, err)
	assert.Equal(t, "console.log(1)", one.Script)

	two, err := r.Get("two")
	require.NoError(t, err)
	assert.Equal(t, "p{}", two.Style)

	assert.Equal(t, "<p>override</p>", r.Default().Markup)
}

func TestLoadDirMissing(t *testing.T) {
	r, err := NewRegistry()
	require.NoError(t, err)

	_, err = r.LoadDir(context.Background(), filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}
