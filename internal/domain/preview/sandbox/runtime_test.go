package sandbox

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/GriffinCanCode/codecanvas/internal/domain/compose"
)

func newRuntime(t *testing.T, config Config) *Runtime {
	t.Helper()
	rt, err := New(config)
	if err != nil {
		t.Fatalf("Failed to create runtime: %v", err)
	}
	t.Cleanup(func() { rt.Close() })
	return rt
}

func TestRenderRunsScriptsInOrder(t *testing.T) {
	rt := newRuntime(t, DefaultConfig())

	doc := `<html><body><p id="out"></p>
<script>document.getElementById('out').textContent = 'a';</script>
<script>var p = document.querySelector('#out'); p.textContent = p.textContent + 'b';</script>
</body></html>`

	result, err := rt.Render(context.Background(), doc)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if result.Scripts != 2 {
		t.Errorf("Scripts = %d, want 2", result.Scripts)
	}
	if !strings.Contains(result.HTML, `<p id="out">ab</p>`) {
		t.Errorf("HTML missing script output: %s", result.HTML)
	}
}

func TestRenderComposedDocument(t *testing.T) {
	rt := newRuntime(t, DefaultConfig())

	doc := compose.Compose(
		`<h1 class="title">Hello</h1>`,
		`h1 { color: red; }`,
		`const h = document.querySelector('h1'); h.classList.add('ready'); console.log('tag', h.tagName);`,
	)

	result, err := rt.Render(context.Background(), doc)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if len(result.Console) != 1 || result.Console[0].Message != "tag H1" {
		t.Errorf("Console = %+v", result.Console)
	}
	if !strings.Contains(result.HTML, `class="title ready"`) {
		t.Errorf("classList.add not applied: %s", result.HTML)
	}
}

func TestRenderContinuesAfterScriptError(t *testing.T) {
	rt := newRuntime(t, DefaultConfig())

	doc := `<body>
<script>undefinedFunction();</script>
<script>console.log('still running');</script>
</body>`

	result, err := rt.Render(context.Background(), doc)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if len(result.Errors) != 1 || result.Errors[0].Script != 0 {
		t.Fatalf("Errors = %+v", result.Errors)
	}
	if !strings.Contains(result.Errors[0].Message, "ReferenceError") {
		t.Errorf("unexpected message %q", result.Errors[0].Message)
	}
	if len(result.Console) != 1 || result.Console[0].Message != "still running" {
		t.Errorf("Console = %+v", result.Console)
	}
}

func TestRenderTimeout(t *testing.T) {
	config := DefaultConfig()
	config.Timeout = 100 * time.Millisecond
	rt := newRuntime(t, config)

	doc := `<body><script>while (true) {}</script><script>console.log('skipped')</script></body>`

	result, err := rt.Render(context.Background(), doc)
	if !errors.Is(err, ErrExecutionTimeout) {
		t.Fatalf("Render() error = %v, want timeout", err)
	}
	if result == nil || !result.TimedOut {
		t.Fatal("Expected timed out result")
	}
	if len(result.Console) != 0 {
		t.Errorf("later scripts must not run, got %+v", result.Console)
	}

	// The interrupt must not leak into the next render
	result, err = rt.Render(context.Background(), `<script>console.log('ok')</script>`)
	if err != nil {
		t.Fatalf("Render() after timeout error = %v", err)
	}
	if len(result.Console) != 1 {
		t.Errorf("Console = %+v", result.Console)
	}
}

func TestRenderResetsGlobals(t *testing.T) {
	rt := newRuntime(t, DefaultConfig())
	doc := `<script>window.__x = (window.__x || 0) + 1;</script>`

	for i := 0; i < 2; i++ {
		if _, err := rt.Render(context.Background(), doc); err != nil {
			t.Fatalf("Render() error = %v", err)
		}
	}

	result, err := rt.Eval(context.Background(), "window.__x")
	if err != nil {
		t.Fatalf("Eval() error = %v", err)
	}
	if v, ok := result.Value.(int64); !ok || v != 1 {
		t.Errorf("window.__x = %v, want 1", result.Value)
	}
}

func TestRenderFiresLoadAndTimers(t *testing.T) {
	rt := newRuntime(t, DefaultConfig())
	doc := `<script>
document.addEventListener('DOMContentLoaded', function() { console.log('loaded'); });
setTimeout(function() { console.log('timer'); }, 50);
var cancelled = setTimeout(function() { console.log('never'); }, 0);
clearTimeout(cancelled);
console.log('sync');
</script>`

	result, err := rt.Render(context.Background(), doc)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	var got []string
	for _, e := range result.Console {
		got = append(got, e.Message)
	}
	want := "sync,loaded,timer"
	if strings.Join(got, ",") != want {
		t.Errorf("Console order = %v, want %s", got, want)
	}
}

func TestRenderSkipsExternalAndNonJSScripts(t *testing.T) {
	rt := newRuntime(t, DefaultConfig())
	doc := `<script src="https://example.com/lib.js">console.log('inline body')</script>
<script type="text/template">console.log('template')</script>
<script>console.log('run')</script>`

	result, err := rt.Render(context.Background(), doc)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if result.Scripts != 1 || len(result.Console) != 1 {
		t.Errorf("Scripts = %d, Console = %+v", result.Scripts, result.Console)
	}
}

func TestRuntimeSecurity(t *testing.T) {
	rt := newRuntime(t, DefaultConfig())

	for _, script := range []string{"require('fs')", "process.exit(1)", "module.exports = {}"} {
		t.Run(script, func(t *testing.T) {
			result, err := rt.Eval(context.Background(), script)
			if err == nil {
				t.Fatalf("Dangerous script executed: %v", result.Value)
			}
			if !errors.Is(err, ErrScript) {
				t.Errorf("error = %v, want ErrScript", err)
			}
		})
	}
}

func TestConsoleCapture(t *testing.T) {
	rt := newRuntime(t, DefaultConfig())
	doc := `<script>
console.log('info message', 2);
console.warn({a: 1});
console.error([1, 2]);
</script>`

	result, err := rt.Render(context.Background(), doc)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	want := []LogEntry{
		{Level: "log", Message: "info message 2"},
		{Level: "warn", Message: `{"a":1}`},
		{Level: "error", Message: "[1,2]"},
	}
	if len(result.Console) != len(want) {
		t.Fatalf("Console = %+v", result.Console)
	}
	for i, entry := range result.Console {
		if entry.Level != want[i].Level || entry.Message != want[i].Message {
			t.Errorf("entry %d = %s %q, want %s %q", i, entry.Level, entry.Message, want[i].Level, want[i].Message)
		}
	}
}

func TestDOMMutations(t *testing.T) {
	rt := newRuntime(t, DefaultConfig())
	doc := `<html><head><title>Old</title></head><body><ul id="list"><li class="gone">x</li></ul>
<script>
var li = document.createElement('li');
li.textContent = 'new';
li.setAttribute('data-k', '1');
document.getElementById('list').appendChild(li);
document.getElementsByClassName('gone')[0].remove();
document.title = 'New';
document.body.innerHTML.length;
</script></body></html>`

	result, err := rt.Render(context.Background(), doc)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if !strings.Contains(result.HTML, `<li data-k="1">new</li>`) {
		t.Errorf("appended element missing: %s", result.HTML)
	}
	if strings.Contains(result.HTML, "gone") {
		t.Errorf("removed element still present: %s", result.HTML)
	}
	if result.Title != "New" {
		t.Errorf("Title = %q", result.Title)
	}
}

func TestContextCancel(t *testing.T) {
	rt := newRuntime(t, DefaultConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := rt.Render(ctx, `<script>1</script>`)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestClosedRuntime(t *testing.T) {
	rt, err := New(DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	rt.Close()

	if _, err := rt.Render(context.Background(), "<p></p>"); !errors.Is(err, ErrRuntimeClosed) {
		t.Errorf("error = %v, want ErrRuntimeClosed", err)
	}
}

func TestDOMQuery(t *testing.T) {
	dom, err := NewDOM(`<div id="test-id" class="test-class other">a</div><span>b</span>`)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		selector string
		wantLen  int
	}{
		{"ID selector", "#test-id", 1},
		{"class selector", ".test-class", 1},
		{"tag selector", "div", 1},
		{"non-existent", "#not-found", 0},
		{"invalid selector", "div[", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := len(dom.Query(tt.selector)); got != tt.wantLen {
				t.Errorf("Query(%s) returned %d elements, want %d", tt.selector, got, tt.wantLen)
			}
		})
	}

	if len(dom.ByClass("other test-class")) != 1 {
		t.Error("ByClass should match all listed classes")
	}
	if dom.ByID("test-id") == nil {
		t.Error("ByID should find the element")
	}
}
