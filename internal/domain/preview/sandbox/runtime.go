package sandbox

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dop251/goja"
)

// ErrScript wraps an uncaught exception from evaluated code
var ErrScript = errors.New("uncaught script error")

// Runtime wraps a goja VM that renders one document at a time.
//
// Every Render starts from a fresh VM: globals, timers and listeners from
// the previous document do not survive. Eval runs against whatever state
// the last Render left behind.
type Runtime struct {
	mu     sync.Mutex
	vm     *goja.Runtime
	config Config
	closed bool

	dom       *DOM
	console   []LogEntry
	nodes     map[*goja.Object]*Element
	onLoad    []goja.Callable
	timers    []timer
	nextTimer int64
	stringify goja.Callable
}

type timer struct {
	id int64
	fn goja.Callable
}

// New creates a new sandboxed runtime
func New(config Config) (*Runtime, error) {
	if config.Timeout <= 0 {
		config.Timeout = DefaultConfig().Timeout
	}

	r := &Runtime{config: config}
	if err := r.reset(); err != nil {
		return nil, err
	}
	return r, nil
}

// Render replaces the runtime state with document: the VM is rebuilt, the
// document parsed, and each inline script run in order. An uncaught error
// in one script is recorded and the next script still runs. When the
// timeout elapses the remaining scripts are skipped and ErrExecutionTimeout
// is returned alongside the partial result.
func (r *Runtime) Render(ctx context.Context, document string) (*Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, ErrRuntimeClosed
	}

	start := time.Now()
	if err := r.reset(); err != nil {
		return nil, err
	}

	dom, err := NewDOM(document)
	if err != nil {
		return nil, err
	}
	r.dom = dom
	if r.config.EnableDOM {
		r.injectDOM()
	}

	deadline := start.Add(r.config.Timeout)
	result := &Result{}

	var fatal error
	for i, src := range dom.Scripts() {
		result.Scripts++
		_, err := r.run(ctx, deadline, func() (goja.Value, error) {
			return r.vm.RunString(src)
		})
		if err == nil {
			continue
		}
		result.Errors = append(result.Errors, ScriptError{Script: i, Message: errorMessage(err)})
		if isFatal(err) {
			fatal = err
			break
		}
	}

	if fatal == nil {
		fatal = r.drain(ctx, deadline, result)
	}

	result.TimedOut = errors.Is(fatal, ErrExecutionTimeout)
	result.HTML, _ = dom.HTML()
	result.Title = dom.Title()
	result.Console = append([]LogEntry(nil), r.console...)
	result.Duration = time.Since(start)

	return result, fatal
}

// drain fires load listeners, then pending timers, once each
func (r *Runtime) drain(ctx context.Context, deadline time.Time, result *Result) error {
	listeners := r.onLoad
	r.onLoad = nil
	for _, fn := range listeners {
		if err := r.callback(ctx, deadline, fn, result); err != nil {
			return err
		}
	}

	// Timers scheduled by timers run too, up to the deadline
	for len(r.timers) > 0 {
		t := r.timers[0]
		r.timers = r.timers[1:]
		if err := r.callback(ctx, deadline, t.fn, result); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runtime) callback(ctx context.Context, deadline time.Time, fn goja.Callable, result *Result) error {
	_, err := r.run(ctx, deadline, func() (goja.Value, error) {
		return fn(goja.Undefined())
	})
	if err == nil {
		return nil
	}
	result.Errors = append(result.Errors, ScriptError{Script: -1, Message: errorMessage(err)})
	if isFatal(err) {
		return err
	}
	return nil
}

// Eval evaluates an expression against the current state
func (r *Runtime) Eval(ctx context.Context, expr string) (*Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, ErrRuntimeClosed
	}

	start := time.Now()
	mark := len(r.console)

	val, err := r.run(ctx, start.Add(r.config.Timeout), func() (goja.Value, error) {
		return r.vm.RunString(expr)
	})

	result := &Result{
		Console:  append([]LogEntry(nil), r.console[mark:]...),
		Duration: time.Since(start),
	}
	if err != nil {
		result.Errors = []ScriptError{{Script: -1, Message: errorMessage(err)}}
		result.TimedOut = errors.Is(err, ErrExecutionTimeout)
		if isFatal(err) {
			return result, err
		}
		return result, fmt.Errorf("%w: %s", ErrScript, errorMessage(err))
	}

	result.Value = exportValue(val)
	return result, nil
}

// run executes fn with an interrupt armed for the deadline and ctx
func (r *Runtime) run(ctx context.Context, deadline time.Time, fn func() (goja.Value, error)) (goja.Value, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if !time.Now().Before(deadline) {
		return nil, ErrExecutionTimeout
	}

	vm := r.vm
	stop := make(chan struct{})
	exited := make(chan struct{})

	go func() {
		defer close(exited)
		t := time.NewTimer(time.Until(deadline))
		defer t.Stop()

		select {
		case <-t.C:
			vm.Interrupt(ErrExecutionTimeout)
		case <-ctx.Done():
			vm.Interrupt(ctx.Err())
		case <-stop:
		}
	}()

	val, err := fn()

	close(stop)
	<-exited
	vm.ClearInterrupt()

	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		if cause, ok := interrupted.Value().(error); ok {
			return nil, cause
		}
		return nil, ErrExecutionTimeout
	}
	return val, err
}

// reset builds a fresh VM; must hold mu
func (r *Runtime) reset() error {
	vm := goja.New()
	if r.config.MaxCallStackSize > 0 {
		vm.SetMaxCallStackSize(r.config.MaxCallStackSize)
	}

	r.vm = vm
	r.dom = nil
	r.console = nil
	r.nodes = make(map[*goja.Object]*Element)
	r.onLoad = nil
	r.timers = nil
	r.nextTimer = 0

	stringify, ok := goja.AssertFunction(vm.Get("JSON").ToObject(vm).Get("stringify"))
	if !ok {
		return errors.New("JSON.stringify unavailable")
	}
	r.stringify = stringify

	return r.setupGlobals()
}

// setupGlobals configures global objects and security
func (r *Runtime) setupGlobals() error {
	vm := r.vm

	// Remove host escape hatches
	for _, name := range []string{"require", "process", "module", "exports"} {
		if err := vm.Set(name, goja.Undefined()); err != nil {
			return err
		}
	}

	global := vm.GlobalObject()
	vm.Set("window", global)
	vm.Set("self", global)
	global.Set("addEventListener", r.addEventListener)
	global.Set("removeEventListener", noop)

	console := vm.NewObject()
	for _, level := range []string{"log", "info", "warn", "error", "debug"} {
		console.Set(level, r.makeConsoleFunc(level))
	}
	vm.Set("console", console)

	vm.Set("alert", r.makeConsoleFunc("alert"))
	vm.Set("confirm", func(goja.FunctionCall) goja.Value { return vm.ToValue(false) })
	vm.Set("prompt", func(goja.FunctionCall) goja.Value { return goja.Null() })

	vm.Set("setTimeout", r.setTimeout)
	vm.Set("clearTimeout", r.clearTimeout)
	// Intervals would never settle in a one-shot render
	vm.Set("setInterval", func(goja.FunctionCall) goja.Value { return vm.ToValue(0) })
	vm.Set("clearInterval", noop)
	vm.Set("requestAnimationFrame", r.setTimeout)
	vm.Set("cancelAnimationFrame", r.clearTimeout)

	return nil
}

func noop(goja.FunctionCall) goja.Value { return goja.Undefined() }

func (r *Runtime) setTimeout(call goja.FunctionCall) goja.Value {
	fn, ok := goja.AssertFunction(call.Argument(0))
	if !ok {
		return r.vm.ToValue(0)
	}
	r.nextTimer++
	r.timers = append(r.timers, timer{id: r.nextTimer, fn: fn})
	return r.vm.ToValue(r.nextTimer)
}

func (r *Runtime) clearTimeout(call goja.FunctionCall) goja.Value {
	id := call.Argument(0).ToInteger()
	for i, t := range r.timers {
		if t.id == id {
			r.timers = append(r.timers[:i], r.timers[i+1:]...)
			break
		}
	}
	return goja.Undefined()
}

func (r *Runtime) addEventListener(call goja.FunctionCall) goja.Value {
	switch call.Argument(0).String() {
	case "load", "DOMContentLoaded":
		if fn, ok := goja.AssertFunction(call.Argument(1)); ok {
			r.onLoad = append(r.onLoad, fn)
		}
	}
	return goja.Undefined()
}

// makeConsoleFunc creates a console function
func (r *Runtime) makeConsoleFunc(level string) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		if !r.config.EnableConsole {
			return goja.Undefined()
		}

		parts := make([]string, len(call.Arguments))
		for i, arg := range call.Arguments {
			parts[i] = r.format(arg)
		}

		r.console = append(r.console, LogEntry{
			Level:   level,
			Message: strings.Join(parts, " "),
			Time:    time.Now(),
		})
		return goja.Undefined()
	}
}

// format renders plain objects and arrays as JSON, everything else as
// its string conversion
func (r *Runtime) format(v goja.Value) string {
	obj, ok := v.(*goja.Object)
	if !ok {
		return v.String()
	}
	if _, isFunc := goja.AssertFunction(v); isFunc || obj.ClassName() == "Error" {
		return v.String()
	}
	s, err := r.stringify(goja.Undefined(), v)
	if err != nil || goja.IsUndefined(s) {
		return v.String()
	}
	return s.String()
}

// Close releases resources
func (r *Runtime) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closed = true
	r.vm = nil
	r.dom = nil
	r.console = nil
	r.nodes = nil
	return nil
}

// exportValue converts goja value to Go value
func exportValue(val goja.Value) interface{} {
	if val == nil || goja.IsUndefined(val) || goja.IsNull(val) {
		return nil
	}
	return val.Export()
}

func isFatal(err error) bool {
	return errors.Is(err, ErrExecutionTimeout) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

// errorMessage prefers the thrown value over goja's decorated message
func errorMessage(err error) string {
	var exc *goja.Exception
	if errors.As(err, &exc) && exc.Value() != nil {
		return exc.Value().String()
	}
	return err.Error()
}
