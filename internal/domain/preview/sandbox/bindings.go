package sandbox

import (
	"github.com/dop251/goja"
)

// injectDOM exposes document and element proxies; must hold mu
func (r *Runtime) injectDOM() {
	vm := r.vm
	dom := r.dom

	document := vm.NewObject()
	document.Set("querySelector", func(call goja.FunctionCall) goja.Value {
		return r.element(dom.First(call.Argument(0).String()))
	})
	document.Set("querySelectorAll", func(call goja.FunctionCall) goja.Value {
		return r.elements(dom.Query(call.Argument(0).String()))
	})
	document.Set("getElementById", func(call goja.FunctionCall) goja.Value {
		return r.element(dom.ByID(call.Argument(0).String()))
	})
	document.Set("getElementsByClassName", func(call goja.FunctionCall) goja.Value {
		return r.elements(dom.ByClass(call.Argument(0).String()))
	})
	document.Set("getElementsByTagName", func(call goja.FunctionCall) goja.Value {
		return r.elements(dom.Query(call.Argument(0).String()))
	})
	document.Set("createElement", func(call goja.FunctionCall) goja.Value {
		return r.element(dom.Create(call.Argument(0).String()))
	})
	document.Set("addEventListener", r.addEventListener)
	document.Set("removeEventListener", noop)

	r.accessor(document, "body", func() goja.Value { return r.element(dom.First("body")) }, nil)
	r.accessor(document, "head", func() goja.Value { return r.element(dom.First("head")) }, nil)
	r.accessor(document, "documentElement", func() goja.Value { return r.element(dom.First("html")) }, nil)
	r.accessor(document, "title",
		func() goja.Value { return vm.ToValue(dom.Title()) },
		func(v goja.Value) { dom.SetTitle(v.String()) },
	)

	vm.Set("document", document)
}

// element wraps e in a proxy object, or returns null for nil
func (r *Runtime) element(e *Element) goja.Value {
	if e == nil {
		return goja.Null()
	}

	vm := r.vm
	obj := vm.NewObject()
	r.nodes[obj] = e

	r.accessor(obj, "tagName", func() goja.Value { return vm.ToValue(e.TagName()) }, nil)
	r.accessor(obj, "nodeName", func() goja.Value { return vm.ToValue(e.TagName()) }, nil)
	r.attrAccessor(obj, e, "id", "id")
	r.attrAccessor(obj, e, "className", "class")
	r.accessor(obj, "textContent",
		func() goja.Value { return vm.ToValue(e.Text()) },
		func(v goja.Value) { e.SetText(v.String()) },
	)
	r.accessor(obj, "innerText",
		func() goja.Value { return vm.ToValue(e.Text()) },
		func(v goja.Value) { e.SetText(v.String()) },
	)
	r.accessor(obj, "innerHTML",
		func() goja.Value { return vm.ToValue(e.InnerHTML()) },
		func(v goja.Value) { e.SetInnerHTML(v.String()) },
	)

	obj.Set("getAttribute", func(call goja.FunctionCall) goja.Value {
		if v, ok := e.GetAttribute(call.Argument(0).String()); ok {
			return vm.ToValue(v)
		}
		return goja.Null()
	})
	obj.Set("setAttribute", func(call goja.FunctionCall) goja.Value {
		e.SetAttribute(call.Argument(0).String(), call.Argument(1).String())
		return goja.Undefined()
	})
	obj.Set("removeAttribute", func(call goja.FunctionCall) goja.Value {
		e.RemoveAttribute(call.Argument(0).String())
		return goja.Undefined()
	})
	obj.Set("appendChild", func(call goja.FunctionCall) goja.Value {
		child := r.unwrap(call.Argument(0))
		if child == nil {
			panic(vm.NewTypeError("appendChild: argument is not an element"))
		}
		e.Append(child)
		return call.Argument(0)
	})
	obj.Set("remove", func(goja.FunctionCall) goja.Value {
		e.Remove()
		return goja.Undefined()
	})
	obj.Set("querySelector", func(call goja.FunctionCall) goja.Value {
		found := e.Query(call.Argument(0).String())
		if len(found) == 0 {
			return goja.Null()
		}
		return r.element(found[0])
	})
	obj.Set("querySelectorAll", func(call goja.FunctionCall) goja.Value {
		return r.elements(e.Query(call.Argument(0).String()))
	})

	// Events never fire headless; styles are not computed
	obj.Set("addEventListener", noop)
	obj.Set("removeEventListener", noop)
	obj.Set("click", noop)
	obj.Set("style", vm.NewObject())
	obj.Set("classList", r.classList(e))

	return obj
}

func (r *Runtime) elements(list []*Element) goja.Value {
	items := make([]interface{}, len(list))
	for i, e := range list {
		items[i] = r.element(e)
	}
	return r.vm.NewArray(items...)
}

func (r *Runtime) classList(e *Element) *goja.Object {
	vm := r.vm
	list := vm.NewObject()

	list.Set("add", func(call goja.FunctionCall) goja.Value {
		e.AddClass(argStrings(call)...)
		return goja.Undefined()
	})
	list.Set("remove", func(call goja.FunctionCall) goja.Value {
		e.RemoveClass(argStrings(call)...)
		return goja.Undefined()
	})
	list.Set("contains", func(call goja.FunctionCall) goja.Value {
		return vm.ToValue(e.HasClass(call.Argument(0).String()))
	})
	list.Set("toggle", func(call goja.FunctionCall) goja.Value {
		class := call.Argument(0).String()
		if e.HasClass(class) {
			e.RemoveClass(class)
			return vm.ToValue(false)
		}
		e.AddClass(class)
		return vm.ToValue(true)
	})
	return list
}

func (r *Runtime) unwrap(v goja.Value) *Element {
	obj, ok := v.(*goja.Object)
	if !ok {
		return nil
	}
	return r.nodes[obj]
}

// accessor defines a getter and optional setter on obj
func (r *Runtime) accessor(obj *goja.Object, name string, get func() goja.Value, set func(goja.Value)) {
	getter := r.vm.ToValue(func(goja.FunctionCall) goja.Value { return get() })

	var setter goja.Value
	if set != nil {
		setter = r.vm.ToValue(func(call goja.FunctionCall) goja.Value {
			set(call.Argument(0))
			return goja.Undefined()
		})
	}

	obj.DefineAccessorProperty(name, getter, setter, goja.FLAG_TRUE, goja.FLAG_TRUE)
}

func (r *Runtime) attrAccessor(obj *goja.Object, e *Element, prop, attr string) {
	r.accessor(obj, prop,
		func() goja.Value {
			v, _ := e.GetAttribute(attr)
			return r.vm.ToValue(v)
		},
		func(v goja.Value) { e.SetAttribute(attr, v.String()) },
	)
}

func argStrings(call goja.FunctionCall) []string {
	out := make([]string, len(call.Arguments))
	for i, a := range call.Arguments {
		out[i] = a.String()
	}
	return out
}
