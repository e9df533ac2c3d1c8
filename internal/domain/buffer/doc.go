// Package buffer holds the three source buffers of a workspace.
//
// Every workspace has exactly one buffer per ID (markup, style, script).
// Each buffer carries its current content and a baseline that is fixed at
// construction time. The baseline is what the buffer looked like when the
// workspace was opened, and is used to decide whether the user has unsaved
// changes.
//
// The store performs no validation and never triggers rendering on its own.
// Callers route edits through the preview coordinator, which updates the
// store and re-renders.
//
// Example Usage:
//
//	store := buffer.New(buffer.Snapshot{
//	    buffer.Markup: "<p>hi</p>",
//	    buffer.Style:  "p{color:red}",
//	    buffer.Script: "console.log(1)",
//	})
//	tracker := buffer.NewTracker(store)
//	store.Set(buffer.Markup, "<p>bye</p>")
//	tracker.IsModified() // true
package buffer
