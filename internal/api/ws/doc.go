// Package ws carries presented documents to browser pages over WebSocket.
//
// Two kinds of socket exist per workspace:
//
//	/ws/editor/:workspace            editor page, also feeds its preview frame
//	/ws/preview/:workspace/:target   a detached preview window
//
// Message Types (Client → Server, editor socket):
//   - edit: {buffer, text} replaces one buffer
//   - open_preview: open or reuse the detached window
//   - ui: {action} chrome state transition
//   - refresh: re-present the current document
//   - ping: keep-alive
//
// Message Types (Server → Client):
//   - welcome: current document, buffers, modified flag and chrome state
//   - present: {document, revision} replaces the whole preview
//   - modified: whether leaving the page would lose edits
//   - preview_opened / preview_closed: detached window lifecycle
//   - ui_state: new chrome state
//   - pong, error
//
// Hub implements workspace.TargetFactory, so the workspace manager builds
// each coordinator around socket-backed targets.
//
// Example Usage:
//
//	hub := ws.NewHub(ws.DefaultConfig())
//	manager := workspace.NewManager(templates, hub, workspace.Config{})
//	ws.NewHandler(hub, manager).Register(router)
package ws
