// Package workspace owns the per-page state of the playground.
//
// A Workspace bundles one buffer store, the preview coordinator that keeps
// its render targets in sync, an optional headless mirror, and the editor
// chrome state. Manager hands out workspaces by ULID and reaps the ones no
// socket has touched for a while.
package workspace
