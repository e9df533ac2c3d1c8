/*
Package preview keeps render targets in sync with a workspace's buffers.

Every edit triggers a full recomposition and a full re-present of the
document on each live target. There is no diffing and no partial update:
the buffers are the source of truth and targets are throwaway views.

Targets:
  - Embedded: the preview pane next to the editor, always present
  - Detached: a separate window the user may close at any time
  - Headless: a server-side sandbox mirror used for console capture

The Coordinator serializes all events under one lock and presents each
document exactly once per target.
*/
package preview
