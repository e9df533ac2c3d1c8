package ws

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/codecanvas/internal/domain/preview"
	"github.com/GriffinCanCode/codecanvas/internal/shared/id"
)

func TestEmbeddedTargetRemembersDocument(t *testing.T) {
	hub := NewHub(Config{})
	wid := id.NewWorkspaceID()
	target := hub.Embedded(wid)

	assert.Equal(t, preview.Embedded, target.Kind())
	assert.Same(t, target, hub.Embedded(wid), "one frame target per workspace")
	require.NoError(t, target.Present("<p>a</p>"))

	et, ok := hub.EmbeddedTarget(wid)
	require.True(t, ok)
	doc, rev := et.Document()
	assert.Equal(t, "<p>a</p>", doc)
	assert.Equal(t, uint64(1), rev)

	hub.Release(wid)
	assert.False(t, target.Alive())
	require.NoError(t, target.Present("<p>b</p>"))
	doc, _ = et.Document()
	assert.Equal(t, "<p>a</p>", doc, "released target ignores presents")
}

func TestDetachedTargetPendingAndClose(t *testing.T) {
	hub := NewHub(Config{AttachTimeout: time.Minute})
	wid := id.NewWorkspaceID()
	hub.Embedded(wid)

	opened, err := hub.Opener(wid).OpenDetached()
	require.NoError(t, err)
	target := opened.(*DetachedTarget)

	assert.True(t, target.Alive())
	assert.False(t, target.Attached())
	assert.NoError(t, target.Present("<p>pending</p>"))

	found, err := hub.Detached(wid, target.ID())
	require.NoError(t, err)
	assert.Same(t, target, found)

	_, err = hub.Detached(id.NewWorkspaceID(), target.ID())
	assert.ErrorIs(t, err, ErrUnknownTarget)

	target.Close()
	target.Close()
	assert.False(t, target.Alive())
	select {
	case <-target.Done():
	default:
		t.Fatal("Done not closed")
	}
	_, err = hub.Detached(wid, target.ID())
	assert.ErrorIs(t, err, ErrUnknownTarget)
	assert.ErrorIs(t, target.attach(nil), preview.ErrTargetClosed)
}

func TestDetachedTargetExpires(t *testing.T) {
	hub := NewHub(Config{AttachTimeout: 20 * time.Millisecond})
	wid := id.NewWorkspaceID()
	hub.Embedded(wid)

	opened, err := hub.Opener(wid).OpenDetached()
	require.NoError(t, err)

	select {
	case <-opened.Done():
	case <-time.After(time.Second):
		t.Fatal("pending target did not expire")
	}
	assert.False(t, opened.Alive())
}

func TestOpenerAfterRelease(t *testing.T) {
	hub := NewHub(Config{})
	wid := id.NewWorkspaceID()
	hub.Embedded(wid)
	opener := hub.Opener(wid)

	hub.Release(wid)
	_, err := opener.OpenDetached()
	assert.ErrorIs(t, err, preview.ErrTargetClosed)
}

func TestReleaseClosesDetached(t *testing.T) {
	hub := NewHub(Config{})
	wid := id.NewWorkspaceID()
	hub.Embedded(wid)

	opened, err := hub.Opener(wid).OpenDetached()
	require.NoError(t, err)

	hub.Release(wid)
	assert.False(t, opened.Alive())
}
