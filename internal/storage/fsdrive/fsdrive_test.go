package fsdrive

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lecternapp/lectern-server/internal/storage"
)

func setupDrive(t *testing.T) *Drive {
	t.Helper()

	d, err := New(t.TempDir())
	require.NoError(t, err)
	return d
}

func TestNewCreatesRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "nested", "drive")
	_, err := New(root)
	require.NoError(t, err)

	info, err := os.Stat(root)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestUploadAndFetchRoundtrip(t *testing.T) {
	d := setupDrive(t)
	ctx := context.Background()

	id, err := d.UploadOrReplace(ctx, d.Root(), "c_ch1.txt", "hello", "", "text/plain")
	require.NoError(t, err)
	assert.Equal(t, "c_ch1.txt", id)

	content, err := d.FetchContent(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "hello", content)
}

func TestUploadReplacesExisting(t *testing.T) {
	d := setupDrive(t)
	ctx := context.Background()

	id, err := d.UploadOrReplace(ctx, d.Root(), "c_ch1.txt", "v1", "", "text/plain")
	require.NoError(t, err)

	id2, err := d.UploadOrReplace(ctx, d.Root(), "c_ch1.txt", "v2", id, "text/plain")
	require.NoError(t, err)
	assert.Equal(t, id, id2)

	content, err := d.FetchContent(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "v2", content)
}

func TestListChildren(t *testing.T) {
	d := setupDrive(t)
	ctx := context.Background()

	_, err := d.UploadOrReplace(ctx, d.Root(), "a.txt", "a", "", "text/plain")
	require.NoError(t, err)
	_, err = d.UploadOrReplace(ctx, "sub", "b.mp3", "b", "", "audio/mpeg")
	require.NoError(t, err)

	children, err := d.ListChildren(ctx, d.Root())
	require.NoError(t, err)
	require.Len(t, children, 2)

	byName := make(map[string]storage.File, len(children))
	for _, f := range children {
		byName[f.Name] = f
	}

	assert.Equal(t, "text/plain", byName["a.txt"].MimeType)
	assert.True(t, byName["sub"].IsFolder())

	subChildren, err := d.ListChildren(ctx, byName["sub"].ID)
	require.NoError(t, err)
	require.Len(t, subChildren, 1)
	assert.Equal(t, "b.mp3", subChildren[0].Name)
	assert.Equal(t, "audio/mpeg", subChildren[0].MimeType)
}

func TestCopyFile(t *testing.T) {
	d := setupDrive(t)
	ctx := context.Background()

	src, err := d.UploadOrReplace(ctx, d.Root(), "1_one.txt", "legacy text", "", "text/plain")
	require.NoError(t, err)

	copied, err := d.CopyFile(ctx, src, d.Root(), "c_ch1.txt")
	require.NoError(t, err)

	content, err := d.FetchContent(ctx, copied)
	require.NoError(t, err)
	assert.Equal(t, "legacy text", content)

	// The source survives a copy.
	content, err = d.FetchContent(ctx, src)
	require.NoError(t, err)
	assert.Equal(t, "legacy text", content)
}

func TestMoveToTrash(t *testing.T) {
	d := setupDrive(t)
	ctx := context.Background()

	id, err := d.UploadOrReplace(ctx, d.Root(), "junk.bak", "junk", "", "")
	require.NoError(t, err)

	require.NoError(t, d.MoveToTrash(ctx, id))

	_, err = d.FetchContent(ctx, id)
	require.Error(t, err)

	trashed, err := d.ListChildren(ctx, TrashFolderName)
	require.NoError(t, err)
	require.Len(t, trashed, 1)
	assert.Equal(t, "junk.bak", trashed[0].Name)
}

func TestMoveToTrashAvoidsClobber(t *testing.T) {
	d := setupDrive(t)
	ctx := context.Background()

	first, err := d.UploadOrReplace(ctx, d.Root(), "dup.txt", "first", "", "")
	require.NoError(t, err)
	require.NoError(t, d.MoveToTrash(ctx, first))

	second, err := d.UploadOrReplace(ctx, d.Root(), "dup.txt", "second", "", "")
	require.NoError(t, err)
	require.NoError(t, d.MoveToTrash(ctx, second))

	trashed, err := d.ListChildren(ctx, TrashFolderName)
	require.NoError(t, err)
	// Both copies survive; the collision got a distinguishing prefix.
	assert.Len(t, trashed, 2)
}

func TestResolveRejectsEscape(t *testing.T) {
	d := setupDrive(t)
	ctx := context.Background()

	_, err := d.FetchContent(ctx, "../outside.txt")
	require.Error(t, err)

	_, err = d.ListChildren(ctx, "..")
	require.Error(t, err)

	err = d.MoveToTrash(ctx, "../../etc/passwd")
	require.Error(t, err)
}

func TestCanceledContext(t *testing.T) {
	d := setupDrive(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := d.ListChildren(ctx, d.Root())
	require.Error(t, err)

	_, err = d.FetchContent(ctx, "x")
	require.Error(t, err)
}

func TestModifiedTimeIsPopulated(t *testing.T) {
	d := setupDrive(t)
	ctx := context.Background()

	before := time.Now().Add(-time.Minute)
	_, err := d.UploadOrReplace(ctx, d.Root(), "a.txt", "a", "", "")
	require.NoError(t, err)

	children, err := d.ListChildren(ctx, d.Root())
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.True(t, children[0].ModifiedTime.After(before))
}
