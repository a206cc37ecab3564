package Photos

import (
	"bytes"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngOf(t *testing.T, w, h int) *bytes.Buffer {
	t.Helper()
	img := imaging.New(w, h, color.NRGBA{R: 40, G: 160, B: 60, A: 255})
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, img, imaging.PNG))
	return &buf
}

func TestSave_DownscalesAndThumbnails(t *testing.T) {
	store := NewStore(t.TempDir(), 400)

	rel, err := store.Save("task-1", "entry-1", pngOf(t, 1200, 600))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(rel, "task-1/entry-1-"))

	img, err := imaging.Open(filepath.Join(store.Dir, filepath.FromSlash(rel)))
	require.NoError(t, err)
	assert.Equal(t, image.Pt(400, 200), img.Bounds().Size())

	thumb, err := imaging.Open(filepath.Join(store.Dir, filepath.FromSlash(ThumbName(rel))))
	require.NoError(t, err)
	assert.Equal(t, image.Pt(320, 320), thumb.Bounds().Size())
}

func TestSave_KeepsSmallImages(t *testing.T) {
	store := NewStore(t.TempDir(), 400)
	rel, err := store.Save("t", "e", pngOf(t, 100, 50))
	require.NoError(t, err)

	img, err := imaging.Open(filepath.Join(store.Dir, filepath.FromSlash(rel)))
	require.NoError(t, err)
	assert.Equal(t, image.Pt(100, 50), img.Bounds().Size())
}

func TestSave_Rejects(t *testing.T) {
	store := NewStore(t.TempDir(), 400)

	_, err := store.Save("t", "e", strings.NewReader("not an image"))
	assert.ErrorIs(t, err, ErrNotAnImage)

	_, err = store.Save("../etc", "e", pngOf(t, 10, 10))
	assert.ErrorIs(t, err, ErrBadPath)
}

func TestRemove(t *testing.T) {
	store := NewStore(t.TempDir(), 400)
	rel, err := store.Save("t", "e", pngOf(t, 10, 10))
	require.NoError(t, err)

	require.NoError(t, store.Remove(rel))
	_, err = os.Stat(filepath.Join(store.Dir, filepath.FromSlash(rel)))
	assert.True(t, os.IsNotExist(err))

	assert.ErrorIs(t, store.Remove("../outside.jpg"), ErrBadPath)
}
