package evidence

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestRepo(t *testing.T) *Repo {
	t.Helper()
	repo, err := NewRepo(t.TempDir())
	require.NoError(t, err)
	return repo
}

func TestSaveFileAndList(t *testing.T) {
	repo := newTestRepo(t)

	ref, err := repo.SaveFile("order-1", "spill.jpg", strings.NewReader("jpeg-bytes"))
	require.NoError(t, err)
	require.Contains(t, ref, "spill.jpg")

	refs := repo.List("order-1")
	require.Equal(t, []string{ref}, refs)
	require.Empty(t, repo.List("order-2"))
}

func TestSaveImagesDataURL(t *testing.T) {
	repo := newTestRepo(t)

	png := "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("png-bytes"))
	saved := repo.SaveImages("order-1", []string{
		png,
		"data:image/png;base64,%%%not-base64%%%",
		"https://example.com/external.jpg",
	})
	require.Len(t, saved, 1)
	require.True(t, strings.HasSuffix(saved[0], ".png"))
}

func TestSaveImagesAcceptsOwnReferences(t *testing.T) {
	repo := newTestRepo(t)

	ref, err := repo.SaveFile("order-1", "a.jpg", strings.NewReader("x"))
	require.NoError(t, err)

	saved := repo.SaveImages("order-1", []string{ref, "/etc/passwd"})
	require.Equal(t, []string{ref}, saved)
}

func TestPurge(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.SaveFile("order-1", "a.jpg", strings.NewReader("x"))
	require.NoError(t, err)
	_, err = repo.SaveFile("order-1", "b.jpg", strings.NewReader("y"))
	require.NoError(t, err)

	require.Equal(t, 2, repo.Purge("order-1"))
	require.Empty(t, repo.List("order-1"))
	require.Zero(t, repo.Purge("order-1"))
}

func TestSanitizeRejectsTraversal(t *testing.T) {
	repo := newTestRepo(t)

	ref, err := repo.SaveFile("../../outside", "../evil.jpg", strings.NewReader("x"))
	require.NoError(t, err)
	require.NotContains(t, ref, "..")
}
