package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiskStore(t *testing.T) {
	t.Run("Should sort files into type subfolders with timestamped names", func(t *testing.T) {
		dir := t.TempDir()
		store, err := NewDiskStore(dir)
		require.NoError(t, err)

		att, err := store.Save([]byte("content"), "req-1", "my quote.pdf")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(att.FileURL, "/files/pdf/req-1_"))
		assert.True(t, strings.HasSuffix(att.FileURL, "_my_quote.pdf"))
		assert.Equal(t, "my quote.pdf", att.FileDisplayName)

		data, err := os.ReadFile(filepath.Join(dir, strings.TrimPrefix(att.FileURL, "/files/")))
		require.NoError(t, err)
		assert.Equal(t, "content", string(data))
	})

	t.Run("Should route images and unknown extensions separately", func(t *testing.T) {
		store, err := NewDiskStore(t.TempDir())
		require.NoError(t, err)

		img, err := store.Save([]byte("x"), "req-1", "plan.PNG")
		require.NoError(t, err)
		assert.Contains(t, img.FileURL, "/files/image/")

		other, err := store.Save([]byte("x"), "req-1", "notes.docx")
		require.NoError(t, err)
		assert.Contains(t, other.FileURL, "/files/others/")

		unnamed, err := store.Save([]byte("x"), "req-1", "")
		require.NoError(t, err)
		assert.Contains(t, unnamed.FileURL, "unnamed_file")
	})

	t.Run("Should remove stored files and ignore missing ones", func(t *testing.T) {
		dir := t.TempDir()
		store, err := NewDiskStore(dir)
		require.NoError(t, err)

		att, err := store.Save([]byte("x"), "req-1", "a.pdf")
		require.NoError(t, err)

		require.NoError(t, store.Remove(att.FileURL))
		_, statErr := os.Stat(filepath.Join(dir, strings.TrimPrefix(att.FileURL, "/files/")))
		assert.True(t, os.IsNotExist(statErr))

		assert.NoError(t, store.Remove(att.FileURL))
	})

	t.Run("Should not escape the base directory on removal", func(t *testing.T) {
		dir := t.TempDir()
		store, err := NewDiskStore(filepath.Join(dir, "uploads"))
		require.NoError(t, err)

		outside := filepath.Join(dir, "secret.txt")
		require.NoError(t, os.WriteFile(outside, []byte("keep"), 0o644))

		require.NoError(t, store.Remove("/files/../secret.txt"))
		_, statErr := os.Stat(outside)
		assert.NoError(t, statErr)
	})
}
