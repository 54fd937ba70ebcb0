package main

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePNG(t *testing.T, path string) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.White)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func TestLoadImages(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "001.png"))
	writePNG(t, filepath.Join(dir, "002.png"))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	t.Run("directory", func(t *testing.T) {
		images, err := loadImages(dir)
		require.NoError(t, err)
		assert.Len(t, images, 2)
	})

	t.Run("single file", func(t *testing.T) {
		images, err := loadImages(filepath.Join(dir, "001.png"))
		require.NoError(t, err)
		assert.Len(t, images, 1)
	})

	t.Run("empty directory", func(t *testing.T) {
		_, err := loadImages(t.TempDir())
		assert.Error(t, err)
	})

	t.Run("missing path", func(t *testing.T) {
		_, err := loadImages(filepath.Join(dir, "nope"))
		assert.Error(t, err)
	})
}

func TestRunToken_RequiresCompanyAndUser(t *testing.T) {
	companyID = ""
	t.Cleanup(func() { companyID = "" })

	require.NoError(t, tokenCmd.Flags().Set("user", "u-1"))
	err := runToken(tokenCmd, nil)
	assert.ErrorContains(t, err, "--company and --user are required")

	companyID = "c-1"
	require.NoError(t, tokenCmd.Flags().Set("role", "kiosk"))
	err = runToken(tokenCmd, nil)
	assert.ErrorContains(t, err, "unknown role")
}
