package configstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/lychee-technology/filterdetect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONStore_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	nodes := sampleNodes(t)
	require.NoError(t, WriteJSONDirectory(dir, append(nodes, NewNode("/not/a/document"))))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	store := NewJSONStore(dir)
	for _, want := range nodes {
		got, err := store.OpenNode(context.Background(), want.Path)
		require.NoError(t, err)
		requireSameNode(t, want, got)
	}
}

func TestJSONStore_MissingFile(t *testing.T) {
	store := NewJSONStore(t.TempDir())

	_, err := store.OpenNode(context.Background(), filterdetect.TypesNodePath)
	require.Error(t, err)
	assert.True(t, filterdetect.IsNodeNotFound(err))
	assert.False(t, filterdetect.IsSevere(err))
}

func TestJSONStore_UnknownNode(t *testing.T) {
	_, err := NewJSONStore(t.TempDir()).OpenNode(context.Background(), "/org.openoffice.Office.Common")
	assert.True(t, filterdetect.IsNodeNotFound(err))
}

func TestJSONStore_ReadFailure(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "types.json"), 0o755))

	_, err := NewJSONStore(dir).OpenNode(context.Background(), filterdetect.TypesNodePath)
	require.Error(t, err)
	assert.ErrorIs(t, err, filterdetect.ErrStoreUnavailable)
}

func TestJSONStore_InvalidDocument(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", `{"entries": [`},
		{"missing entries", `{}`},
		{"missing name", `{"entries": [{"Flags": ["import"]}]}`},
		{"empty name", `{"entries": [{"name": ""}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			require.NoError(t, os.WriteFile(filepath.Join(dir, "filters.json"), []byte(tt.body), 0o644))

			_, err := NewJSONStore(dir).OpenNode(context.Background(), filterdetect.FiltersNodePath)
			require.Error(t, err)
			var fe *filterdetect.FilterError
			require.True(t, errors.As(err, &fe))
			assert.Equal(t, filterdetect.ErrCodeInvalidDocument, fe.Code)
		})
	}
}

func TestJSONStore_WrongTypedPropertiesAreDropped(t *testing.T) {
	dir := t.TempDir()
	body := `{"entries": [
		{"name": "png_Import", "Type": "png", "Flags": ["import"]},
		{"name": "bmp_Import", "Type": "bmp", "Flags": 7},
		{"name": "gif_Import", "Type": {"id": "gif"}, "Flags": [1], "UIName": null}
	]}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "filters.json"), []byte(body), 0o644))

	node, err := NewJSONStore(dir).OpenNode(context.Background(), filterdetect.FiltersNodePath)
	require.NoError(t, err)
	assert.Equal(t, []string{"png_Import", "bmp_Import", "gif_Import"}, node.ElementNames())

	png, ok := node.ByName("png_Import")
	require.True(t, ok)
	assert.Equal(t, []string{"import"}, filterdetect.PropertyStrings(png, "Flags"))

	bmp, ok := node.ByName("bmp_Import")
	require.True(t, ok)
	assert.Equal(t, "bmp", filterdetect.PropertyString(bmp, "Type"))
	_, ok = bmp.Property("Flags")
	assert.False(t, ok)

	gif, ok := node.ByName("gif_Import")
	require.True(t, ok)
	for _, prop := range []string{"Type", "Flags", "UIName"} {
		_, ok = gif.Property(prop)
		assert.False(t, ok, prop)
	}
}

func TestDecodeJSONDocument_PreservesOrder(t *testing.T) {
	data := []byte(`{"entries": [
		{"name": "webp", "Extensions": ["webp"]},
		{"name": "bmp", "Extensions": ["bmp", "dib"], "MediaType": "image/bmp"}
	]}`)

	node, err := DecodeJSONDocument(filterdetect.TypesNodePath, data)
	require.NoError(t, err)
	assert.Equal(t, []string{"webp", "bmp"}, node.ElementNames())

	bmp, ok := node.ByName("bmp")
	require.True(t, ok)
	assert.Equal(t, []string{"bmp", "dib"}, filterdetect.PropertyStrings(bmp, "Extensions"))
	assert.Equal(t, "image/bmp", filterdetect.PropertyString(bmp, "MediaType"))
}

func TestEncodeJSONDocument(t *testing.T) {
	node := NewNode(filterdetect.TypesNodePath)
	require.NoError(t, node.Add("png", map[string]any{"Extensions": []string{"png"}}))

	data, err := EncodeJSONDocument(node)
	require.NoError(t, err)
	assert.JSONEq(t, `{"entries": [{"name": "png", "Extensions": ["png"]}]}`, string(data))
}
