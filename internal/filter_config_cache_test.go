package internal

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/lychee-technology/filterdetect"
	"github.com/lychee-technology/filterdetect/internal/configstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type providerFunc func(ctx context.Context, nodePath string) (filterdetect.NodeAccess, error)

func (f providerFunc) OpenNode(ctx context.Context, nodePath string) (filterdetect.NodeAccess, error) {
	return f(ctx, nodePath)
}

func mustNode(t *testing.T, path string, entries map[string]map[string]any, order ...string) *configstore.Node {
	t.Helper()
	n := configstore.NewNode(path)
	for _, name := range order {
		require.NoError(t, n.Add(name, entries[name]))
	}
	return n
}

// graphicConfig returns a small configuration exercising the skip rules.
func graphicConfig(t *testing.T) *configstore.MemoryStore {
	t.Helper()
	types := mustNode(t, filterdetect.TypesNodePath, map[string]map[string]any{
		"graphic_png":   {"MediaType": "image/png", "Extensions": []string{"png"}},
		"graphic_svg":   {"MediaType": "image/svg+xml", "Extensions": []string{"*.svg", "svgz"}},
		"graphic_xyz":   {"MediaType": "image/x-xyz", "Extensions": []string{"*.xyz"}},
		"graphic_noext": {"MediaType": "image/x-none", "Extensions": []string{}},
	}, "graphic_png", "graphic_svg", "graphic_xyz", "graphic_noext")

	filters := mustNode(t, filterdetect.FiltersNodePath, map[string]map[string]any{
		"PNG - Portable Network Graphic": {
			"Type": "graphic_png", "UIName": "PNG - Portable Network Graphic", "Flags": []string{"import"},
			"FormatName": "SVIPNG", "RealFilterName": "png_Portable_Network_Graphic",
		},
		"svg_both": {
			"Type": "graphic_svg", "UIName": "SVG Both", "Flags": []string{"import", "export"}, "FormatName": "SVISVG",
		},
		"svg_import": {
			"Type": "graphic_svg", "UIName": "SVG - Scalable Vector Graphics", "Flags": []string{"IMPORT"},
			"FormatName": "SVISVG", "RealFilterName": "svg_Scalable_Vector_Graphics",
		},
		"xyz_import": {"Type": "graphic_xyz", "UIName": "XYZ", "Flags": []string{"import"}, "FormatName": "XYZ"},
		"orphan":     {"Type": "graphic_missing", "UIName": "Orphan", "Flags": []string{"import"}, "FormatName": "SVBMP"},
		"noext":      {"Type": "graphic_noext", "UIName": "None", "Flags": []string{"export"}, "FormatName": "SVBMP"},
		"noflags":    {"Type": "graphic_png", "UIName": "No Flags", "FormatName": "SVIPNG"},
		"bogusflag":  {"Type": "graphic_png", "UIName": "Bogus", "Flags": []string{"both"}, "FormatName": "SVIPNG"},
		"png_export": {
			"Type": "graphic_png", "UIName": "PNG Export", "Flags": []string{"export"},
			"FormatName": "SVEPNG", "RealFilterName": "png_Export",
		},
		"png_export_dup": {"Type": "graphic_png", "UIName": "png export", "Flags": []string{"export"}, "FormatName": "SVBMP"},
	}, "PNG - Portable Network Graphic", "svg_both", "svg_import", "xyz_import", "orphan", "noext", "noflags", "bogusflag", "png_export", "png_export_dup")

	return configstore.NewMemoryStore(types, filters)
}

func newConfigCache(t *testing.T, provider filterdetect.ConfigurationProvider) *FilterConfigCache {
	t.Helper()
	c, err := NewFilterConfigCache(context.Background(), true, provider)
	require.NoError(t, err)
	return c
}

func TestFilterConfigCache_BuiltinPNG(t *testing.T) {
	c, err := NewFilterConfigCache(context.Background(), false, nil)
	require.NoError(t, err)
	assert.Equal(t, CacheSourceBuiltin, c.Source())

	n := c.GetImportFormatNumberForExtension("png")
	require.NotEqual(t, filterdetect.FormatNotFound, n)
	assert.Equal(t, "SVIPNG", c.GetImportFilterName(n))
	assert.True(t, c.IsImportPixelFormat(n))
	assert.Equal(t, "png", c.GetImportFormatName(n))
	assert.Equal(t, "png", c.GetImportFilterType(n))
	assert.Equal(t, "*.png", c.GetImportWildcard(n, 0))

	e := c.GetExportFormatNumberForShortName("PNG")
	require.NotEqual(t, filterdetect.FormatNotFound, e)
	assert.Equal(t, "SVEPNG", c.GetExportFilterName(e))
	assert.True(t, c.IsExportPixelFormat(e))
}

func TestFilterConfigCache_BuiltinCounts(t *testing.T) {
	c, err := NewFilterConfigCache(context.Background(), false, nil)
	require.NoError(t, err)

	assert.Equal(t, uint16(25), c.GetImportFormatCount())
	assert.Equal(t, uint16(12), c.GetExportFormatCount())

	// table order defines format numbers
	assert.Equal(t, uint16(0), c.GetImportFormatNumberForExtension("bmp"))
	assert.Equal(t, uint16(1), c.GetImportFormatNumberForExtension("dxf"))
	assert.Equal(t, "SVWMF", c.GetExportFilterName(c.GetExportFormatNumberForTypeName("wmf")))

	// vector formats are not raster
	assert.False(t, c.IsImportPixelFormat(c.GetImportFormatNumberForExtension("svg")))
	assert.False(t, c.IsImportPixelFormat(c.GetImportFormatNumberForExtension("eps")))
	assert.Equal(t, filterdetect.FormatNotFound, c.GetExportFormatNumberForShortName("dxf"))
}

func TestFilterConfigCache_ConfigurationPopulation(t *testing.T) {
	rec := recordTelemetry(t)
	c := newConfigCache(t, graphicConfig(t))
	assert.Equal(t, CacheSourceConfiguration, c.Source())

	imports := c.ImportEntries()
	require.Len(t, imports, 3)
	assert.Equal(t, "PNG - Portable Network Graphic", imports[0].InternalFilterName)
	assert.Equal(t, "svg_import", imports[1].InternalFilterName)
	assert.Equal(t, "xyz_import", imports[2].InternalFilterName)

	exports := c.ExportEntries()
	require.Len(t, exports, 2)
	assert.Equal(t, "png_export", exports[0].InternalFilterName)
	assert.Equal(t, "png_export_dup", exports[1].InternalFilterName)

	png := imports[0]
	assert.Equal(t, "SVIPNG", png.FilterName)
	assert.Equal(t, "image/png", png.MediaType)
	assert.Equal(t, "graphic_png", png.Type)
	assert.Equal(t, "png_Portable_Network_Graphic", png.FilterType)
	assert.Equal(t, []string{"png"}, png.Extensions)
	assert.Equal(t, filterdetect.FilterFlagImport, png.Flags)
	assert.True(t, png.IsPixelFormat)

	metrics := rec.named("filter_cache_entries")
	require.Len(t, metrics, 2)
	assert.Equal(t, int64(3), metrics[0].value)
	assert.Equal(t, int64(2), metrics[1].value)
	assert.Equal(t, CacheSourceConfiguration, metrics[0].labels["source"])
}

func TestFilterConfigCache_MultiFlagEntrySkipped(t *testing.T) {
	c := newConfigCache(t, graphicConfig(t))

	assert.Equal(t, filterdetect.FormatNotFound, c.GetImportFormatNumber("SVG Both"))
	assert.Equal(t, filterdetect.FormatNotFound, c.GetExportFormatNumber("SVG Both"))
	for _, e := range append(c.ImportEntries(), c.ExportEntries()...) {
		assert.NotEqual(t, "svg_both", e.InternalFilterName)
		assert.NotEqual(t, "noflags", e.InternalFilterName)
		assert.NotEqual(t, "bogusflag", e.InternalFilterName)
		assert.NotEqual(t, "orphan", e.InternalFilterName)
		assert.NotEqual(t, "noext", e.InternalFilterName)
	}
}

func TestFilterConfigCache_ShortNameStripsWildcard(t *testing.T) {
	c := newConfigCache(t, graphicConfig(t))

	n := c.GetImportFormatNumberForShortName("xyz")
	require.Equal(t, uint16(2), n)
	assert.Equal(t, "xyz", c.GetImportFormatShortName(n))
	assert.Equal(t, "*.xyz", c.GetImportFormatExtension(n, 0))
	assert.Equal(t, "*.*.xyz", c.GetImportWildcard(n, 0))

	svg := c.GetImportFormatNumberForShortName("SVG")
	require.Equal(t, uint16(1), svg)
	assert.Equal(t, "svgz", c.GetImportFormatExtension(svg, 1))
	assert.Equal(t, "*.*.svg", c.GetImportWildcard(svg, 0))
	assert.Equal(t, "*.svgz", c.GetImportWildcard(svg, 1))
	assert.Equal(t, svg, c.GetImportFormatNumberForExtension("SVGZ"))
	assert.False(t, c.IsImportPixelFormat(svg))
}

func TestFilterConfigCache_NameLookups(t *testing.T) {
	c := newConfigCache(t, graphicConfig(t))

	assert.Equal(t, uint16(0), c.GetImportFormatNumber("png - portable network graphic"))
	assert.Equal(t, uint16(1), c.GetImportFormatNumberForTypeName("GRAPHIC_SVG"))
	assert.Equal(t, filterdetect.FormatNotFound, c.GetImportFormatNumberForTypeName("graphic_missing"))
	assert.Equal(t, "svg_Scalable_Vector_Graphics", c.GetImportFilterTypeName(1))
	assert.Equal(t, "image/svg+xml", c.GetImportFormatMediaType(1))

	// first match wins on ties
	assert.Equal(t, uint16(0), c.GetExportFormatNumber("PNG EXPORT"))
	assert.Equal(t, uint16(0), c.GetExportFormatNumberForMediaType("IMAGE/PNG"))
	assert.Equal(t, uint16(0), c.GetExportFormatNumberForShortName("png"))
	assert.Equal(t, uint16(0), c.GetExportFormatNumberForTypeName("graphic_png"))

	assert.Equal(t, "png_export", c.GetExportInternalFilterName(0))
	assert.Equal(t, "PNG Export", c.GetExportFormatName(0))
	assert.Equal(t, "png", c.GetExportFormatShortName(0))
	assert.Equal(t, "graphic_png", c.GetExportFilterType(0))
	assert.Equal(t, "png_Export", c.GetExportFilterTypeName(0))
	assert.Equal(t, "image/png", c.GetExportFormatMediaType(0))
	assert.Equal(t, "*.png", c.GetExportWildcard(0, 0))
	assert.Equal(t, "SVBMP", c.GetExportFilterName(1))
	assert.True(t, c.IsExportPixelFormat(1))
}

func TestFilterConfigCache_OutOfRangeDefaults(t *testing.T) {
	c := newConfigCache(t, graphicConfig(t))

	for _, n := range []uint16{3, 100, filterdetect.FormatNotFound} {
		assert.Empty(t, c.GetImportFilterName(n))
		assert.Empty(t, c.GetImportFormatName(n))
		assert.Empty(t, c.GetImportFormatMediaType(n))
		assert.Empty(t, c.GetImportFormatShortName(n))
		assert.Empty(t, c.GetImportFormatExtension(n, 0))
		assert.Empty(t, c.GetImportFilterType(n))
		assert.Empty(t, c.GetImportFilterTypeName(n))
		assert.Empty(t, c.GetImportWildcard(n, 0))
		assert.False(t, c.IsImportPixelFormat(n))

		assert.Empty(t, c.GetExportFilterName(n))
		assert.Empty(t, c.GetExportFormatName(n))
		assert.Empty(t, c.GetExportFormatMediaType(n))
		assert.Empty(t, c.GetExportFormatShortName(n))
		assert.Empty(t, c.GetExportFormatExtension(n, 0))
		assert.Empty(t, c.GetExportInternalFilterName(n))
		assert.Empty(t, c.GetExportFilterType(n))
		assert.Empty(t, c.GetExportFilterTypeName(n))
		assert.Empty(t, c.GetExportWildcard(n, 0))
		assert.False(t, c.IsExportPixelFormat(n))
	}

	// extension index out of range on a valid format
	assert.Empty(t, c.GetImportFormatExtension(0, 1))
	assert.Empty(t, c.GetImportFormatExtension(0, -1))
	assert.Empty(t, c.GetExportWildcard(0, 5))
}

func TestFilterConfigCache_EntriesAreCopies(t *testing.T) {
	c := newConfigCache(t, graphicConfig(t))

	entries := c.ImportEntries()
	entries[0].Extensions[0] = "mutated"
	entries[0].FilterName = "mutated"

	assert.Equal(t, "png", c.GetImportFormatExtension(0, 0))
	assert.Equal(t, "SVIPNG", c.GetImportFilterName(0))
}

func TestFilterConfigCache_UnavailableConfiguration(t *testing.T) {
	filtersOnly := configstore.NewMemoryStore(configstore.NewNode(filterdetect.FiltersNodePath))

	tests := []struct {
		name     string
		provider filterdetect.ConfigurationProvider
	}{
		{"nil provider", nil},
		{"missing types node", filtersOnly},
		{"store unavailable", providerFunc(func(context.Context, string) (filterdetect.NodeAccess, error) {
			return nil, filterdetect.NewStoreUnavailableError("connection refused", errors.New("dial tcp"))
		})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newConfigCache(t, tt.provider)
			assert.Equal(t, uint16(0), c.GetImportFormatCount())
			assert.Equal(t, uint16(0), c.GetExportFormatCount())
			assert.Equal(t, filterdetect.FormatNotFound, c.GetImportFormatNumberForExtension("png"))
		})
	}
}

func TestFilterConfigCache_SevereProviderError(t *testing.T) {
	provider := providerFunc(func(context.Context, string) (filterdetect.NodeAccess, error) {
		return nil, filterdetect.NewRuntimeError("configuration backend crashed", nil)
	})

	c, err := NewFilterConfigCache(context.Background(), true, provider)
	assert.Nil(t, c)
	var rt *filterdetect.RuntimeError
	assert.True(t, errors.As(err, &rt))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = NewFilterConfigCache(ctx, true, graphicConfig(t))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFilterConfigCache_FuzzingUsesBuiltinTable(t *testing.T) {
	filterdetect.SetFuzzing(true)
	t.Cleanup(func() { filterdetect.SetFuzzing(false) })

	called := false
	provider := providerFunc(func(context.Context, string) (filterdetect.NodeAccess, error) {
		called = true
		return nil, errors.New("should not be consulted")
	})

	c, err := NewFilterConfigCache(context.Background(), true, provider)
	require.NoError(t, err)
	assert.False(t, called)
	assert.Equal(t, CacheSourceBuiltin, c.Source())
	assert.Equal(t, uint16(25), c.GetImportFormatCount())
}

func TestFilterConfigCache_FuzzingOptionUsesBuiltinTable(t *testing.T) {
	called := false
	provider := providerFunc(func(context.Context, string) (filterdetect.NodeAccess, error) {
		called = true
		return nil, errors.New("should not be consulted")
	})

	c, err := NewFilterConfigCache(context.Background(), true, provider, WithFuzzing(true))
	require.NoError(t, err)
	assert.False(t, called)
	assert.Equal(t, CacheSourceBuiltin, c.Source())
	assert.False(t, filterdetect.IsFuzzing())

	c, err = NewFilterConfigCache(context.Background(), true, graphicConfig(t), WithFuzzing(false))
	require.NoError(t, err)
	assert.Equal(t, CacheSourceConfiguration, c.Source())
}

func TestFilterConfigCache_WrongTypedEntryKeepsSiblings(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "types.json"), []byte(`{"entries": [
		{"name": "graphic_png", "MediaType": "image/png", "Extensions": ["png"]},
		{"name": "graphic_bmp", "MediaType": "image/bmp", "Extensions": 7}
	]}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "filters.json"), []byte(`{"entries": [
		{"name": "png_Import", "Type": "graphic_png", "Flags": ["import"], "FormatName": "SVIPNG"},
		{"name": "bmp_Import", "Type": "graphic_bmp", "Flags": 7, "FormatName": "SVBMP"},
		{"name": "gif_Import", "Type": "graphic_png", "Flags": ["import"], "FormatName": null}
	]}`), 0o644))

	c := newConfigCache(t, configstore.NewJSONStore(dir))
	assert.Equal(t, CacheSourceConfiguration, c.Source())
	require.Equal(t, uint16(2), c.GetImportFormatCount())

	n := c.GetImportFormatNumberForExtension("png")
	require.Equal(t, uint16(0), n)
	assert.Equal(t, "SVIPNG", c.GetImportFilterName(n))
	assert.Equal(t, "", c.GetImportFilterName(1))
	assert.Equal(t, "gif_Import", c.ImportEntries()[1].InternalFilterName)
	assert.Equal(t, filterdetect.FormatNotFound, c.GetImportFormatNumberForShortName("bmp"))
}

func TestFilterConfigCache_GenerationsDiffer(t *testing.T) {
	a, err := NewFilterConfigCache(context.Background(), false, nil)
	require.NoError(t, err)
	b, err := NewFilterConfigCache(context.Background(), false, nil)
	require.NoError(t, err)
	assert.NotEqual(t, a.Generation(), b.Generation())
}

func TestIsPixelFilterName(t *testing.T) {
	assert.True(t, IsPixelFilterName("SVIPNG"))
	assert.True(t, IsPixelFilterName("svipng"))
	assert.True(t, IsPixelFilterName("SVEWEBP"))
	assert.False(t, IsPixelFilterName("SVISVG"))
	assert.False(t, IsPixelFilterName("SVWMF"))
	assert.False(t, IsPixelFilterName(""))
}
