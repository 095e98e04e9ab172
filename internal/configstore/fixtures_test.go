package configstore

import (
	"testing"

	"github.com/lychee-technology/filterdetect"
	"github.com/stretchr/testify/require"
)

// sampleNodes returns a small types and filters pair.
func sampleNodes(t *testing.T) []*Node {
	t.Helper()
	types := NewNode(filterdetect.TypesNodePath)
	require.NoError(t, types.Add("graphic_png", map[string]any{
		"MediaType":  "image/png",
		"Extensions": []string{"png"},
	}))
	require.NoError(t, types.Add("graphic_svg", map[string]any{
		"MediaType":  "image/svg+xml",
		"Extensions": []string{"svg", "svgz"},
	}))

	filters := NewNode(filterdetect.FiltersNodePath)
	require.NoError(t, filters.Add("PNG - Portable Network Graphic", map[string]any{
		"Type":       "graphic_png",
		"UIName":     "PNG - Portable Network Graphic",
		"Flags":      []string{"import"},
		"FormatName": "SVIPNG",
	}))
	require.NoError(t, filters.Add("svg_export", map[string]any{
		"Type":       "graphic_svg",
		"UIName":     "SVG - Scalable Vector Graphics",
		"Flags":      []string{"export"},
		"FormatName": "SVESVG",
	}))
	return []*Node{types, filters}
}

// requireSameNode compares names, order and properties.
func requireSameNode(t *testing.T, want *Node, got filterdetect.NodeAccess) {
	t.Helper()
	require.NotNil(t, got)
	require.Equal(t, want.ElementNames(), got.ElementNames())
	for _, e := range want.Entries() {
		ps, ok := got.ByName(e.Name)
		require.True(t, ok, e.Name)
		for k, v := range e.Properties {
			gv, ok := ps.Property(k)
			require.True(t, ok, "%s.%s", e.Name, k)
			require.Equal(t, v, gv, "%s.%s", e.Name, k)
		}
	}
}
