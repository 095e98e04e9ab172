package internal

import (
	"github.com/lychee-technology/filterdetect"
	"github.com/lychee-technology/filterdetect/internal/configstore"
)

// BuiltinFilter is one row of the compiled-in filter table: extension, numeric flags, filter name.
type BuiltinFilter struct {
	Extension  string
	Flags      string
	FilterName string
}

// builtinFilters is used when configuration is not consulted. Order defines format numbers.
var builtinFilters = []BuiltinFilter{
	{"bmp", "1", "SVBMP"},
	{"bmp", "2", "SVBMP"},
	{"dxf", "1", "SVDXF"},
	{"eps", "1", "SVIEPS"},
	{"eps", "2", "SVEEPS"},
	{"gif", "1", "SVIGIF"},
	{"gif", "2", "SVEGIF"},
	{"jpg", "1", "SVIJPEG"},
	{"jpg", "2", "SVEJPEG"},
	{"mov", "1", "SVMOV"},
	{"mov", "2", "SVMOV"},
	{"met", "1", "SVMET"},
	{"png", "1", "SVIPNG"},
	{"png", "2", "SVEPNG"},
	{"pct", "1", "SVPICT"},
	{"pcd", "1", "SVPCD"},
	{"psd", "1", "SVPSD"},
	{"pcx", "1", "SVPCX"},
	{"pbm", "1", "SVPBM"},
	{"pgm", "1", "SVPBM"},
	{"ppm", "1", "SVPBM"},
	{"ras", "1", "SVRAS"},
	{"svm", "1", "SVMETAFILE"},
	{"svm", "2", "SVMETAFILE"},
	{"tga", "1", "SVTGA"},
	{"tif", "1", "SVTIFF"},
	{"tif", "2", "SVTIFF"},
	{"emf", "1", "SVEMF"},
	{"emf", "2", "SVEMF"},
	{"wmf", "1", "SVWMF"},
	{"wmf", "2", "SVWMF"},
	{"xbm", "1", "SVIXBM"},
	{"xpm", "1", "SVIXPM"},
	{"svg", "1", "SVISVG"},
	{"svg", "2", "SVESVG"},
	{"webp", "1", "SVIWEBP"},
	{"webp", "2", "SVEWEBP"},
}

// BuiltinFilters returns a copy of the built-in table in order.
func BuiltinFilters() []BuiltinFilter {
	out := make([]BuiltinFilter, len(builtinFilters))
	copy(out, builtinFilters)
	return out
}

// BuiltinConfigNodes renders the built-in table as types and filters configuration nodes.
// A cache built from them holds the same entries as the built-in population.
func BuiltinConfigNodes() ([]*configstore.Node, error) {
	types := configstore.NewNode(filterdetect.TypesNodePath)
	filters := configstore.NewNode(filterdetect.FiltersNodePath)

	for _, row := range builtinFilters {
		if _, ok := types.ByName(row.Extension); !ok {
			if err := types.Add(row.Extension, map[string]any{
				filterdetect.PropExtensions: []string{row.Extension},
			}); err != nil {
				return nil, err
			}
		}

		flags := filterdetect.ParseFilterFlagBits(row.Flags)
		for _, dir := range []filterdetect.FilterFlags{filterdetect.FilterFlagImport, filterdetect.FilterFlagExport} {
			if flags&dir == 0 {
				continue
			}
			if err := filters.Add(row.Extension+"_"+dir.String(), map[string]any{
				filterdetect.PropType:       row.Extension,
				filterdetect.PropUIName:     row.Extension,
				filterdetect.PropFlags:      []string{dir.String()},
				filterdetect.PropFormatName: row.FilterName,
			}); err != nil {
				return nil, err
			}
		}
	}
	return []*configstore.Node{types, filters}, nil
}
