package internal

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/lychee-technology/filterdetect"
	"go.uber.org/zap"
)

// Cache population sources reported in logs and telemetry.
const (
	CacheSourceConfiguration = "configuration"
	CacheSourceBuiltin       = "builtin"
)

// pixelFilterNames are the raster filter names; matched case-insensitively.
var pixelFilterNames = []string{
	"SVBMP", "SVIGIF", "SVIPNG", "SVIJPEG", "SVTIFF", "SVIWEBP",
	"SVIXBM", "SVIXPM", "SVTGA", "SVPICT", "SVMET", "SVRAS",
	"SVPCX", "SVMOV", "SVPSD", "SVPCD", "SVPBM", "SVDXF",
	"SVEGIF", "SVEPNG", "SVEJPEG", "SVEWEBP",
}

// IsPixelFilterName reports whether name is a raster filter name.
func IsPixelFilterName(name string) bool {
	for _, p := range pixelFilterNames {
		if strings.EqualFold(name, p) {
			return true
		}
	}
	return false
}

// newFilterEntry sets the filter name and derives the pixel flag from it.
func newFilterEntry(filterName string) filterdetect.FilterEntry {
	return filterdetect.FilterEntry{
		FilterName:    filterName,
		IsPixelFormat: IsPixelFilterName(filterName),
	}
}

// FilterConfigCache holds the import and export filter lists. It is immutable after construction;
// format numbers are positions in those lists and only valid for the Generation that issued them.
type FilterConfigCache struct {
	generation uuid.UUID
	source     string
	imports    []filterdetect.FilterEntry
	exports    []filterdetect.FilterEntry
}

var _ filterdetect.GraphicFilterCache = (*FilterConfigCache)(nil)

// CacheOption adjusts how NewFilterConfigCache picks its source.
type CacheOption func(*cacheOptions)

type cacheOptions struct {
	fuzzing bool
}

// WithFuzzing forces the built-in table for this cache, in addition to the process-wide fuzzing mode.
func WithFuzzing(on bool) CacheOption {
	return func(o *cacheOptions) { o.fuzzing = on }
}

// NewFilterConfigCache builds a cache. With useConfig set and fuzzing off the entries come from
// provider, otherwise from the built-in table. Unavailable configuration leaves the cache empty;
// only severe errors are returned.
func NewFilterConfigCache(ctx context.Context, useConfig bool, provider filterdetect.ConfigurationProvider, opts ...CacheOption) (*FilterConfigCache, error) {
	var o cacheOptions
	for _, opt := range opts {
		opt(&o)
	}
	c := &FilterConfigCache{generation: uuid.New()}

	if useConfig && !o.fuzzing && !filterdetect.IsFuzzing() {
		c.source = CacheSourceConfiguration
		if err := c.implInit(ctx, provider); err != nil {
			return nil, err
		}
	} else {
		c.source = CacheSourceBuiltin
		c.implInitSmart()
	}

	zap.S().Infow("filter config cache built",
		"generation", c.generation.String(),
		"source", c.source,
		"import_count", len(c.imports),
		"export_count", len(c.exports))
	EmitCacheBuild(ctx, c.source, len(c.imports), len(c.exports))
	return c, nil
}

func openConfigNode(ctx context.Context, provider filterdetect.ConfigurationProvider, nodePath string) (filterdetect.NodeAccess, error) {
	node, err := provider.OpenNode(ctx, nodePath)
	if err != nil {
		if filterdetect.IsSevere(err) {
			return nil, err
		}
		zap.S().Warnw("configuration node unavailable", "node_path", nodePath, "error", err)
		return nil, nil
	}
	return node, nil
}

func (c *FilterConfigCache) implInit(ctx context.Context, provider filterdetect.ConfigurationProvider) error {
	if provider == nil {
		zap.S().Warnw("no configuration provider; filter cache left empty")
		return nil
	}

	types, err := openConfigNode(ctx, provider, filterdetect.TypesNodePath)
	if err != nil {
		return err
	}
	filters, err := openConfigNode(ctx, provider, filterdetect.FiltersNodePath)
	if err != nil {
		return err
	}
	if types == nil || filters == nil {
		return nil
	}

	for _, internalName := range filters.ElementNames() {
		filterSet, ok := filters.ByName(internalName)
		if !ok || filterSet == nil {
			continue
		}

		flags, ok := filterdetect.ParseFilterFlagList(filterdetect.PropertyStrings(filterSet, filterdetect.PropFlags))
		if !ok {
			zap.S().Debugw("skipping filter entry", "filter", internalName, "reason", "flags must be a single import or export value")
			continue
		}

		entry := newFilterEntry(filterdetect.PropertyString(filterSet, filterdetect.PropFormatName))
		entry.InternalFilterName = internalName
		entry.Type = filterdetect.PropertyString(filterSet, filterdetect.PropType)
		entry.UIName = filterdetect.PropertyString(filterSet, filterdetect.PropUIName)
		entry.FilterType = filterdetect.PropertyString(filterSet, filterdetect.PropRealFilterName)
		entry.Flags = flags

		typeSet, ok := types.ByName(entry.Type)
		if !ok || typeSet == nil {
			zap.S().Debugw("skipping filter entry", "filter", internalName, "type", entry.Type, "reason", "type not found")
			continue
		}
		entry.MediaType = filterdetect.PropertyString(typeSet, filterdetect.PropMediaType)
		entry.Extensions = filterdetect.PropertyStrings(typeSet, filterdetect.PropExtensions)

		if entry.ShortName() == "" {
			zap.S().Debugw("skipping filter entry", "filter", internalName, "type", entry.Type, "reason", "no extension")
			continue
		}

		c.add(entry)
	}
	return nil
}

func (c *FilterConfigCache) implInitSmart() {
	for _, row := range builtinFilters {
		entry := newFilterEntry(row.FilterName)
		entry.Extensions = []string{row.Extension}
		entry.Type = row.Extension
		entry.UIName = row.Extension
		entry.Flags = filterdetect.ParseFilterFlagBits(row.Flags)
		c.add(entry)
	}
}

func (c *FilterConfigCache) add(entry filterdetect.FilterEntry) {
	if entry.Flags.IsImport() {
		c.imports = append(c.imports, entry)
	}
	if entry.Flags.IsExport() {
		c.exports = append(c.exports, entry)
	}
}

// Generation identifies this cache instance.
func (c *FilterConfigCache) Generation() uuid.UUID { return c.generation }

// Source reports whether the entries came from configuration or the built-in table.
func (c *FilterConfigCache) Source() string { return c.source }

// ImportEntries returns a copy of the import list.
func (c *FilterConfigCache) ImportEntries() []filterdetect.FilterEntry { return cloneEntries(c.imports) }

// ExportEntries returns a copy of the export list.
func (c *FilterConfigCache) ExportEntries() []filterdetect.FilterEntry { return cloneEntries(c.exports) }

func cloneEntries(in []filterdetect.FilterEntry) []filterdetect.FilterEntry {
	out := make([]filterdetect.FilterEntry, len(in))
	for i, e := range in {
		e.Extensions = append([]string(nil), e.Extensions...)
		out[i] = e
	}
	return out
}

// entryAt returns nil for out-of-range format numbers.
func entryAt(list []filterdetect.FilterEntry, format uint16) *filterdetect.FilterEntry {
	if int(format) < len(list) {
		return &list[format]
	}
	return nil
}

func extensionAt(list []filterdetect.FilterEntry, format uint16, entry int) string {
	e := entryAt(list, format)
	if e == nil || entry < 0 || entry >= len(e.Extensions) {
		return ""
	}
	return e.Extensions[entry]
}

// wildcard returns "*." + ext, or "" for an empty extension. The extension is used as stored.
func wildcard(ext string) string {
	if ext == "" {
		return ""
	}
	return "*." + ext
}

// indexOf returns the position of the first entry matching fn, or FormatNotFound.
func indexOf(list []filterdetect.FilterEntry, fn func(e *filterdetect.FilterEntry) bool) uint16 {
	for i := range list {
		if i >= int(filterdetect.FormatNotFound) {
			break
		}
		if fn(&list[i]) {
			return uint16(i)
		}
	}
	return filterdetect.FormatNotFound
}

func count(list []filterdetect.FilterEntry) uint16 {
	if len(list) >= int(filterdetect.FormatNotFound) {
		return filterdetect.FormatNotFound - 1
	}
	return uint16(len(list))
}

func byUIName(name string) func(e *filterdetect.FilterEntry) bool {
	return func(e *filterdetect.FilterEntry) bool { return strings.EqualFold(e.UIName, name) }
}

func byShortName(name string) func(e *filterdetect.FilterEntry) bool {
	return func(e *filterdetect.FilterEntry) bool { return strings.EqualFold(e.ShortName(), name) }
}

func byType(typeName string) func(e *filterdetect.FilterEntry) bool {
	return func(e *filterdetect.FilterEntry) bool { return strings.EqualFold(e.Type, typeName) }
}

// ============================================================================
// Import accessors
// ============================================================================

func (c *FilterConfigCache) GetImportFormatCount() uint16 { return count(c.imports) }

func (c *FilterConfigCache) GetImportFilterName(format uint16) string {
	if e := entryAt(c.imports, format); e != nil {
		return e.FilterName
	}
	return ""
}

// GetImportFormatNumber finds an import entry by UI name.
func (c *FilterConfigCache) GetImportFormatNumber(formatName string) uint16 {
	return indexOf(c.imports, byUIName(formatName))
}

// GetImportFormatNumberForExtension matches ext against every extension of an entry.
func (c *FilterConfigCache) GetImportFormatNumberForExtension(ext string) uint16 {
	return indexOf(c.imports, func(e *filterdetect.FilterEntry) bool {
		for _, s := range e.Extensions {
			if strings.EqualFold(s, ext) {
				return true
			}
		}
		return false
	})
}

func (c *FilterConfigCache) GetImportFormatNumberForShortName(shortName string) uint16 {
	return indexOf(c.imports, byShortName(shortName))
}

func (c *FilterConfigCache) GetImportFormatNumberForTypeName(typeName string) uint16 {
	return indexOf(c.imports, byType(typeName))
}

func (c *FilterConfigCache) GetImportFormatName(format uint16) string {
	if e := entryAt(c.imports, format); e != nil {
		return e.UIName
	}
	return ""
}

func (c *FilterConfigCache) GetImportFormatMediaType(format uint16) string {
	if e := entryAt(c.imports, format); e != nil {
		return e.MediaType
	}
	return ""
}

func (c *FilterConfigCache) GetImportFormatShortName(format uint16) string {
	if e := entryAt(c.imports, format); e != nil {
		return e.ShortName()
	}
	return ""
}

func (c *FilterConfigCache) GetImportFormatExtension(format uint16, entry int) string {
	return extensionAt(c.imports, format, entry)
}

// GetImportFilterType returns the type identifier.
func (c *FilterConfigCache) GetImportFilterType(format uint16) string {
	if e := entryAt(c.imports, format); e != nil {
		return e.Type
	}
	return ""
}

// GetImportFilterTypeName returns the backing (real) filter name.
func (c *FilterConfigCache) GetImportFilterTypeName(format uint16) string {
	if e := entryAt(c.imports, format); e != nil {
		return e.FilterType
	}
	return ""
}

func (c *FilterConfigCache) GetImportWildcard(format uint16, entry int) string {
	return wildcard(c.GetImportFormatExtension(format, entry))
}

func (c *FilterConfigCache) IsImportPixelFormat(format uint16) bool {
	e := entryAt(c.imports, format)
	return e != nil && e.IsPixelFormat
}

// ============================================================================
// Export accessors
// ============================================================================

func (c *FilterConfigCache) GetExportFormatCount() uint16 { return count(c.exports) }

func (c *FilterConfigCache) GetExportFilterName(format uint16) string {
	if e := entryAt(c.exports, format); e != nil {
		return e.FilterName
	}
	return ""
}

// GetExportFormatNumber finds an export entry by UI name.
func (c *FilterConfigCache) GetExportFormatNumber(formatName string) uint16 {
	return indexOf(c.exports, byUIName(formatName))
}

func (c *FilterConfigCache) GetExportFormatNumberForMediaType(mediaType string) uint16 {
	return indexOf(c.exports, func(e *filterdetect.FilterEntry) bool {
		return strings.EqualFold(e.MediaType, mediaType)
	})
}

func (c *FilterConfigCache) GetExportFormatNumberForShortName(shortName string) uint16 {
	return indexOf(c.exports, byShortName(shortName))
}

func (c *FilterConfigCache) GetExportFormatNumberForTypeName(typeName string) uint16 {
	return indexOf(c.exports, byType(typeName))
}

func (c *FilterConfigCache) GetExportFormatName(format uint16) string {
	if e := entryAt(c.exports, format); e != nil {
		return e.UIName
	}
	return ""
}

func (c *FilterConfigCache) GetExportFormatMediaType(format uint16) string {
	if e := entryAt(c.exports, format); e != nil {
		return e.MediaType
	}
	return ""
}

func (c *FilterConfigCache) GetExportFormatShortName(format uint16) string {
	if e := entryAt(c.exports, format); e != nil {
		return e.ShortName()
	}
	return ""
}

func (c *FilterConfigCache) GetExportFormatExtension(format uint16, entry int) string {
	return extensionAt(c.exports, format, entry)
}

// GetExportInternalFilterName returns the configuration entry name; empty for built-in entries.
func (c *FilterConfigCache) GetExportInternalFilterName(format uint16) string {
	if e := entryAt(c.exports, format); e != nil {
		return e.InternalFilterName
	}
	return ""
}

func (c *FilterConfigCache) GetExportFilterType(format uint16) string {
	if e := entryAt(c.exports, format); e != nil {
		return e.Type
	}
	return ""
}

func (c *FilterConfigCache) GetExportFilterTypeName(format uint16) string {
	if e := entryAt(c.exports, format); e != nil {
		return e.FilterType
	}
	return ""
}

func (c *FilterConfigCache) GetExportWildcard(format uint16, entry int) string {
	return wildcard(c.GetExportFormatExtension(format, entry))
}

func (c *FilterConfigCache) IsExportPixelFormat(format uint16) bool {
	e := entryAt(c.exports, format)
	return e != nil && e.IsPixelFormat
}
