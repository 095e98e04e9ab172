package filterdetect

import (
	"strconv"
	"strings"
)

// FormatNotFound is returned by format number lookups that match nothing.
const FormatNotFound uint16 = 0xFFFF

// FilterFlags is the capability bit set of a filter entry.
type FilterFlags int32

const (
	FilterFlagImport FilterFlags = 1
	FilterFlagExport FilterFlags = 2
)

// IsImport reports whether the import bit is set.
func (f FilterFlags) IsImport() bool { return f&FilterFlagImport != 0 }

// IsExport reports whether the export bit is set.
func (f FilterFlags) IsExport() bool { return f&FilterFlagExport != 0 }

func (f FilterFlags) String() string {
	switch {
	case f.IsImport() && f.IsExport():
		return "import,export"
	case f.IsImport():
		return "import"
	case f.IsExport():
		return "export"
	default:
		return ""
	}
}

// ParseFilterFlagList converts a configured Flags list. Exactly one element, "import" or
// "export" (case-insensitive), is accepted; ok is false for anything else.
func ParseFilterFlagList(flags []string) (FilterFlags, bool) {
	if len(flags) != 1 || flags[0] == "" {
		return 0, false
	}
	switch {
	case strings.EqualFold(flags[0], "import"):
		return FilterFlagImport, true
	case strings.EqualFold(flags[0], "export"):
		return FilterFlagExport, true
	default:
		return 0, false
	}
}

// ParseFilterFlagBits converts a numeric flag column ("1", "2", "3"). Unparsable input is 0.
func ParseFilterFlagBits(s string) FilterFlags {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 32)
	if err != nil {
		return 0
	}
	return FilterFlags(n)
}

// FilterEntry is one configured graphic import or export capability.
type FilterEntry struct {
	InternalFilterName string      `json:"internal_filter_name"`
	FilterName         string      `json:"filter_name"`
	UIName             string      `json:"ui_name"`
	Type               string      `json:"type"`
	FilterType         string      `json:"filter_type"` // RealFilterName
	MediaType          string      `json:"media_type"`
	Extensions         []string    `json:"extensions"`
	Flags              FilterFlags `json:"flags"`
	IsPixelFormat      bool        `json:"is_pixel_format"`
}

// ShortName returns the first extension with a leading "*." removed.
func (e FilterEntry) ShortName() string {
	if len(e.Extensions) == 0 {
		return ""
	}
	return strings.TrimPrefix(e.Extensions[0], "*.")
}

// GraphicFilterCache provides position and name based lookups over the import and export
// filter lists. Format numbers are positions and only valid for the instance that issued them.
type GraphicFilterCache interface {
	GetImportFormatCount() uint16
	GetImportFilterName(format uint16) string
	GetImportFormatNumber(formatName string) uint16
	GetImportFormatNumberForExtension(ext string) uint16
	GetImportFormatNumberForShortName(shortName string) uint16
	GetImportFormatNumberForTypeName(typeName string) uint16
	GetImportFormatName(format uint16) string
	GetImportFormatMediaType(format uint16) string
	GetImportFormatShortName(format uint16) string
	GetImportFormatExtension(format uint16, entry int) string
	GetImportFilterType(format uint16) string
	GetImportFilterTypeName(format uint16) string
	GetImportWildcard(format uint16, entry int) string
	IsImportPixelFormat(format uint16) bool

	GetExportFormatCount() uint16
	GetExportFilterName(format uint16) string
	GetExportFormatNumber(formatName string) uint16
	GetExportFormatNumberForMediaType(mediaType string) uint16
	GetExportFormatNumberForShortName(shortName string) uint16
	GetExportFormatNumberForTypeName(typeName string) uint16
	GetExportFormatName(format uint16) string
	GetExportFormatMediaType(format uint16) string
	GetExportFormatShortName(format uint16) string
	GetExportFormatExtension(format uint16, entry int) string
	GetExportInternalFilterName(format uint16) string
	GetExportFilterType(format uint16) string
	GetExportFilterTypeName(format uint16) string
	GetExportWildcard(format uint16, entry int) string
	IsExportPixelFormat(format uint16) bool

	ImportEntries() []FilterEntry
	ExportEntries() []FilterEntry
}
