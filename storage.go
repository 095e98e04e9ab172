package filterdetect

import (
	"context"
)

// Configuration node paths read by the graphic filter cache.
const (
	TypesNodePath   = "/org.openoffice.TypeDetection.Types/Types"
	FiltersNodePath = "/org.openoffice.TypeDetection.GraphicFilter/Filters"
)

// Property names of type and filter entries.
const (
	PropType           = "Type"
	PropUIName         = "UIName"
	PropFlags          = "Flags"
	PropMediaType      = "MediaType"
	PropExtensions     = "Extensions"
	PropFormatName     = "FormatName"
	PropRealFilterName = "RealFilterName"
)

// ConfigurationProvider opens read-only configuration nodes.
// Implementations can load nodes from files, databases, object storage or memory.
type ConfigurationProvider interface {
	// OpenNode returns the node at nodePath. A node that cannot be opened yields an error;
	// a *RuntimeError is treated as severe by callers.
	OpenNode(ctx context.Context, nodePath string) (NodeAccess, error)
}

// NodeAccess is a named collection of property sets.
type NodeAccess interface {
	// ElementNames returns entry names in enumeration order.
	ElementNames() []string
	ByName(name string) (PropertySet, bool)
}

// PropertySet exposes the properties of one configuration entry.
type PropertySet interface {
	// Property returns a string or []string value.
	Property(name string) (any, bool)
}

// PropertyString extracts a string property, returning "" when missing or of another type.
func PropertyString(ps PropertySet, name string) string {
	if ps == nil {
		return ""
	}
	v, ok := ps.Property(name)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// PropertyStrings extracts a string list property, returning nil when missing or of another type.
func PropertyStrings(ps PropertySet, name string) []string {
	if ps == nil {
		return nil
	}
	v, ok := ps.Property(name)
	if !ok {
		return nil
	}
	switch list := v.(type) {
	case []string:
		out := make([]string, len(list))
		copy(out, list)
		return out
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			s, ok := item.(string)
			if !ok {
				return nil
			}
			out = append(out, s)
		}
		return out
	default:
		return nil
	}
}
