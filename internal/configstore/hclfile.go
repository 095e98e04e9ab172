package configstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/lychee-technology/filterdetect"
	"github.com/zclconf/go-cty/cty"
	"go.uber.org/zap"
)

// hclConfigFile is the top-level structure of an HCL configuration file:
//
//	node "/org.openoffice.TypeDetection.Types/Types" {
//	  entry "png" {
//	    MediaType  = "image/png"
//	    Extensions = ["png"]
//	  }
//	}
type hclConfigFile struct {
	Nodes []*hclNode `hcl:"node,block"`
}

type hclNode struct {
	Path    string      `hcl:"path,label"`
	Entries []*hclEntry `hcl:"entry,block"`
}

type hclEntry struct {
	Name string   `hcl:"name,label"`
	Body hcl.Body `hcl:",remain"`
}

// HCLStore serves the nodes of one HCL file, parsed on every OpenNode call.
type HCLStore struct {
	file string
}

// NewHCLStore creates a store over file.
func NewHCLStore(file string) *HCLStore {
	return &HCLStore{file: file}
}

// OpenNode implements filterdetect.ConfigurationProvider.
func (s *HCLStore) OpenNode(ctx context.Context, nodePath string) (filterdetect.NodeAccess, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	src, err := os.ReadFile(s.file)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, filterdetect.NewNodeNotFoundError(nodePath).WithDetail("file", s.file)
		}
		return nil, filterdetect.NewStoreUnavailableError("failed to read "+s.file, err)
	}

	nodes, err := DecodeHCL(s.file, src)
	if err != nil {
		return nil, filterdetect.NewInvalidDocumentError(s.file, err)
	}
	for _, n := range nodes {
		if n.Path == nodePath {
			return n, nil
		}
	}
	return nil, filterdetect.NewNodeNotFoundError(nodePath).WithDetail("file", s.file)
}

// DecodeHCL parses src into nodes in file order. Repeated node blocks with the same path are merged.
func DecodeHCL(filename string, src []byte) ([]*Node, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", filename, diags)
	}

	var parsed hclConfigFile
	if diags := gohcl.DecodeBody(file.Body, nil, &parsed); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %w", filename, diags)
	}

	var nodes []*Node
	byPath := make(map[string]*Node)
	for _, hn := range parsed.Nodes {
		node, ok := byPath[hn.Path]
		if !ok {
			node = NewNode(hn.Path)
			byPath[hn.Path] = node
			nodes = append(nodes, node)
		}
		for _, he := range hn.Entries {
			props, err := decodeEntryBody(he.Body)
			if err != nil {
				return nil, fmt.Errorf("node %q entry %q: %w", hn.Path, he.Name, err)
			}
			if err := node.Add(he.Name, props); err != nil {
				return nil, err
			}
		}
	}
	return nodes, nil
}

func decodeEntryBody(body hcl.Body) (map[string]any, error) {
	attrs, diags := body.JustAttributes()
	if diags.HasErrors() {
		return nil, diags
	}
	props := make(map[string]any, len(attrs))
	for name, attr := range attrs {
		val, diags := attr.Expr.Value(nil)
		if diags.HasErrors() {
			return nil, diags
		}
		v, ok := ctyValueToProperty(val)
		if !ok {
			zap.S().Debugw("dropping configuration attribute", "attribute", name, "type", val.Type().FriendlyName())
			continue
		}
		props[name] = v
	}
	return props, nil
}

// ctyValueToProperty converts a string or a list/tuple of strings; ok is false for anything else.
func ctyValueToProperty(val cty.Value) (any, bool) {
	if !val.IsWhollyKnown() || val.IsNull() {
		return nil, false
	}
	ty := val.Type()
	switch {
	case ty == cty.String:
		return val.AsString(), true
	case ty.IsTupleType() || ty.IsListType():
		out := make([]string, 0, val.LengthInt())
		for it := val.ElementIterator(); it.Next(); {
			_, v := it.Element()
			if v.IsNull() || v.Type() != cty.String {
				return nil, false
			}
			out = append(out, v.AsString())
		}
		return out, true
	default:
		return nil, false
	}
}

// EncodeHCL renders nodes in the format read by DecodeHCL.
func EncodeHCL(nodes []*Node) []byte {
	f := hclwrite.NewEmptyFile()
	root := f.Body()
	for i, n := range nodes {
		if i > 0 {
			root.AppendNewline()
		}
		nodeBody := root.AppendNewBlock("node", []string{n.Path}).Body()
		for _, e := range n.Entries() {
			entryBody := nodeBody.AppendNewBlock("entry", []string{e.Name}).Body()
			names := make([]string, 0, len(e.Properties))
			for k := range e.Properties {
				names = append(names, k)
			}
			sort.Strings(names)
			for _, k := range names {
				entryBody.SetAttributeValue(k, propertyToCty(e.Properties[k]))
			}
		}
	}
	return f.Bytes()
}

func propertyToCty(v any) cty.Value {
	switch val := v.(type) {
	case string:
		return cty.StringVal(val)
	case []string:
		if len(val) == 0 {
			return cty.ListValEmpty(cty.String)
		}
		elems := make([]cty.Value, len(val))
		for i, s := range val {
			elems[i] = cty.StringVal(s)
		}
		return cty.ListVal(elems)
	default:
		return cty.NullVal(cty.String)
	}
}
