package configstore

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/lychee-technology/filterdetect"
	"go.uber.org/zap"
)

// JSONStore reads <dir>/types.json and <dir>/filters.json on every OpenNode call.
type JSONStore struct {
	directory string
}

// NewJSONStore creates a store over directory.
func NewJSONStore(directory string) *JSONStore {
	return &JSONStore{directory: directory}
}

// OpenNode implements filterdetect.ConfigurationProvider.
func (s *JSONStore) OpenNode(ctx context.Context, nodePath string) (filterdetect.NodeAccess, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	docName, ok := DocumentForNode(nodePath)
	if !ok {
		return nil, filterdetect.NewNodeNotFoundError(nodePath)
	}

	file := filepath.Join(s.directory, docName+".json")
	data, err := os.ReadFile(file)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, filterdetect.NewNodeNotFoundError(nodePath).WithDetail("file", file)
		}
		return nil, filterdetect.NewStoreUnavailableError("failed to read "+file, err)
	}

	node, err := DecodeJSONDocument(nodePath, data)
	if err != nil {
		return nil, filterdetect.NewInvalidDocumentError(file, err)
	}
	zap.S().Debugw("loaded configuration document", "file", file, "entry_count", node.Len())
	return node, nil
}

// WriteJSONDirectory writes one <document>.json per node into directory.
func WriteJSONDirectory(directory string, nodes []*Node) error {
	if err := os.MkdirAll(directory, 0o755); err != nil {
		return err
	}
	for _, n := range nodes {
		docName, ok := DocumentForNode(n.Path)
		if !ok {
			continue
		}
		data, err := EncodeJSONDocument(n)
		if err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(directory, docName+".json"), data, 0o644); err != nil {
			return err
		}
	}
	return nil
}
