package internal

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/zip"
	"github.com/lychee-technology/filterdetect"
)

const (
	mimetypeEntry = "mimetype"
	manifestEntry = "META-INF/manifest.xml"
)

var (
	zipLocalHeaderSig = []byte("PK\x03\x04")
	zipEmptyArchive   = []byte("PK\x05\x06")
)

// PackageStorage is a zip package opened read-only from a stream.
type PackageStorage struct {
	reader    *zip.Reader
	mediaType string
}

// OpenPackageStorage reads r into memory and opens it as a zip package.
// Input that does not carry a zip signature yields filterdetect.ErrNotPackage. A zip whose
// structure or package metadata is corrupted yields a broken package error.
func OpenPackageStorage(ctx context.Context, r io.Reader, maxSize int64) (*PackageStorage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := readLimited(r, maxSize)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if !bytes.HasPrefix(data, zipLocalHeaderSig) && !bytes.HasPrefix(data, zipEmptyArchive) {
		return nil, filterdetect.ErrNotPackage
	}

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, filterdetect.NewBrokenPackageError("cannot read zip directory", err)
	}

	ps := &PackageStorage{reader: zr}
	if ps.mediaType, err = ps.readMediaType(); err != nil {
		return nil, err
	}
	return ps, nil
}

// MediaType returns the declared media type, or "" if the package declares none.
func (p *PackageStorage) MediaType() string {
	return p.mediaType
}

// EntryNames lists the names of all package entries in directory order.
func (p *PackageStorage) EntryNames() []string {
	names := make([]string, 0, len(p.reader.File))
	for _, f := range p.reader.File {
		names = append(names, f.Name)
	}
	return names
}

func (p *PackageStorage) readMediaType() (string, error) {
	if f := p.find(mimetypeEntry); f != nil {
		data, err := readEntry(f)
		if err != nil {
			return "", filterdetect.NewBrokenPackageError("cannot read mimetype entry", err)
		}
		if mt := strings.TrimSpace(string(data)); mt != "" {
			return mt, nil
		}
	}

	f := p.find(manifestEntry)
	if f == nil {
		return "", nil
	}
	data, err := readEntry(f)
	if err != nil {
		return "", filterdetect.NewBrokenPackageError("cannot read manifest", err)
	}
	mt, err := parseManifestMediaType(data)
	if err != nil {
		return "", filterdetect.NewBrokenPackageError("cannot parse manifest", err)
	}
	return mt, nil
}

func (p *PackageStorage) find(name string) *zip.File {
	for _, f := range p.reader.File {
		if f.Name == name {
			return f
		}
	}
	return nil
}

func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func readLimited(r io.Reader, maxSize int64) ([]byte, error) {
	if maxSize <= 0 {
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("failed to read input stream: %w", err)
		}
		return data, nil
	}

	data, err := io.ReadAll(io.LimitReader(r, maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read input stream: %w", err)
	}
	if int64(len(data)) > maxSize {
		return nil, filterdetect.NewFilterError(filterdetect.ErrorTypePackage, filterdetect.ErrCodePackageTooLarge, "input stream exceeds maximum package size").
			WithDetail("max_package_size", maxSize)
	}
	return data, nil
}

type manifestDocument struct {
	Entries []manifestFileEntry `xml:"file-entry"`
}

type manifestFileEntry struct {
	FullPath  string `xml:"full-path,attr"`
	MediaType string `xml:"media-type,attr"`
}

func parseManifestMediaType(data []byte) (string, error) {
	var doc manifestDocument
	if err := xml.Unmarshal(data, &doc); err != nil {
		return "", err
	}
	for _, e := range doc.Entries {
		if e.FullPath == "/" {
			return e.MediaType, nil
		}
	}
	return "", nil
}
