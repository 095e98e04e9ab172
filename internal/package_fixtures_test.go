package internal

import (
	"bytes"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/require"
)

type zipPart struct {
	name   string
	data   string
	stored bool
}

func buildZip(t *testing.T, parts ...zipPart) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, p := range parts {
		method := zip.Deflate
		if p.stored {
			method = zip.Store
		}
		w, err := zw.CreateHeader(&zip.FileHeader{Name: p.name, Method: method})
		require.NoError(t, err)
		_, err = w.Write([]byte(p.data))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

// buildPackage returns an office package declaring mediaType in its mimetype entry.
func buildPackage(t *testing.T, mediaType string) []byte {
	t.Helper()
	return buildZip(t,
		zipPart{name: "mimetype", data: mediaType, stored: true},
		zipPart{name: "content.xml", data: "<office:document-content/>"},
	)
}

func manifestXML(mediaType string) string {
	return `<?xml version="1.0" encoding="UTF-8"?>
<manifest:manifest xmlns:manifest="urn:oasis:names:tc:opendocument:xmlns:manifest:1.0" manifest:version="1.2">
 <manifest:file-entry manifest:full-path="content.xml" manifest:media-type="text/xml"/>
 <manifest:file-entry manifest:full-path="/" manifest:media-type="` + mediaType + `"/>
</manifest:manifest>`
}

// buildCorruptedPackage returns a package whose stored mimetype entry fails its checksum.
func buildCorruptedPackage(t *testing.T) []byte {
	t.Helper()
	const mediaType = "application/vnd.oasis.opendocument.text"
	data := buildPackage(t, mediaType)
	i := bytes.Index(data, []byte(mediaType))
	require.GreaterOrEqual(t, i, 0)
	data[i+len(mediaType)-1] ^= 0x20
	return data
}

// truncatedPackage carries a zip signature but no central directory.
func truncatedPackage() []byte {
	return []byte("PK\x03\x04\x14\x00\x00\x00\x08\x00truncated")
}
