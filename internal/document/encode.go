// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package document

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"github.com/pdiddy/docmorph/pkg/types"
)

// Payload is a document in transport form: base64 data plus its media type.
type Payload struct {
	Data      string
	MediaType string
}

var dataURIScheme = []byte("data:")

// Encode reads the document's bytes and base64-encodes them. If the source
// already yields a data URI, its "data:<type>;base64," prefix is stripped and
// the embedded payload is passed through. The only failure is a read error.
func Encode(doc types.Document) (Payload, error) {
	rc, err := doc.Open()
	if err != nil {
		return Payload{}, fmt.Errorf("opening %s: %w", doc.Name, err)
	}
	defer rc.Close()

	raw, err := io.ReadAll(rc)
	if err != nil {
		return Payload{}, fmt.Errorf("reading %s: %w", doc.Name, err)
	}

	p := Payload{MediaType: baseMediaType(doc.MediaType)}
	if bytes.HasPrefix(raw, dataURIScheme) {
		p.Data = StripDataURIPrefix(string(raw))
		return p, nil
	}
	p.Data = base64.StdEncoding.EncodeToString(raw)
	return p, nil
}

// StripDataURIPrefix removes a leading "data:...," header from s. Strings
// without the scheme are returned unchanged.
func StripDataURIPrefix(s string) string {
	if !strings.HasPrefix(s, "data:") {
		return s
	}
	if i := strings.IndexByte(s, ','); i >= 0 {
		return strings.TrimSpace(s[i+1:])
	}
	return s
}

// ParseDataURI decodes a base64 data URI such as the result of a browser
// FileReader.readAsDataURL call into its media type and raw bytes.
func ParseDataURI(s string) (mediaType string, data []byte, err error) {
	if !strings.HasPrefix(s, "data:") {
		return "", nil, fmt.Errorf("not a data URI")
	}
	comma := strings.IndexByte(s, ',')
	if comma < 0 {
		return "", nil, fmt.Errorf("data URI has no payload separator")
	}
	header := s[len("data:"):comma]
	if !strings.HasSuffix(header, ";base64") {
		return "", nil, fmt.Errorf("data URI is not base64 encoded")
	}
	mediaType = strings.TrimSuffix(header, ";base64")
	data, err = base64.StdEncoding.DecodeString(strings.TrimSpace(s[comma+1:]))
	if err != nil {
		return "", nil, fmt.Errorf("decoding data URI payload: %w", err)
	}
	return baseMediaType(mediaType), data, nil
}
