package normalize

import (
	"strings"
)

const (
	dataImagePrefix  = "data:image/"
	defaultImageMIME = "image/png"
)

// base64 encodings of the leading magic bytes of common image formats.
var imageSignatures = []struct {
	prefix string
	mime   string
}{
	{"iVBORw0KGgo", "image/png"},
	{"/9j/", "image/jpeg"},
	{"R0lGOD", "image/gif"},
	{"UklGR", "image/webp"},
}

// NormalizeImage turns an image string into a data URL.
//
// Data URLs (data:image/...) pass through unchanged. Anything else is taken
// as a bare base64 payload; its leading bytes select the MIME type among
// PNG, JPEG, GIF and WebP, defaulting to PNG.
func NormalizeImage(raw any) (Image, error) {
	v, err := generic(raw)
	if err != nil {
		return Image{}, failf(TypeImage, "%v", err)
	}
	s, ok := v.(string)
	if !ok {
		return Image{}, failf(TypeImage, "image must be a string, got %s", kindOf(v))
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return Image{}, failf(TypeImage, "empty image data")
	}

	if strings.HasPrefix(s, dataImagePrefix) {
		return Image{URL: s, MIMEType: dataURLMIME(s)}, nil
	}

	mime := SniffImageMIME(s)
	return Image{URL: "data:" + mime + ";base64," + s, MIMEType: mime}, nil
}

// SniffImageMIME picks a MIME type from the start of a base64 payload.
// Unrecognized payloads are reported as PNG.
func SniffImageMIME(b64 string) string {
	if mime, ok := sniffImage(b64); ok {
		return mime
	}
	return defaultImageMIME
}

func sniffImage(b64 string) (string, bool) {
	for _, sig := range imageSignatures {
		if strings.HasPrefix(b64, sig.prefix) {
			return sig.mime, true
		}
	}
	return "", false
}

// dataURLMIME extracts the media type of a data URL, e.g. "image/png".
func dataURLMIME(url string) string {
	rest := strings.TrimPrefix(url, "data:")
	end := strings.IndexAny(rest, ";,")
	if end <= 0 {
		return ""
	}
	return rest[:end]
}
