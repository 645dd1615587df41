package face

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// maxImageBytes caps decoded face images at 5 MiB
const maxImageBytes = 5 << 20

// ErrInvalidImage is returned when a submitted face image cannot be decoded
var ErrInvalidImage = errors.New("invalid face image")

// DecodeImage decodes a base64-encoded face image, with or without a
// data-URL prefix, and returns the raw bytes plus a file extension
func DecodeImage(data string) ([]byte, string, error) {
	ext := "jpg"
	if strings.HasPrefix(data, "data:") {
		header, rest, found := strings.Cut(data, ",")
		if !found {
			return nil, "", fmt.Errorf("%w: malformed data URL", ErrInvalidImage)
		}
		switch {
		case strings.Contains(header, "image/png"):
			ext = "png"
		case strings.Contains(header, "image/jpeg"), strings.Contains(header, "image/jpg"):
			ext = "jpg"
		default:
			return nil, "", fmt.Errorf("%w: unsupported image type in data URL", ErrInvalidImage)
		}
		data = rest
	}

	decoded, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, "", fmt.Errorf("%w: bad base64 data", ErrInvalidImage)
	}
	if len(decoded) == 0 {
		return nil, "", fmt.Errorf("%w: empty image data", ErrInvalidImage)
	}
	if len(decoded) > maxImageBytes {
		return nil, "", fmt.Errorf("%w: image exceeds maximum size", ErrInvalidImage)
	}
	return decoded, ext, nil
}
