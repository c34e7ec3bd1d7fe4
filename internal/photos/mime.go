package photos

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// sniffLen matches the header size mimetype inspects by default.
const sniffLen = 3072

var allowedImageTypes = []string{
	"image/jpeg",
	"image/png",
	"image/webp",
	"image/gif",
	"image/heic",
	"image/heif",
}

// sniffContentType detects the content type from the leading bytes of body and
// returns a reader that still yields the full stream.
func sniffContentType(body io.Reader) (string, io.Reader, error) {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(body, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", nil, fmt.Errorf("read upload header: %w", err)
	}
	head = head[:n]
	if n == 0 {
		return "", nil, fmt.Errorf("upload is empty")
	}

	detected := mimetype.Detect(head)
	contentType := strings.ToLower(detected.String())
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = strings.TrimSpace(contentType[:i])
	}
	return contentType, io.MultiReader(bytes.NewReader(head), body), nil
}

func isAllowedImage(contentType string) bool {
	for _, candidate := range allowedImageTypes {
		if strings.EqualFold(candidate, contentType) {
			return true
		}
	}
	return false
}
