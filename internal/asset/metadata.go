package asset

import (
	"bytes"
	"strings"

	exif "github.com/dsoprea/go-exif/v3"

	"github.com/nao1215/kwarchive/internal/model"
)

var (
	jpegMagic     = []byte{0xFF, 0xD8, 0xFF}
	tiffMagicLE   = []byte("II*\x00")
	tiffMagicBE   = []byte("MM\x00*")
	exifMediaType = map[string]bool{"image/jpeg": true, "image/jpg": true, "image/tiff": true}
)

func isExifCarrier(contentType string, data []byte) bool {
	if exifMediaType[strings.ToLower(contentType)] {
		return true
	}
	return bytes.HasPrefix(data, jpegMagic) || bytes.HasPrefix(data, tiffMagicLE) || bytes.HasPrefix(data, tiffMagicBE)
}

// ProbeImageMeta reads the capture time and camera of an image.
// Images without EXIF data yield a zero ImageMeta.
func ProbeImageMeta(data []byte) (meta model.ImageMeta) {
	// go-exif panics on some truncated inputs.
	defer func() {
		if recover() != nil {
			meta = model.ImageMeta{}
		}
	}()

	raw, err := exif.SearchAndExtractExif(data)
	if err != nil || raw == nil {
		return model.ImageMeta{}
	}
	entries, _, err := exif.GetFlatExifData(raw, nil)
	if err != nil {
		return model.ImageMeta{}
	}
	for _, entry := range entries {
		value := strings.TrimSpace(strings.Trim(entry.Formatted, "\x00"))
		switch entry.TagName {
		case "DateTimeOriginal":
			meta.DateTime = value
		case "DateTime":
			if meta.DateTime == "" {
				meta.DateTime = value
			}
		case "Make":
			meta.Make = value
		case "Model":
			meta.Model = value
		}
	}
	return meta
}
