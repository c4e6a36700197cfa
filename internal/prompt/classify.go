package prompt

import (
	"path"
	"strings"
)

// fileKind is the coarse attachment classification used for prompt
// assembly. Classification is purely by extension / content type; no
// content sniffing.
type fileKind int

const (
	kindOther fileKind = iota
	kindImage
	kindVideo
	kindText
)

var imageExts = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".bmp":  "image/bmp",
}

var videoExts = map[string]bool{
	".mp4":  true,
	".mov":  true,
	".avi":  true,
	".webm": true,
	".mkv":  true,
}

var textExts = map[string]bool{
	".txt":  true,
	".md":   true,
	".log":  true,
	".json": true,
	".csv":  true,
	".yaml": true,
	".yml":  true,
}

// classify determines the kind of a file name or URL, preferring the
// content type when one is known.
func classify(name, contentType string) fileKind {
	switch {
	case strings.HasPrefix(contentType, "image/"):
		return kindImage
	case strings.HasPrefix(contentType, "video/"):
		return kindVideo
	case strings.HasPrefix(contentType, "text/"):
		return kindText
	}

	ext := strings.ToLower(path.Ext(stripQuery(name)))
	switch {
	case imageExts[ext] != "":
		return kindImage
	case videoExts[ext]:
		return kindVideo
	case textExts[ext]:
		return kindText
	}
	return kindOther
}

// imageMIME returns the MIME type for an image name/URL, defaulting to JPEG.
func imageMIME(name string) string {
	ext := strings.ToLower(path.Ext(stripQuery(name)))
	if mt := imageExts[ext]; mt != "" {
		return mt
	}
	return "image/jpeg"
}

func stripQuery(name string) string {
	if i := strings.IndexAny(name, "?#"); i >= 0 {
		return name[:i]
	}
	return name
}
