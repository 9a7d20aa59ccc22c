package autofilter

import "strings"

// staticExtensions is the policy-frozen set of extensions that earn weight
// 1 regardless of status or method.
var staticExtensions = map[string]bool{
	// images
	"jpg": true, "jpeg": true, "png": true, "gif": true, "svg": true,
	"ico": true, "webp": true, "bmp": true, "tiff": true,
	// fonts
	"woff": true, "woff2": true, "ttf": true, "otf": true, "eot": true,
	// media
	"mp4": true, "webm": true, "mp3": true, "ogg": true, "wav": true, "avi": true, "mov": true,
	// archives
	"zip": true, "gz": true, "tar": true, "rar": true, "7z": true, "bz2": true,
	// documents
	"pdf": true, "doc": true, "docx": true, "xls": true, "xlsx": true, "ppt": true, "pptx": true,
	// text/data/style/script
	"css": true, "js": true, "map": true, "json": true, "xml": true, "csv": true, "txt": true,
}

// Classified is the derived, per-request classification consumed by the
// batcher and, ultimately, the threshold resolver.
type Classified struct {
	URI    string
	IsArgs bool
	Ext    string
	Weight int64
}

// Classify derives the URI prefix, query-string flag, extension, and weight
// of a parsed Record. Rules are evaluated first-match-wins.
func Classify(r Record) Classified {
	uri := r.URI
	isArgs := false
	if i := strings.IndexByte(uri, '?'); i >= 0 {
		uri = uri[:i]
		isArgs = true
	}
	uri = strings.ToLower(uri)

	ext := ""
	if i := strings.LastIndexByte(uri, '.'); i >= 0 {
		ext = uri[i+1:]
	}

	c := Classified{URI: uri, IsArgs: isArgs, Ext: ext}
	switch {
	case staticExtensions[ext]:
		c.Weight = 1
	case strings.HasPrefix(r.Status, "3"):
		c.Weight = 10
	case strings.EqualFold(r.Method, "POST"):
		c.Weight = 30
	case isArgs:
		c.Weight = 20
	default:
		c.Weight = 10
	}
	return c
}
