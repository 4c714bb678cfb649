package mediatypes

import (
	"path/filepath"
	"sort"
	"strings"
)

// VideoExtensions maps file extensions to whether they are accepted as merge
// inputs.
var VideoExtensions = map[string]bool{
	".mp4":  true,
	".mkv":  true,
	".avi":  true,
	".mov":  true,
	".wmv":  true,
	".flv":  true,
	".webm": true,
	".m4v":  true,
	".mpeg": true,
	".mpg":  true,
	".3gp":  true,
	".ts":   true,
}

// MimeTypes maps video extensions to their MIME types.
var MimeTypes = map[string]string{
	".mp4":  "video/mp4",
	".mkv":  "video/x-matroska",
	".avi":  "video/x-msvideo",
	".mov":  "video/quicktime",
	".wmv":  "video/x-ms-wmv",
	".flv":  "video/x-flv",
	".webm": "video/webm",
	".m4v":  "video/x-m4v",
	".mpeg": "video/mpeg",
	".mpg":  "video/mpeg",
	".3gp":  "video/3gpp",
	".ts":   "video/mp2t",
}

// Ext returns the lowercase extension of name, including the dot.
func Ext(name string) string {
	return strings.ToLower(filepath.Ext(name))
}

// IsVideo reports whether name has an accepted video extension.
func IsVideo(name string) bool {
	return VideoExtensions[Ext(name)]
}

// GetMimeType returns the MIME type for a given file extension.
// The extension should be lowercase and include the leading dot (e.g., ".mp4").
// Returns "application/octet-stream" if the extension is not recognized.
func GetMimeType(ext string) string {
	if mime, ok := MimeTypes[ext]; ok {
		return mime
	}
	return "application/octet-stream"
}

// IsVideoMimeType reports whether a client-declared content type is
// acceptable for an upload. Generic binary types are allowed since browsers
// send them for containers they do not recognize.
func IsVideoMimeType(contentType string) bool {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	switch {
	case ct == "", ct == "application/octet-stream":
		return true
	case strings.HasPrefix(ct, "video/"):
		return true
	}
	return ct == "application/x-mpegurl" || ct == "application/mp4"
}

// Extensions returns the accepted extensions, sorted.
func Extensions() []string {
	exts := make([]string, 0, len(VideoExtensions))
	for ext := range VideoExtensions {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}
