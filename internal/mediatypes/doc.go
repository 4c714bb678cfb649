// Package mediatypes lists the video containers accepted for merging and
// their MIME types.
//
// It has no dependencies beyond the standard library so that both the upload
// reader and the HTTP handlers can import it.
//
//	if !mediatypes.IsVideo(part.FileName()) {
//	    // reject the upload
//	}
//
// Extensions returns the accepted list for display, e.g. in /api/limits.
package mediatypes
