// Package upload reads a merge request's multipart body into the request
// workspace.
//
// Files arrive in the repeatable "videos" field and are streamed to disk
// under server-generated names (upload_<uuid><ext>); the client's file name
// is kept only as the declared name used for ordering. The optional "order"
// field holds either a JSON array of declared names or one name per repeated
// field.
//
// File count, per-file size and total request size are enforced while
// reading. Violations come back as *pipeline.Failure values with status 400
// or 413.
package upload
