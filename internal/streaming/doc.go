/*
Package streaming delivers a finished merge result to the HTTP client.

Delivery.Serve sends the file as an attachment named merged.mp4 with an exact
Content-Length, reading and writing in fixed-size chunks. Each chunk write is
bounded by a write deadline set through http.ResponseController, and the
response is flushed after every chunk.

# Outcomes

Serve always returns to the caller, which owns workspace cleanup:

	n, err := delivery.Serve(r.Context(), w, mergedPath)
	switch {
	case err == nil:
		// complete
	case errors.Is(err, streaming.ErrNotStarted):
		// nothing was sent; headers withdrawn, write a JSON error
	case errors.Is(err, streaming.ErrClientGone):
		// client went away; not a server error
	case errors.Is(err, streaming.ErrAborted), errors.Is(err, streaming.ErrWriteTimeout):
		// transfer cut short after n bytes
	}

When the request context is canceled the result file is closed immediately,
even while a read is in progress.
*/
package streaming
