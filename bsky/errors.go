package bsky

import "errors"

// Failure classes of the publishing pipeline. All of them are
// recoverable through the retry path; callers pick behavior with
// errors.Is.
var (
	// ErrTransport covers network failures talking to the PDS or the
	// article's origin.
	ErrTransport = errors.New("transport failure")

	// ErrAuth covers rejected or incomplete session responses.
	ErrAuth = errors.New("authentication failed")

	// ErrDataNotReady signals that the published page did not yet serve
	// complete Open Graph metadata.
	ErrDataNotReady = errors.New("post data not ready")

	// ErrImagePipeline covers download, decode and re-encode failures
	// of the preview image.
	ErrImagePipeline = errors.New("image pipeline failure")

	// ErrRemoteRejected signals a non-200 response to a record
	// submission.
	ErrRemoteRejected = errors.New("remote rejected record")
)
