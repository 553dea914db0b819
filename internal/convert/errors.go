// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"errors"

	"github.com/pdiddy/docmorph/internal/document"
)

// User-facing messages. Every failure during a conversion collapses to one of these.
const (
	MsgCredentialMissing = "API Key is missing. Please configure it in your environment."
	MsgConversionFailed  = "Failed to convert document. Please ensure the file is a valid PDF or Image."
	MsgUnexpected        = "An unexpected error occurred during conversion."

	// NoContentFallback replaces an empty model response.
	NoContentFallback = "No content generated."
)

// ErrCredentialMissing is returned before any network attempt when no API key
// is configured.
var ErrCredentialMissing = errors.New(MsgCredentialMissing)

// EncodingError wraps a failure to read the document for encoding.
type EncodingError struct {
	Cause error
}

func (e *EncodingError) Error() string { return MsgUnexpected }
func (e *EncodingError) Unwrap() error { return e.Cause }

// RemoteError wraps any failure of the remote model call. Error() is always
// the generic MsgConversionFailed; the cause is only reachable via Unwrap.
type RemoteError struct {
	Cause error
}

func (e *RemoteError) Error() string { return MsgConversionFailed }
func (e *RemoteError) Unwrap() error { return e.Cause }

// UserMessage maps an error from the conversion pipeline to the single
// message shown to the user.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var (
		verr *document.ValidationError
		eerr *EncodingError
		rerr *RemoteError
	)
	switch {
	case errors.As(err, &verr):
		return verr.Message
	case errors.Is(err, ErrCredentialMissing):
		return MsgCredentialMissing
	case errors.As(err, &rerr):
		return MsgConversionFailed
	case errors.As(err, &eerr):
		return MsgUnexpected
	default:
		return MsgUnexpected
	}
}
