package pipeline

import "errors"

var (
	// ErrUnsupportedMedia is returned for uploads whose content type
	// no processor handles.
	ErrUnsupportedMedia = errors.New("unsupported media type")
	// ErrArtifactCorrupt is returned when an upload cannot be decoded
	// as the media type it claims to be.
	ErrArtifactCorrupt = errors.New("artifact corrupt or unreadable")
	// ErrEngineUnavailable is returned when the collaborator a media
	// type requires (OCR, ASR, frame sampling) is not configured.
	ErrEngineUnavailable = errors.New("required engine unavailable")
	// ErrEmptyInput is returned for requests with no content to process
	ErrEmptyInput = errors.New("empty input")
)
