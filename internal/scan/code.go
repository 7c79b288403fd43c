package scan

import "time"

// Origin identifies how a code was acquired.
type Origin string

const (
	OriginCamera Origin = "camera"
	OriginUpload Origin = "upload"
	OriginManual Origin = "manual"
)

// SourceTag returns the tag sent to the backend for this origin.
// Camera submissions keep the historical "pwa" tag.
func (o Origin) SourceTag() string {
	if o == OriginCamera {
		return "pwa"
	}
	return string(o)
}

// DetectedCode is one decoded payload, ready for submission.
type DetectedCode struct {
	RawText    string
	AcquiredAt time.Time
	Origin     Origin
}
