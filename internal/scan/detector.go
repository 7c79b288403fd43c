package scan

import (
	"context"
	"errors"
	"image"
)

// ErrNoCapability means no detection capability is available; callers
// should route the user to the image upload path instead.
var ErrNoCapability = errors.New("code detection is not supported")

// ErrPermissionDenied means the camera stream was refused.
var ErrPermissionDenied = errors.New("camera access denied")

// Detector decodes optical codes from a single frame. An error is a
// transient decode failure; "nothing found" is a nil error with an
// empty result.
type Detector interface {
	Detect(ctx context.Context, frame image.Image) ([]string, error)
}
