package face

import "errors"

// Face domain errors
var (
	ErrNotEnoughCaptures    = errors.New("not enough usable face captures, please retry")
	ErrDescriptorNotFound   = errors.New("face descriptor not found")
	ErrInvalidDescriptor    = errors.New("face descriptor has an unexpected length")
	ErrStoreNotInitialized  = errors.New("descriptor store is not initialized")
	ErrStoreBusy            = errors.New("descriptor store kept changing during reload")
	ErrSourceClosed         = errors.New("frame source closed")
	ErrNoFaceInImage        = errors.New("no face detected in image")
	ErrUnsupportedImageType = errors.New("unsupported image type")
)
