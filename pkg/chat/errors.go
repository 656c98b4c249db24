package chat

import "errors"

var (
	// ErrDeliveryNotGuaranteed reports that a message was persisted but the
	// broker publish failed, so live delivery to the peer may not happen.
	ErrDeliveryNotGuaranteed = errors.New("message stored but live delivery not guaranteed")

	ErrMessageNotFound = errors.New("message not found")
)
