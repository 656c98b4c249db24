package broker

import "errors"

var (
	ErrUnavailable             = errors.New("broker unavailable")
	ErrSubscriptionClosed      = errors.New("broker subscription closed")
	ErrNoPatterns              = errors.New("at least one subscription pattern is required")
	ErrFailedToParseConnString = errors.New("failed to parse redis connection string")
	ErrNotReady                = errors.New("redis did not become ready within the given time period")
	ErrHealthcheckFailed       = errors.New("broker healthcheck failed")
)
