package exception

import "github.com/yanun0323/errors"

var (
	ErrExchangeBadStatus     = errors.New("exchange: unexpected http status")
	ErrExchangeOrderRejected = errors.New("exchange: order rejected")
	ErrExchangeNoCredentials = errors.New("exchange: missing api credentials")
	ErrExchangeBadPayload    = errors.New("exchange: malformed payload")
)
