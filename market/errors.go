package market

import "errors"

var (
	ErrUnauthorized         = errors.New("market: invalid permissions")
	ErrInvalidType          = errors.New("market: invalid listing type")
	ErrInvalidListing       = errors.New("market: invalid listing")
	ErrInvalidAmount        = errors.New("market: invalid amount")
	ErrInvalidTotalEntrants = errors.New("market: invalid total entrants")
	ErrApproveFailed        = errors.New("market: approve failed")
	ErrAlreadyRedeemed      = errors.New("market: already redeemed")
	ErrNilLedger            = errors.New("market: token ledger not configured")
)
