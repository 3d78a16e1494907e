package domain

import "errors"

var (
	ErrTradeNotFound     = errors.New("trade not found")
	ErrTradeClosed       = errors.New("trade already in terminal state")
	ErrIllegalAction     = errors.New("action not legal in current trade state")
	ErrAppealTooEarly    = errors.New("appeal window has not elapsed yet")
	ErrAppealReasonShort = errors.New("appeal reason must be at least 10 characters")
	ErrNotAppealingParty = errors.New("appeal may only be withdrawn by the party that raised it")
)
