// Package domain holds the pure types and interfaces shared by every other
// package: market/price/orderbook data, cron jobs and alerts, the HFT engine's
// position and signal types, and the store/execution contracts concrete
// implementations satisfy. Nothing in this package performs I/O.
package domain

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrRateLimited   = errors.New("rate limited")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrInvalidOrder  = errors.New("invalid order parameters")
	ErrWSDisconnect  = errors.New("websocket disconnected")
	ErrContextDone   = errors.New("context cancelled")
	ErrValidation    = errors.New("validation error")
)
