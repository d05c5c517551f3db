package exception

import "github.com/yanun0323/errors"

// General errors
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNoMidPrice      = errors.New("no mid price available")
	ErrPositionExists  = errors.New("position already open for symbol")
	ErrUnknownPosition = errors.New("position not found")
)
