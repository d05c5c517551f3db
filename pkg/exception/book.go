package exception

import "github.com/yanun0323/errors"

var (
	ErrBookInvalidPrice    = errors.New("book: invalid price")
	ErrBookInvalidQuantity = errors.New("book: invalid quantity")
	ErrBookUnknownSide     = errors.New("book: unknown side")
)
