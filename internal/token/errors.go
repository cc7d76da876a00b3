package token

import "errors"

var (
	ErrUnterminatedName = errors.New("token: unterminated control sequence name")
	ErrBadEscape        = errors.New("token: bad caret escape")
	ErrUnknownCategory  = errors.New("token: unknown category marker")
	ErrInvalidToken     = errors.New("token: invalid token")
	ErrNotRepresentable = errors.New("token: not representable on 8-bit engine")
)
