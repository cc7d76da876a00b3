package wire

import "errors"

var (
	ErrChannelClosed     = errors.New("wire: channel closed")
	ErrTimeout           = errors.New("wire: read timeout")
	ErrHandshakeExpected = errors.New("wire: handshake expected")
	ErrUnexpectedMessage = errors.New("wire: unexpected message kind")
	ErrNoOpenFrame       = errors.New("wire: no open call frame")
	ErrUnknownHandler    = errors.New("wire: unknown handler")
	ErrBlockTruncated    = errors.New("wire: channel closed before block terminator")
	ErrInvalidArgument   = errors.New("wire: invalid argument")
	ErrUnknownTransport  = errors.New("wire: unknown transport spec")
)
