package snswebhook

import "errors"

var (
	// ErrMalformedPayload means the request body was empty or not a
	// decodable SNS envelope. Maps to a 400 at the HTTP layer.
	ErrMalformedPayload = errors.New("malformed SNS payload")

	// ErrUnauthenticated means signature verification was enabled and
	// failed. All verification sub-failures collapse into this one error
	// so a prober cannot learn which check rejected the request.
	ErrUnauthenticated = errors.New("invalid SNS signature")
)
