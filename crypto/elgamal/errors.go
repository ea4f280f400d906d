package elgamal

import "errors"

var (
	// ErrInvalidPoint indicates bytes that do not decode to a prime-order point.
	ErrInvalidPoint = errors.New("elgamal: invalid point encoding")

	// ErrInvalidScalar indicates non-canonical or zero scalar bytes.
	ErrInvalidScalar = errors.New("elgamal: invalid scalar")

	// ErrInvalidLength indicates a fixed-size encoding of the wrong length.
	ErrInvalidLength = errors.New("elgamal: invalid length")

	// ErrAmountOutOfRange indicates that the discrete log search was exhausted.
	ErrAmountOutOfRange = errors.New("elgamal: amount out of decryptable range")
)
