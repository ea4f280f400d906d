package zkproof

import "errors"

var (
	// ErrProofGeneration indicates that a proof could not be produced from the
	// supplied witness (bad key, amount out of range, insufficient balance).
	ErrProofGeneration = errors.New("zkproof: proof generation failed")

	// ErrProofVerification indicates a well-formed proof that does not verify.
	ErrProofVerification = errors.New("zkproof: proof verification failed")

	// ErrInvalidProofData indicates malformed proof bytes.
	ErrInvalidProofData = errors.New("zkproof: invalid proof data")

	// ErrUnknownProofType indicates an unrecognised proof type tag.
	ErrUnknownProofType = errors.New("zkproof: unknown proof type")
)
