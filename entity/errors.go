package entity

import "fmt"

// The four failure classes of the registration pipeline. Each wraps its
// cause so callers can match on the class and still log the detail.

// ValidationError means the input failed local checks; no backend call
// was made and the caller must correct the form.
type ValidationError struct {
	Reason error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %v", e.Reason)
}

func (e *ValidationError) Unwrap() error { return e.Reason }

// ChallengeError means OTP issuance failed; recoverable by retrying from
// the form, no field data is lost.
type ChallengeError struct {
	Reason error
}

func (e *ChallengeError) Error() string {
	return fmt.Sprintf("otp challenge: %v", e.Reason)
}

func (e *ChallengeError) Unwrap() error { return e.Reason }

// ConfirmError means the entered code was wrong or the challenge expired;
// recoverable by re-entering the code or requesting a new challenge.
type ConfirmError struct {
	Reason error
}

func (e *ConfirmError) Error() string {
	return fmt.Sprintf("otp confirm: %v", e.Reason)
}

func (e *ConfirmError) Unwrap() error { return e.Reason }

// StoreError means a store operation failed. Store operations are atomic
// per record, so there is no partial state to clean up; the operation is
// simply reported and not retried.
type StoreError struct {
	Op     string
	Reason error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Reason)
}

func (e *StoreError) Unwrap() error { return e.Reason }
