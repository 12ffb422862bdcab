package uber

import "context"

// OTPProvider supplies the one-time password when the login challenge
// demands one. Implementations may block while a human reads the code
// off their phone; the context bounds that wait.
type OTPProvider interface {
	OTP(ctx context.Context) (string, error)
}

// StaticOTP is an OTPProvider that always returns the same code,
// for codes delivered out of band.
type StaticOTP string

// OTP returns the fixed code.
func (s StaticOTP) OTP(ctx context.Context) (string, error) {
	return string(s), nil
}
