package payment

import "crypto/subtle"

// VerifyCallbackToken compares the shared secret carried on the callback URL.
// Daraja does not sign callbacks, so the URL itself is the credential. An
// empty secret disables the check.
func VerifyCallbackToken(secret, got string) bool {
	if secret == "" {
		return true
	}
	return subtle.ConstantTimeCompare([]byte(secret), []byte(got)) == 1
}
