// Package licensetoken issues and verifies RS256-signed license tokens.
//
// A token is the compact three-segment form
//
//	base64url(header) "." base64url(claims) "." base64url(signature)
//
// signed with RSASSA-PKCS1-v1_5 over SHA-256. Validation is offline and
// produces a graded Result (Valid, ExpiredWithinGracePeriod,
// ExpiredOutsideGracePeriod, Invalid). Malformed or tampered input never
// surfaces as an error from the validation entry points; it is reported as
// Invalid. Key loading and token creation do return errors.
//
// The codec is deliberately small and only understands RS256.
package licensetoken
