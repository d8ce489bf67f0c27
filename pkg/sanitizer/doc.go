// Package sanitizer provides input normalization for customer-supplied data.
//
// All normalization functions are idempotent - applying them multiple times
// produces the same result. Functions handle invalid input gracefully,
// typically by returning empty strings rather than errors.
//
// Normalization includes:
//   - Identifiers: trim surrounding whitespace, strip control characters
//   - Free text (cancellation reasons, notes): collapse whitespace, strip
//     control characters, cap length before storage
package sanitizer
