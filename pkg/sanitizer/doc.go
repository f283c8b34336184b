// Package sanitizer normalizes free text supplied by guests and staff before
// it is validated and stored.
//
// All functions are idempotent and never fail: invalid input yields an empty
// string rather than an error.
package sanitizer
