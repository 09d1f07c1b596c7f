// Package sanitizer normalizes free-form patient input before validation.
//
// All functions are idempotent and never fail: input that cannot be
// normalized is returned in a form the validator will reject.
//
// Normalization includes:
//   - Phone numbers: Indonesian numbers become the national mobile form (08...);
//     foreign numbers become E.164
//   - Strings: collapse whitespace, trim leading/trailing spaces
//   - Enums: upper-case source values ("walkin" becomes "WALKIN")
package sanitizer
