// Package sanitizer normalizes free-text input before validation and storage.
//
// All functions are idempotent: applying them twice yields the same result as once.
// Invalid input is reduced rather than rejected; validators decide what is acceptable.
//
// Normalization includes:
//   - Strings: collapse whitespace, trim leading/trailing spaces
//   - Slot numbers: uppercase, keep letters, digits and '-', drop everything else
//   - Display names: collapse whitespace, drop control characters, cap the length
//   - E-mail addresses: trim and lowercase
//   - Slices: remove duplicates and empty values after normalization
package sanitizer
