// Package diag holds diagnostic records: severities, codes, multi-span
// annotations with children, the collecting Bag and reporters.
//
// Rendering lives in internal/diagfmt.
package diag
