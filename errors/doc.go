// Package errors provides the structured error type shared by the tapioca
// packages. Classified HTTP outcomes live in the adapter package; everything
// else (contract violations, payload and configuration failures, transport
// failures) is an AppError carrying a machine-readable code.
package errors
