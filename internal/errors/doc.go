// Package errors defines the error vocabulary of the application.
//
// APIError carries an HTTP status and a stable error code. ErrorHandler turns
// any error into an RFC 7807 problem document rendered through go-chi/render.
// AppError classifies failures outside HTTP, such as a workbook that cannot be
// read at startup.
package errors
