// Package httpapi exposes the goGate Engine over HTTP with chi.
//
// Sessions travel in the cookie managed by the middleware package. Every
// error response is {"error": kind, "message": text} where kind is the
// [goGate.ErrorKind]; internal failures never carry their cause.
package httpapi
