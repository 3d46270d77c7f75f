// Package dispatch routes authorized operation requests to registered handlers.
//
// # Invocation order
//
// [Dispatcher.Invoke] validates the request, asks the [Authorizer] before touching
// the [Registry], then calls the handler with the caller's positional parameters.
// A denied request never reveals whether the operation exists: an operation that is
// granted but not registered is denied the same way.
//
// # Registry
//
// Operations are registered explicitly under (area, object, method) during startup
// and the registry is frozen before serving. Named SQL operations are described by a
// YAML [Catalog] and materialised by store/postgres.
//
// # What this package must NOT do
//
//   - Import goGate or session.
//   - Reorder, rename, or coerce caller parameters.
package dispatch
