// Package bass implements the Broadcast Audio Scan Service protocol engine.
//
// A Registry owns local databases, which back the receive state slots and
// control point a scan delegator publishes, and sessions, one per peer. A
// session may also mirror the receive states of a remote delegator into a
// private database. Control point writes run through the dispatcher, which
// adds and removes sources, allocates source ids, evicts the oldest slot when
// the table is full and tracks BIS synchronization through an iso.Opener.
//
// The engine does no locking. Transport callbacks are posted onto the
// registry's reactor.Executor and every exported method on Registry, Database
// and Session is expected to run there, except Session.SendCommand which
// blocks on the bearer.
package bass
