// Package stores provides the reconciliation history persistence layer.
//
// The history store records every driver operation (validate, status, apply,
// passthrough) with its plan exit code, readiness decision and error, plus
// an append-only event log, in a local SQLite database. Schema changes ship
// as embedded golang-migrate migrations and run on startup.
//
// Recording is best-effort by design: the driver treats history failures as
// warnings, never as operation failures.
package stores
