// Package journal keeps a local SQLite record of publish attempts.
//
// Every attempt made by the telemetry task is stored with the readings,
// the exact payload, whether the broker acknowledged it and the error
// text if not. Rows carry the boot id of the process that wrote them, so
// one run can be told apart from the next.
package journal
