// Package domain defines the log entry model shared by every layer: routing
// rules, entries, the closed set of derived records, narrative and clarity
// snapshots, and behavior events.
//
// Enumerations are closed; the Parse*/Normalize* functions are the only way
// free text from storage or the transport enters them.
package domain
