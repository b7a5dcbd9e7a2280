// Package crontab models a per-user crontab as structured data.
//
// An Entry is one schedule line (five time fields or an @shortcut, the task
// command and an optional trailing comment). Parse and Entry.Format form a
// lossless codec over the accepted grammar: an unmodified entry renders as
// its exact source line (indentation, column alignment and tabs included).
// Once a setter changes a value the entry is rendered in the canonical
// layout with single blanks between fields. Setters validate values at
// assignment time so a mutated entry always formats to a parseable line.
//
// A Repository loads the whole file through a Transport, keeps the leading
// comment header verbatim, exposes the entries for querying and in-place
// edits, and writes everything back with a single Transport write.
//
// Concurrent writers to the same crontab are not coordinated here; that is
// left to the transport (or to the operator).
package crontab
