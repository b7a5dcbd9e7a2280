// Package logx is crontabmgr's logging layer on top of zerolog.
//
// Console output goes to stderr as short human-readable lines with the
// caller's file:line, so stdout stays free for command output. The optional
// file sink writes one JSON object per line.
package logx
