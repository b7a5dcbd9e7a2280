package storage

// Package storage keeps the audit trail of crontab writes and the
// pre-write snapshots used by "crontabctl restore".
//
// It currently supports:
//   - Audit log appends (one record per commit or restore)
//   - Snapshots of the previous crontab text, pruned per identity
