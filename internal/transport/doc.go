// Package transport implements crontab.Transport for the system crontab
// command and for plain files.
package transport
