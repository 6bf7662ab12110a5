// Package cli is responsible for parsing the global command-line options,
// picking the command to run, and handling process-level concerns like exit
// codes. It translates CLI flags into the application's internal
// configuration.
package cli
