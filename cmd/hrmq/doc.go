// Package main hosts the hrmq CLI.
//
// Commands open the queue database directly: ingest moves uploads into a
// user's source folder, submit records restoration requests, and the queue
// and formats commands inspect or maintain what is stored. Configuration
// resolution and logger setup live in the command context so subcommands
// only deal with their own flags and output.
package main
