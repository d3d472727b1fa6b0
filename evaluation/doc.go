/*
Package evaluation provides a small load tool to measure the round-trip time of APPEND against a
running IMAP server, be it this one or any other installation to compare against. Every measured
APPEND is written as one "index, duration" line to the output, a summary of all runs goes to the log.
*/
package main
