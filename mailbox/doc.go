/*
Package mailbox stores mail of every user in Maildir
folders below one root directory. The user's top-level
Maildir is the INBOX, every other mailbox is a Maildir
directly below it.
*/
package mailbox
