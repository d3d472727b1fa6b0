package imap

import (
	"strings"
)

// Constants

// Closed set of commands the engine dispatches. The
// numbering is the index into every CommandTable.
const (
	CommandNone CommandType = iota
	CommandCapability
	CommandNoop
	CommandLogout
	CommandAuthenticate
	CommandLogin
	CommandSelect
	CommandExamine
	CommandCreate
	CommandDelete
	CommandRename
	CommandSubscribe
	CommandUnsubscribe
	CommandList
	CommandLsub
	CommandStatus
	CommandAppend
	CommandCheck
	CommandClose
	CommandExpunge
	CommandSearch
	CommandFetch
	CommandStore
	CommandCopy
	CommandUID
	CommandSort
	CommandGetQuotaRoot
	CommandGetQuota
	CommandSetACL
	CommandDeleteACL
	CommandGetACL
	CommandListRights
	CommandMyRights
	CommandNamespace
	CommandThread
	CommandUnselect
	CommandIdle
	commandLast
)

// Variables

var commandNames = [commandLast]string{
	"", "capability", "noop", "logout",
	"authenticate", "login",
	"select", "examine", "create", "delete", "rename", "subscribe",
	"unsubscribe",
	"list", "lsub", "status", "append",
	"check", "close", "expunge", "search", "fetch", "store", "copy",
	"uid", "sort", "getquotaroot", "getquota",
	"setacl", "deleteacl", "getacl", "listrights", "myrights",
	"namespace", "thread", "unselect", "idle",
}

// Structs

// CommandType is the resolved index of a command name.
type CommandType int

// CommandTable maps every CommandType to its handler.
// It is built once at start-up and never modified, so
// sessions share it without locking.
type CommandTable struct {
	handlers [commandLast]Handler
}

// Functions

// String returns the lower-case command name.
func (ct CommandType) String() string {

	if ct <= CommandNone || ct >= commandLast {
		return "none"
	}

	return commandNames[ct]
}

// LookupCommand resolves name case-insensitively to its
// CommandType. Only exact matches count; unknown names
// yield CommandNone.
func LookupCommand(name string) CommandType {

	for ct := CommandNone + 1; ct < commandLast; ct++ {

		if strings.EqualFold(name, commandNames[ct]) {
			return ct
		}
	}

	return CommandNone
}

// NewCommandTable builds the dispatch table from the
// supplied handlers. Commands without a handler answer
// with a tagged NO. Middlewares wrap every entry, the
// first one supplied being the outermost.
func NewCommandTable(handlers map[CommandType]Handler, mws ...Middleware) *CommandTable {

	table := new(CommandTable)

	for ct := CommandNone + 1; ct < commandLast; ct++ {

		h, found := handlers[ct]
		if !found || h == nil {
			h = HandlerFunc(notImplemented)
		}

		for i := len(mws) - 1; i >= 0; i-- {
			h = mws[i](h)
		}

		table.handlers[ct] = h
	}

	return table
}

// Handler returns the handler registered for ct or nil
// for the sentinels.
func (t *CommandTable) Handler(ct CommandType) Handler {

	if ct <= CommandNone || ct >= commandLast {
		return nil
	}

	return t.handlers[ct]
}

func notImplemented(s *Session) Result {
	s.Tagged("NO", "%s not implemented", strings.ToUpper(s.CommandType().String()))
	return ResultFault
}
