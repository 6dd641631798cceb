package ui

import "strings"

type commandKind int

const (
	cmdNone commandKind = iota
	cmdSend
	cmdQuit
	cmdHelp
	cmdRoom
	cmdUsers
	cmdClear
)

type command struct {
	kind commandKind
	text string
}

// parseCommand reads one input line. Quit words work with or without the
// leading slash; every other line not naming a command is chat text.
func parseCommand(line string) command {
	line = strings.TrimSpace(line)
	if line == "" {
		return command{kind: cmdNone}
	}
	switch strings.ToLower(line) {
	case "quit", "exit", "q", "/quit", "/exit", "/q":
		return command{kind: cmdQuit}
	case "/help", "/h", "/?":
		return command{kind: cmdHelp}
	case "/room":
		return command{kind: cmdRoom}
	case "/users":
		return command{kind: cmdUsers}
	case "/clear", "/cls":
		return command{kind: cmdClear}
	}
	return command{kind: cmdSend, text: line}
}

const helpText = "commands: /help  /room  /users  /clear  /quit (or quit, exit, q)"
