package client

import "strings"

const helpText = `Commands:
  /create [password]            create a new room (optional password)
  /join <room_id> <user> [pw]   join an existing room
  /send <message>               send to the current room
  /leave                        leave the current room
  /exit                         quit
  /help                         show this help

Any line not starting with / is sent to the current room.`

type command struct {
	name     string
	roomID   string
	username string
	password string
	text     string
}

// parseLine maps one line of user input to a command. A non-empty line that
// does not start with / is an implicit send.
func parseLine(line string) command {
	line = strings.TrimSpace(line)
	if line == "" {
		return command{name: "none"}
	}
	if !strings.HasPrefix(line, "/") {
		return command{name: "send", text: line}
	}

	fields := strings.Fields(line)
	switch fields[0] {
	case "/create":
		cmd := command{name: "create"}
		if len(fields) > 1 {
			cmd.password = fields[1]
		}
		return cmd
	case "/join":
		if len(fields) < 3 {
			return command{name: "invalid"}
		}
		cmd := command{name: "join", roomID: fields[1], username: fields[2]}
		if len(fields) > 3 {
			cmd.password = fields[3]
		}
		return cmd
	case "/send":
		text := strings.TrimSpace(strings.TrimPrefix(line, "/send"))
		if text == "" {
			return command{name: "invalid"}
		}
		return command{name: "send", text: text}
	case "/leave":
		return command{name: "leave"}
	case "/exit":
		return command{name: "exit"}
	case "/help":
		return command{name: "help"}
	default:
		return command{name: "invalid"}
	}
}
