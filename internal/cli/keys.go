package cli

import "strings"

const keyHelp = "s start  p pause  r resume  x reset  k skip break  1-4 choose activity  q quit"

var keyCommands = map[string]string{
	"s": "start",
	"p": "pause",
	"r": "resume",
	"x": "reset",
	"k": "skip",
}

// translateKey maps a terminal input line to a control command. Whole
// commands such as "status" pass through unchanged.
func translateKey(line string) string {
	key := strings.ToLower(strings.TrimSpace(line))
	if command, ok := keyCommands[key]; ok {
		return command
	}
	if len(key) == 1 && key[0] >= '1' && key[0] <= '9' {
		return "select " + key
	}
	return key
}
