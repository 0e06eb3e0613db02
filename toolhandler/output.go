package toolhandler

import (
	"encoding/json"
	"fmt"
)

// MaxOutputChars bounds tool output injected back into the conversation;
// oversized output is middle-truncated rather than dropped.
const MaxOutputChars = 8000

// stringifyOutput renders a tool's return value as the content string that
// goes into a node.ToolResult: strings pass through, nil becomes the fixed
// sentinel, errors render as their message, everything else is
// JSON-marshaled. Oversized output is
// middle-truncated, preserving head and tail context.
func stringifyOutput(out any) string {
	var s string
	switch v := out.(type) {
	case nil:
		s = "Done."
	case string:
		s = v
	case error:
		s = v.Error()
	default:
		data, err := json.Marshal(v)
		if err != nil {
			s = fmt.Sprintf("%v", v)
		} else {
			s = string(data)
		}
	}
	return truncateMiddle(s, MaxOutputChars)
}

func truncateMiddle(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	marker := fmt.Sprintf("\n...[truncated %d chars]...\n", len(s)-limit)
	keep := limit - len(marker)
	if keep < 0 {
		keep = 0
	}
	head := keep / 2
	tail := keep - head
	return s[:head] + marker + s[len(s)-tail:]
}
