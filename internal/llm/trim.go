package llm

// TrimMessages drops the oldest message groups until the history fits in
// maxTokens. The most recent group is always kept, and an assistant tool call
// is never separated from its tool results. A trimmed history starts at a user
// message whenever one survives.
//
// The budget should already exclude the system prompt and tool definitions.
func TrimMessages(messages []Message, maxTokens int) []Message {
	if len(messages) == 0 {
		return messages
	}

	groups := groupMessages(messages)

	total := 0
	for _, g := range groups {
		total += g.tokens
	}

	if total <= maxTokens {
		return messages
	}

	// Always keep the last group (active turn). Trim from the front.
	kept := total
	dropUntil := 0
	for dropUntil < len(groups)-1 && kept > maxTokens {
		kept -= groups[dropUntil].tokens
		dropUntil++
	}
	for dropUntil < len(groups)-1 && groups[dropUntil].messages[0].Role != RoleUser {
		dropUntil++
	}

	// Rebuild the message slice from the surviving groups.
	var trimmed []Message
	for _, g := range groups[dropUntil:] {
		trimmed = append(trimmed, g.messages...)
	}
	return trimmed
}

// messageGroup is kept or dropped as a whole.
type messageGroup struct {
	messages []Message
	tokens   int
}

// groupMessages splits a message slice into groups. Every message is its own
// group except an assistant tool-call message, which takes the tool messages
// that follow it.
func groupMessages(messages []Message) []messageGroup {
	var groups []messageGroup
	i := 0
	for i < len(messages) {
		msg := messages[i]

		// Assistant message with tool calls: group it with subsequent tool results.
		if msg.Role == RoleAssistant && len(msg.ToolCalls) > 0 {
			group := messageGroup{}
			group.messages = append(group.messages, msg)
			group.tokens += EstimateMessageTokens(msg)
			i++
			// Collect all tool result messages that follow.
			for i < len(messages) && messages[i].Role == RoleTool {
				group.messages = append(group.messages, messages[i])
				group.tokens += EstimateMessageTokens(messages[i])
				i++
			}
			groups = append(groups, group)
			continue
		}

		// Any other message is its own group.
		groups = append(groups, messageGroup{
			messages: []Message{msg},
			tokens:   EstimateMessageTokens(msg),
		})
		i++
	}
	return groups
}
