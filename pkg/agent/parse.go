package agent

import "strings"

// Invocation is a single tool call expressed in the response protocol: a
// <tool_name> element naming the tool plus one sibling element per argument.
type Invocation struct {
	Name string
	Args map[string]any
}

type tagBlock struct {
	name  string
	value string
	start int
	end   int
}

// scanTags walks text left to right collecting non-overlapping
// <name>value</name> blocks. Closing tags match case-insensitively and
// non-greedily; an opening tag without a close is skipped.
func scanTags(text string) []tagBlock {
	var blocks []tagBlock
	pos := 0
	for pos < len(text) {
		lt := strings.IndexByte(text[pos:], '<')
		if lt < 0 {
			break
		}
		start := pos + lt
		name, valueStart := parseOpenTag(text, start)
		if name == "" {
			pos = start + 1
			continue
		}
		closeTag := "</" + name + ">"
		rel := indexFold(text[valueStart:], closeTag)
		if rel < 0 {
			pos = valueStart
			continue
		}
		blocks = append(blocks, tagBlock{
			name:  name,
			value: text[valueStart : valueStart+rel],
			start: start,
			end:   valueStart + rel + len(closeTag),
		})
		pos = valueStart + rel + len(closeTag)
	}
	return blocks
}

// parseOpenTag reads an opening tag at start. It returns the tag name and
// the index just past '>', or "" when start does not begin a well-formed
// open tag.
func parseOpenTag(text string, start int) (string, int) {
	i := start + 1
	if i >= len(text) || !isTagStart(text[i]) {
		return "", 0
	}
	j := i + 1
	for j < len(text) && isTagChar(text[j]) {
		j++
	}
	if j >= len(text) || text[j] != '>' {
		return "", 0
	}
	return text[i:j], j + 1
}

func isTagStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isTagChar(c byte) bool {
	return isTagStart(c) || c == '-' || (c >= '0' && c <= '9')
}

// indexFold is a case-insensitive strings.Index for ASCII needles.
func indexFold(s, substr string) int {
	n := len(substr)
	if n == 0 {
		return 0
	}
	for i := 0; i+n <= len(s); i++ {
		if strings.EqualFold(s[i:i+n], substr) {
			return i
		}
	}
	return -1
}

// ParseInvocation extracts the tool invocation from an assistant response.
// The tool name comes from the first <tool_name> element (tag matched
// case-insensitively, value taken verbatim); every other complete element
// becomes a string argument with surrounding whitespace trimmed. ok is
// false when the response carries no invocation.
func ParseInvocation(text string) (Invocation, bool) {
	inv := Invocation{Args: map[string]any{}}
	named := false
	for _, b := range scanTags(text) {
		if strings.EqualFold(b.name, "tool_name") {
			if !named {
				inv.Name = strings.TrimSpace(b.value)
				named = true
			}
			continue
		}
		inv.Args[b.name] = strings.TrimSpace(b.value)
	}
	if !named || inv.Name == "" {
		return Invocation{}, false
	}
	return inv, true
}

// CleanContent strips every complete tag element from a response, leaving
// the surrounding prose. The result feeds progress briefs; an all-XML
// response cleans to the empty string.
func CleanContent(text string) string {
	blocks := scanTags(text)
	if len(blocks) == 0 {
		return strings.TrimSpace(text)
	}
	var b strings.Builder
	pos := 0
	for _, blk := range blocks {
		b.WriteString(text[pos:blk.start])
		pos = blk.end
	}
	b.WriteString(text[pos:])
	return strings.TrimSpace(b.String())
}
