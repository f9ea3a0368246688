// Package postprocess turns raw model output into deliverable messages.
// Model output drifts between formats across providers and prompt versions,
// so parsing is an ordered list of variant parsers with a raw-text fallback;
// it never returns an error.
package postprocess

import (
	"regexp"
	"strings"
)

var (
	thinkingRe = regexp.MustCompile(`(?s)<thinking>(.*?)</thinking>`)
	emojiRe    = regexp.MustCompile(`(?s)<emoji>(.*?)</emoji>`)
	responseRe = regexp.MustCompile(`(?s)<response>(.*?)</response>`)
	messageRe  = regexp.MustCompile(`(?s)<message>(.*?)</message>`)
	strayTagRe = regexp.MustCompile(`</?(?:response|message)>`)
)

const breakMarker = "[BREAK]"

// legacySeparator predates the [BREAK] marker. Old prompts still in the
// durable log can echo it back, so it stays supported.
const legacySeparator = "|||"

// Result is parsed model output. Reasoning is the private thinking trace,
// never delivered. Reaction is an optional emoji the cadence controller may
// surface.
type Result struct {
	Reasoning string
	Messages  []string
	Reaction  string
}

// Processor parses and splits raw model output.
type Processor struct {
	autoSplitThreshold int
	maxChunkLen        int
}

func NewProcessor(autoSplitThreshold, maxChunkLen int) *Processor {
	if autoSplitThreshold <= 0 {
		autoSplitThreshold = 500
	}
	if maxChunkLen <= 0 {
		maxChunkLen = 300
	}
	return &Processor{autoSplitThreshold: autoSplitThreshold, maxChunkLen: maxChunkLen}
}

// Parse extracts reasoning and reaction, then splits the remaining payload
// into messages. Non-empty input always yields at least one non-empty
// message.
func (p *Processor) Parse(raw string) *Result {
	result := &Result{}
	text := raw

	if m := thinkingRe.FindStringSubmatch(text); m != nil {
		result.Reasoning = strings.TrimSpace(m[1])
		text = thinkingRe.ReplaceAllString(text, "")
	}
	if m := emojiRe.FindStringSubmatch(text); m != nil {
		result.Reaction = strings.TrimSpace(m[1])
		text = emojiRe.ReplaceAllString(text, "")
	}

	result.Messages = p.splitMessages(text)

	// Fallback chain for degenerate output: deliver something rather than
	// go silent on a non-empty model response.
	if len(result.Messages) == 0 {
		if stripped := strings.TrimSpace(strayTagRe.ReplaceAllString(text, "")); stripped != "" {
			result.Messages = []string{stripped}
		} else if result.Reasoning != "" {
			result.Messages = []string{result.Reasoning}
		} else if trimmed := strings.TrimSpace(raw); trimmed != "" {
			result.Messages = []string{trimmed}
		}
	}

	result.Messages = p.autoSplit(result.Messages)

	return result
}

// splitMessages applies the format variants in order, first match wins.
func (p *Processor) splitMessages(text string) []string {
	if m := responseRe.FindStringSubmatch(text); m != nil {
		payload := m[1]
		if strings.Contains(payload, breakMarker) {
			return cleanSplit(payload, breakMarker)
		}
		if sub := messageRe.FindAllStringSubmatch(payload, -1); sub != nil {
			var messages []string
			for _, s := range sub {
				if msg := strings.TrimSpace(s[1]); msg != "" {
					messages = append(messages, msg)
				}
			}
			return messages
		}
		if msg := strings.TrimSpace(payload); msg != "" {
			return []string{msg}
		}
		return nil
	}

	if strings.Contains(text, breakMarker) {
		return cleanSplit(text, breakMarker)
	}
	if strings.Contains(text, legacySeparator) {
		return cleanSplit(text, legacySeparator)
	}
	if msg := strings.TrimSpace(strayTagRe.ReplaceAllString(text, "")); msg != "" {
		return []string{msg}
	}
	return nil
}

func (p *Processor) autoSplit(messages []string) []string {
	var out []string
	for _, msg := range messages {
		if len(msg) > p.autoSplitThreshold {
			out = append(out, splitLong(msg, p.maxChunkLen)...)
		} else {
			out = append(out, msg)
		}
	}
	return out
}

func cleanSplit(text, sep string) []string {
	var messages []string
	for _, part := range strings.Split(text, sep) {
		part = strings.TrimSpace(strayTagRe.ReplaceAllString(part, ""))
		if part != "" {
			messages = append(messages, part)
		}
	}
	return messages
}
