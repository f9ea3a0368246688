package postprocess

import "strings"

// splitLong breaks a long message into chunks of at most maxLen characters,
// cutting at paragraph breaks first and sentence boundaries second. A single
// sentence longer than maxLen becomes its own oversized chunk; a sentence is
// never split in the middle.
func splitLong(text string, maxLen int) []string {
	var chunks []string
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			chunks = append(chunks, strings.TrimSpace(current.String()))
			current.Reset()
		}
	}

	for _, paragraph := range strings.Split(text, "\n\n") {
		paragraph = strings.TrimSpace(paragraph)
		if paragraph == "" {
			continue
		}

		// A paragraph that fits goes in whole.
		if current.Len() == 0 && len(paragraph) <= maxLen {
			current.WriteString(paragraph)
			flush()
			continue
		}
		if current.Len() > 0 && current.Len()+2+len(paragraph) <= maxLen {
			current.WriteString("\n\n")
			current.WriteString(paragraph)
			continue
		}
		flush()
		if len(paragraph) <= maxLen {
			current.WriteString(paragraph)
			continue
		}

		// Oversized paragraph, accumulate sentences.
		for _, sentence := range splitSentences(paragraph) {
			if current.Len() == 0 {
				current.WriteString(sentence)
				continue
			}
			if current.Len()+1+len(sentence) <= maxLen {
				current.WriteString(" ")
				current.WriteString(sentence)
				continue
			}
			flush()
			current.WriteString(sentence)
		}
		flush()
	}
	flush()

	if len(chunks) == 0 {
		if trimmed := strings.TrimSpace(text); trimmed != "" {
			return []string{trimmed}
		}
		return nil
	}
	return chunks
}

// splitSentences cuts text after sentence-ending punctuation followed by
// whitespace. Trailing quotes and brackets stay with their sentence.
func splitSentences(text string) []string {
	var sentences []string
	runes := []rune(text)
	start := 0

	for i := 0; i < len(runes); i++ {
		if !isSentenceEnd(runes[i]) {
			continue
		}
		// Consume repeated punctuation ("!?", "...") and closing marks.
		j := i + 1
		for j < len(runes) && (isSentenceEnd(runes[j]) || isClosing(runes[j])) {
			j++
		}
		if j < len(runes) && !isSpace(runes[j]) {
			i = j - 1
			continue
		}
		sentence := strings.TrimSpace(string(runes[start:j]))
		if sentence != "" {
			sentences = append(sentences, sentence)
		}
		for j < len(runes) && isSpace(runes[j]) {
			j++
		}
		start = j
		i = j - 1
	}

	if start < len(runes) {
		if tail := strings.TrimSpace(string(runes[start:])); tail != "" {
			sentences = append(sentences, tail)
		}
	}
	return sentences
}

func isSentenceEnd(r rune) bool {
	switch r {
	case '.', '!', '?', '…':
		return true
	}
	return false
}

func isClosing(r rune) bool {
	switch r {
	case '"', '\'', ')', ']', '”', '’':
		return true
	}
	return false
}

func isSpace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\r':
		return true
	}
	return false
}
