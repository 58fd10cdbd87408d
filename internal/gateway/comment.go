package gateway

import (
	"strings"
)

// CommentLimit is the number of comment bytes the venue keeps.
const CommentLimit = 31

const defaultComment = "autotrade"

// SanitizeComment reduces text to what the venue accepts: ASCII letters, digits,
// spaces and .,!?;:-_ with runs of whitespace collapsed. Text longer than
// CommentLimit is cut and ends in "...". Empty results become "autotrade".
func SanitizeComment(text string) string {
	var b strings.Builder

	space := false

	for _, r := range text {
		switch {
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			space = true

			continue
		case isCommentRune(r):
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}

			space = false

			b.WriteRune(r)
		}
	}

	cleaned := b.String()
	if cleaned == "" {
		return defaultComment
	}

	if len(cleaned) > CommentLimit {
		cleaned = strings.TrimRight(cleaned[:CommentLimit-3], " ") + "..."
	}

	return cleaned
}

func isCommentRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	}

	return strings.ContainsRune(".,!?;:-_", r)
}
