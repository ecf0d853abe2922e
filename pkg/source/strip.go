package source

import "strings"

// CommentDelimiter starts an end-of-line comment.
const CommentDelimiter = ';'

// Strip removes every end-of-line comment from src. The comment, from the
// delimiter up to and including its line terminator, is replaced by a single
// "\n", so line numbers and the column of every surviving byte are unchanged.
// A comment on the last line with no terminator is replaced the same way.
// A delimiter inside a "string" or 'c' literal does not start a comment.
func Strip(src string) string {
	if strings.IndexByte(src, CommentDelimiter) < 0 {
		return src
	}

	var sb strings.Builder
	sb.Grow(len(src))

	n := len(src)
	i := 0
	for i < n {
		c := src[i]
		switch c {
		case '"', '\'':
			// Copy the literal verbatim. An unterminated literal stops at end of line.
			sb.WriteByte(c)
			i++
			for i < n && src[i] != '\n' {
				ch := src[i]
				sb.WriteByte(ch)
				i++
				if ch == '\\' && i < n && src[i] != '\n' {
					sb.WriteByte(src[i])
					i++
				} else if ch == c {
					break
				}
			}
		case CommentDelimiter:
			end := strings.IndexByte(src[i:], '\n')
			if end < 0 {
				i = n
			} else {
				i += end + 1
			}
			sb.WriteByte('\n')
		default:
			sb.WriteByte(c)
			i++
		}
	}
	return sb.String()
}
