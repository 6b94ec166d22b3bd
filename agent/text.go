package agent

import (
	"strings"

	"github.com/tidwall/gjson"
)

// ExtractTextContent returns the readable text of a message content value:
// a string is returned as is, a part array yields its text parts and
// non-empty code blocks joined by blank lines, and an object holding a
// "content" field is unwrapped. Anything else yields "".
func ExtractTextContent(content gjson.Result) string {
	switch {
	case content.Type == gjson.String:
		return content.String()
	case content.IsArray():
		var texts []string
		for _, part := range content.Array() {
			if part.Type == gjson.String {
				texts = append(texts, part.String())
				continue
			}
			if !part.IsObject() {
				continue
			}
			switch part.Get("type").String() {
			case "text":
				texts = append(texts, part.Get("text").String())
			case "code-block":
				code := stringField(part, "code")
				language := stringField(part, "language")
				if strings.TrimSpace(code) != "" || strings.TrimSpace(language) != "" {
					texts = append(texts, FormatCodeBlock(code, language))
				}
			}
		}
		return strings.Join(texts, "\n\n")
	case content.IsObject() && content.Get("content").Exists():
		return ExtractTextContent(content.Get("content"))
	default:
		return ""
	}
}

func stringField(r gjson.Result, key string) string {
	v := r.Get(key)
	if v.Type != gjson.String {
		return ""
	}
	return v.String()
}

// FormatCodeBlock renders code as a fenced markdown block. The fence is one
// backtick longer than the longest backtick run inside the code (minimum 3).
func FormatCodeBlock(code, language string) string {
	lang := strings.TrimSpace(language)
	if i := strings.IndexAny(lang, "\r\n"); i >= 0 {
		lang = strings.TrimSpace(lang[:i])
	}
	lang = strings.ReplaceAll(lang, "`", "")

	fence := strings.Repeat("`", max(3, longestBacktickRun(code)+1))
	if lang != "" {
		return fence + lang + "\n" + code + "\n" + fence
	}
	return fence + "\n" + code + "\n" + fence
}

func longestBacktickRun(text string) int {
	longest, current := 0, 0
	for _, r := range text {
		if r == '`' {
			current++
			longest = max(longest, current)
		} else {
			current = 0
		}
	}
	return longest
}
