package errors

import (
	"fmt"
	"strings"
)

// ANSI color codes for terminal output.
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[90m"
	colorBold   = "\033[1m"
)

// colorEnabled controls whether ANSI colors are used.
var colorEnabled = true

// DisableColors disables ANSI color output.
func DisableColors() {
	colorEnabled = false
}

// EnableColors enables ANSI color output.
func EnableColors() {
	colorEnabled = true
}

func color(code, text string) string {
	if !colorEnabled {
		return text
	}
	return code + text + colorReset
}

// Format renders the error for terminal output: header, detail,
// suggestion and doc link, each on its own block.
func (e *Error) Format() string {
	var b strings.Builder

	header := e.Message
	if e.Code != "" {
		header = fmt.Sprintf("%s [%s]", e.Message, e.Code)
	}
	b.WriteString(color(colorRed+colorBold, "error: ") + color(colorBold, header) + "\n")

	if e.Category != "" {
		b.WriteString(color(colorGray, "  category: "+string(e.Category)) + "\n")
	}
	if e.Detail != "" {
		b.WriteString("\n  " + wrapText(e.Detail, 76) + "\n")
	}
	if e.Wrapped != nil {
		b.WriteString("\n  " + color(colorGray, "caused by: "+e.Wrapped.Error()) + "\n")
	}
	if e.Suggestion != "" {
		b.WriteString("\n" + color(colorYellow, "  hint: ") + e.Suggestion + "\n")
	}
	if e.DocURL != "" {
		b.WriteString("\n" + color(colorCyan, "  docs: "+e.DocURL) + "\n")
	}

	return b.String()
}

// wrapText wraps text at the given width, indenting continuation lines
// to match the formatted block.
func wrapText(text string, width int) string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return ""
	}

	var b strings.Builder
	lineLen := 0
	for i, word := range words {
		if i > 0 {
			if lineLen+1+len(word) > width {
				b.WriteString("\n  ")
				lineLen = 0
			} else {
				b.WriteString(" ")
				lineLen++
			}
		}
		b.WriteString(word)
		lineLen += len(word)
	}
	return b.String()
}
