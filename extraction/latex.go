package extraction

import (
	"regexp"
	"strings"
)

var latexRules = []struct {
	pattern     *regexp.Regexp
	replacement string
}{
	{regexp.MustCompile(`\\\$`), ""},
	{regexp.MustCompile(`<[^>]*>`), ""},
	{regexp.MustCompile(`\\(?:mathbf|textbf|mathrm|text|mathit|mathsf|boldsymbol)\{(.*?)\}`), "${1}"},
	{regexp.MustCompile(`(?s)\$\$(.*?)\$\$`), "${1}"},
	{regexp.MustCompile(`\$(.*?)\$`), "${1}"},
	{regexp.MustCompile(`\\[a-zA-Z]+\s*`), ""},
	// footnote markers such as {}^{(1)} and {1234}^{(1)}
	{regexp.MustCompile(`[ \t]*\{[ \t]*\}[ \t]*\^\{\(\d+\)\}`), ""},
	{regexp.MustCompile(`\{([^{}\n]+)\}[ \t]*\^\{\(\d+\)\}`), "${1}"},
}

// CleanLatex strips LaTeX and HTML artifacts that OCR engines leave in
// markdown. Escaped dollars are dropped, \% becomes %, formatting commands
// are unwrapped to their argument and math delimiters are removed.
func CleanLatex(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, `\%`, "%")
	for _, rule := range latexRules {
		text = rule.pattern.ReplaceAllString(text, rule.replacement)
	}
	return text
}
