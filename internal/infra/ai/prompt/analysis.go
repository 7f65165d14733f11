package prompt

import (
	"fmt"
	"strings"
)

// The model is instructed to answer with the single word NORMAL for clean
// logs, or an "ERROR: ..." line followed by quoted evidence prefixed with
// snippetPrefix. These helpers implement that protocol.

const (
	snippetPrefix  = "Relevant Log(s):"
	logsToken      = "{logs}"
	maxSnippetLen  = 500
	fallbackLines  = 3
	noSnippetFound = "(no specific log line identified in analysis)"
)

// keywords scanned for (lowercase) when the model does not quote a line.
var keywords = []string{
	"error", "warning", "failed", "exception", "critical", "traceback",
	"fatal", "panic", "refused", "denied", "unauthorized", "timeout",
	"unavailable", "oom",
}

// RenderAnalysis fills the {logs} placeholder of an analysis prompt
// template.
func RenderAnalysis(template, logs string) (string, error) {
	if !strings.Contains(template, logsToken) {
		return "", fmt.Errorf("analysis prompt is missing the %s placeholder", logsToken)
	}
	return strings.ReplaceAll(template, logsToken, logs), nil
}

// IsNormalResponse reports whether the model declared the logs clean.
// A trailing period and any casing are tolerated.
func IsNormalResponse(s string) bool {
	s = strings.ToUpper(strings.TrimSpace(s))
	return s == "NORMAL" || s == "NORMAL."
}

// ExtractSnippet pulls the log line(s) the model quoted, falling back to a
// keyword search over the raw logs (most recent line first) and finally to
// the last non-empty lines. The result is capped at 500 characters.
func ExtractSnippet(analysisResult, fullLogs string) string {
	if _, after, ok := strings.Cut(analysisResult, snippetPrefix); ok {
		if snippet := strings.TrimSpace(after); snippet != "" {
			return truncate(snippet)
		}
	}

	lines := strings.Split(strings.TrimSpace(fullLogs), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}
		lower := strings.ToLower(line)
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				return truncate(line)
			}
		}
	}

	var tail []string
	for i := len(lines) - 1; i >= 0 && len(tail) < fallbackLines; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			tail = append([]string{line}, tail...)
		}
	}
	if len(tail) == 0 {
		return noSnippetFound
	}
	return truncate(strings.Join(tail, "\n"))
}

func truncate(s string) string {
	if len(s) <= maxSnippetLen {
		return s
	}
	return s[:maxSnippetLen] + "..."
}
