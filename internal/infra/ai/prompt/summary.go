package prompt

import "fmt"

// RenderSummary wraps a pre-formatted list of recent container issues in
// the health-summary instructions.
func RenderSummary(formattedIssues string) string {
	return fmt.Sprintf(`You are an IT operations assistant analyzing system health based on recent container issues.
Provide a concise (1-3 sentences) summary focusing on the overall health trend. Mention the total number of unresolved issues. If specific containers have multiple unresolved issues, highlight them briefly. Avoid listing every single issue.

Recent Container Issues (within monitored period):
%s
--- End List ---

Overall System Health Summary:`, formattedIssues)
}
