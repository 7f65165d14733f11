package settings

// Settings are the runtime-tunable knobs persisted in the key/value table.
// Bootstrap concerns (ports, DSNs, endpoints) live in config.yaml instead.
type Settings struct {
	Model                string   `json:"model"`
	AnalysisPrompt       string   `json:"analysis_prompt"`
	ScanIntervalMinutes  int      `json:"scan_interval_minutes"`
	SummaryIntervalHours int      `json:"summary_interval_hours"`
	LogLines             int      `json:"log_lines"`
	IgnoredContainers    []string `json:"ignored_containers"`
	APIKey               string   `json:"api_key,omitempty"`
}

// DefaultAnalysisPrompt instructs the model to answer with the single word
// NORMAL for clean logs, or an "ERROR: ..." line plus quoted evidence. The
// {logs} placeholder is replaced with the fetched log text.
const DefaultAnalysisPrompt = `Analyze the following Docker container logs STRICTLY for CRITICAL errors, application crashes, fatal exceptions, stack traces indicating failure, severe performance degradation, OOM (Out Of Memory) errors, or potential security breaches (like repeated auth failures).

FOCUS ONLY on issues that indicate service failure, instability, or require immediate attention.

MUST IGNORE:
- Routine operational messages, startup sequences, successful connections, periodic status updates.
- Lines starting with 'INFO:' unless they ALSO contain critical keywords like 'error', 'fail', 'crash', 'fatal', 'exception', 'denied', 'unauthorized'.
- Expected transient warnings and non-critical warnings (deprecations, minor config mismatches).
- Verbose DEBUG output unless it clearly shows a critical failure loop.
- Successful health checks or HTTP 2xx status codes.

RESPONSE FORMAT:
1. If ONLY ignored message types are present, respond ONLY with the single word 'NORMAL'. Do not explain. Do not add any other text.
2. If critical abnormalities ARE found:
   a. Respond ONLY with a line starting EXACTLY with "ERROR: " followed by a VERY SHORT (1 sentence max) description of the specific critical issue.
   b. On a NEW line, quote the MOST RELEVANT log line(s) (max 3-4 lines), prefixed exactly with 'Relevant Log(s):'.
   c. Do NOT include introductory phrases.

--- LOGS ---
{logs}
--- END LOGS ---

Analysis Result:`

// Defaults returns the settings used until operators change them.
func Defaults() Settings {
	return Settings{
		Model:                "phi3",
		AnalysisPrompt:       DefaultAnalysisPrompt,
		ScanIntervalMinutes:  180,
		SummaryIntervalHours: 12,
		LogLines:             100,
		IgnoredContainers:    []string{},
	}
}

// IgnoreSet returns the ignored container names as a lookup set.
func (s Settings) IgnoreSet() map[string]bool {
	set := make(map[string]bool, len(s.IgnoredContainers))
	for _, name := range s.IgnoredContainers {
		set[name] = true
	}
	return set
}
