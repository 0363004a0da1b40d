// Package classify maps raw test output to known failure reasons. The
// classifier is a total function: every input, including empty or binary
// garbage, yields at least one (reason, severity) pair.
package classify

import (
	"regexp"

	"go.uber.org/zap"
)

// Severity ranks failures from 1 (cheapest to remediate) to 5 (most
// disruptive). It gates which recovery strategies apply.
type Severity int

const (
	SeverityTrivial  Severity = 1
	SeverityLow      Severity = 2
	SeverityModerate Severity = 3
	SeverityHigh     Severity = 4
	SeverityCritical Severity = 5
)

// ReasonUnknown is the synthetic fallback reason appended when no signature
// matches the output.
const ReasonUnknown = "Unknown failure"

// unknownSeverity is the severity assigned to the fallback reason.
const unknownSeverity = SeverityModerate

// Signature pairs a compiled pattern with the failure reason it indicates.
type Signature struct {
	Pattern  *regexp.Regexp
	Reason   string
	Severity Severity
}

// Match is one detected (reason, severity) pair.
type Match struct {
	Reason   string
	Severity Severity
}

// Classification is the full set of matches for one failed run, in signature
// definition order. It is never empty.
type Classification struct {
	Matches []Match
}

// MaxSeverity returns the highest severity across all matches.
func (c Classification) MaxSeverity() Severity {
	max := Severity(0)
	for _, m := range c.Matches {
		if m.Severity > max {
			max = m.Severity
		}
	}
	return max
}

// Reasons returns the matched reason labels in detection order.
func (c Classification) Reasons() []string {
	out := make([]string, 0, len(c.Matches))
	for _, m := range c.Matches {
		out = append(out, m.Reason)
	}
	return out
}

// signatures is the fixed, ordered signature table. Order determines the
// order matches are reported; matching never short-circuits.
var signatures = []Signature{
	{regexp.MustCompile(`(?i)EADDRINUSE|address already in use|port .* is already (in use|allocated)`), "Port conflict", SeverityTrivial},
	{regexp.MustCompile(`(?i)cannot find module|cannot find package|ERR_MODULE_NOT_FOUND|MODULE_NOT_FOUND|failed to resolve (import|module)`), "Missing dependencies", SeverityModerate},
	{regexp.MustCompile(`(?i)(ENOENT|no such file or directory).*(dist[/\\]|build[/\\]|target[/\\]idl|\.so\b)|missing build artifact`), "Missing build artifacts", SeverityHigh},
	{regexp.MustCompile(`(?i)ECONNREFUSED|connection refused`), "Service not running", SeverityTrivial},
	{regexp.MustCompile(`(?i)ENOTFOUND|EAI_AGAIN|getaddrinfo|network (error|unreachable|is unreachable)`), "Network connectivity", SeverityLow},
	{regexp.MustCompile(`(?i)ETIMEDOUT|timed out|timeout`), "Test timeout", SeverityLow},
	{regexp.MustCompile(`(?i)EACCES|EPERM|permission denied`), "File permissions", SeverityModerate},
	{regexp.MustCompile(`(?i)ENOSPC|no space left on device|disk full`), "Disk space", SeverityCritical},
}

// Classifier scans output against the signature table. It is a read-only,
// process-lifetime singleton safe for concurrent use.
type Classifier struct {
	sigs   []Signature
	logger *zap.Logger
}

// NewClassifier builds a classifier over the fixed signature table.
func NewClassifier(logger *zap.Logger) *Classifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Classifier{sigs: signatures, logger: logger}
}

// Classify runs every signature against output and collects all matches in
// table order. Boolean matching only: no positional data is retained. When
// nothing matches, the result is exactly one ReasonUnknown entry.
func (c *Classifier) Classify(output string) Classification {
	var cls Classification
	for _, sig := range c.sigs {
		if sig.Pattern.MatchString(output) {
			cls.Matches = append(cls.Matches, Match{Reason: sig.Reason, Severity: sig.Severity})
			c.logger.Info("failure signature detected",
				zap.String("reason", sig.Reason),
				zap.Int("severity", int(sig.Severity)))
		}
	}
	if len(cls.Matches) == 0 {
		cls.Matches = append(cls.Matches, Match{Reason: ReasonUnknown, Severity: unknownSeverity})
		c.logger.Info("no failure signature matched, using fallback",
			zap.String("reason", ReasonUnknown),
			zap.Int("severity", int(unknownSeverity)))
	}
	return cls
}
