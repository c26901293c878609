// Package permission classifies and gates mutating tool calls the AI agent
// coordinator wants to execute, per the plan/default/accept-edits mode
// contract.
package permission

import (
	"regexp"
	"strings"
)

// Severity is the classification assigned to one tool command.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeverityNone     Severity = "none"
)

// severityRank orders severities for ">= medium" comparisons.
var severityRank = map[Severity]int{
	SeverityNone:     0,
	SeverityLow:      1,
	SeverityMedium:   2,
	SeverityHigh:     3,
	SeverityCritical: 4,
}

// AtLeast reports whether s is at least as severe as other.
func (s Severity) AtLeast(other Severity) bool {
	return severityRank[s] >= severityRank[other]
}

var (
	nodeOpPattern       = regexp.MustCompile(`(?i)\b(drain|cordon|uncordon|taint)\b`)
	clusterScopedKind   = regexp.MustCompile(`(?i)\b(clusterrole|clusterrolebinding|node|namespace|persistentvolume|storageclass)\b`)
	deletePattern       = regexp.MustCompile(`(?i)\bdelete\b`)
	destructiveShell    = regexp.MustCompile(`rm\s+-rf\b`)
	mediumVerbPattern   = regexp.MustCompile(`(?i)\b(create|apply|patch|edit|replace|set|scale)\b`)
	execPattern         = regexp.MustCompile(`(?i)\bexec\b`)
	readOnlyVerbPattern = regexp.MustCompile(`(?i)\b(get|describe|logs|top)\b`)
)

// Classify assigns a severity to command, a serialized representation of
// the tool call (tool name plus its rendered arguments), per §4.6's
// regex-based taxonomy, evaluated most-severe-first.
func Classify(command string) Severity {
	switch {
	case nodeOpPattern.MatchString(command):
		return SeverityCritical
	case deletePattern.MatchString(command) && clusterScopedKind.MatchString(command):
		return SeverityCritical
	case deletePattern.MatchString(command):
		return SeverityHigh
	case destructiveShell.MatchString(command):
		return SeverityHigh
	case mediumVerbPattern.MatchString(command):
		return SeverityMedium
	case execPattern.MatchString(command):
		return SeverityLow
	case readOnlyVerbPattern.MatchString(command):
		return SeverityNone
	default:
		return SeverityNone
	}
}

// DefaultRestrictedNamespaces is the built-in restricted-namespace set
// used when no configuration overrides it: the cluster's well-known
// system namespaces.
var DefaultRestrictedNamespaces = []string{
	"kube-system",
	"kube-public",
	"kube-node-lease",
}

// IsRestricted reports whether namespace is in the restricted set
// (compared case-insensitively).
func IsRestricted(namespace string, restricted []string) bool {
	for _, ns := range restricted {
		if strings.EqualFold(ns, namespace) {
			return true
		}
	}
	return false
}
