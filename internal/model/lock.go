package model

import (
	"path"
	"strings"
	"time"
)

// MethodWildcard is the method entry that leases a whole file instead of
// specific methods.
const MethodWildcard = "*"

// FileLock is a time-bounded lease of editing rights over a path, optionally
// scoped to specific methods. Leases are cooperative: they are records in the
// shared document, not OS-level locks.
type FileLock struct {
	Path    string
	AgentID string
	// Methods under lease. A single MethodWildcard entry means the whole
	// file.
	Methods    []string
	Reason     string
	TaskID     string
	AcquiredAt time.Time
	ExpiresAt  time.Time
}

// Expired reports whether the lease's expiry has passed at the given instant.
func (l *FileLock) Expired(now time.Time) bool {
	return now.After(l.ExpiresAt)
}

// WholeFile reports whether the lease covers the whole file.
func (l *FileLock) WholeFile() bool {
	for _, m := range l.Methods {
		if m == MethodWildcard {
			return true
		}
	}
	return len(l.Methods) == 0
}

// ConflictsWith reports whether a request for the given methods collides with
// this lease: either side leasing the whole file conflicts, otherwise the
// method sets must intersect.
func (l *FileLock) ConflictsWith(methods []string) bool {
	if l.WholeFile() || isWholeFile(methods) {
		return true
	}

	held := map[string]struct{}{}
	for _, m := range l.Methods {
		held[m] = struct{}{}
	}
	for _, m := range methods {
		if _, ok := held[m]; ok {
			return true
		}
	}

	return false
}

// MergeMethods unions the lease's method set with the given one, keeping
// first-seen order. A wildcard on either side collapses the set to the
// wildcard.
func (l *FileLock) MergeMethods(methods []string) {
	if l.WholeFile() || isWholeFile(methods) {
		l.Methods = []string{MethodWildcard}
		return
	}

	seen := map[string]struct{}{}
	merged := make([]string, 0, len(l.Methods)+len(methods))
	for _, m := range append(append([]string{}, l.Methods...), methods...) {
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		merged = append(merged, m)
	}
	l.Methods = merged
}

func isWholeFile(methods []string) bool {
	if len(methods) == 0 {
		return true
	}
	for _, m := range methods {
		if m == MethodWildcard {
			return true
		}
	}
	return false
}

// NormalizePath canonicalizes a path so it can be used as a lease and
// modification key across platforms (forward slashes, no ./ prefixes, no
// duplicated separators).
func NormalizePath(p string) string {
	// filepath.ToSlash is a no-op for keys produced on Windows and read
	// elsewhere, replace separators explicitly instead.
	p = strings.ReplaceAll(p, `\`, "/")
	return path.Clean(p)
}

// FileModification is an immutable record of a change made under a lease.
type FileModification struct {
	ID      string
	Path    string
	Method  string
	AgentID string
	// Lines is a free-form description of the touched line range.
	Lines      string
	Reason     string
	TaskID     string
	ModifiedAt time.Time
}

// SuggestionPriority classifies how urgent a refactor suggestion is.
type SuggestionPriority string

const (
	SuggestionPriorityLow    SuggestionPriority = "low"
	SuggestionPriorityMedium SuggestionPriority = "medium"
	SuggestionPriorityHigh   SuggestionPriority = "high"
)

// RefactorSuggestion is a system-generated advisory raised when a path or
// method is modified more often than the configured threshold within a
// rolling day. Priority is frozen at creation.
type RefactorSuggestion struct {
	ID        string
	Path      string
	Method    string
	Reason    string
	Priority  SuggestionPriority
	CreatedBy string
	CreatedAt time.Time
}

// SuggestionCreatedBySystem is the creator recorded on heuristic-generated
// suggestions.
const SuggestionCreatedBySystem = "system"
