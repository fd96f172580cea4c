// Package policy models the IAM privileges the workflow runs with and checks
// a deployed policy document grants what the workflow calls.
package policy

import (
	"strings"
)

// Decision represents the outcome of a policy evaluation.
type Decision int

const (
	// Deny is the default: no matching Allow, or an explicit Deny.
	Deny Decision = iota
	// Allow means an explicit Allow was found with no overriding Deny.
	Allow
)

func (d Decision) String() string {
	if d == Allow {
		return "Allow"
	}
	return "Deny"
}

// EvaluateAccess checks whether action on resource is permitted by the
// supplied policy documents, following AWS's evaluation order:
//
//  1. Explicit Deny in any statement → Deny (wins immediately).
//  2. Explicit Allow in any statement → Allow.
//  3. No matching statement → Deny (implicit default).
func EvaluateAccess(action, resource string, policies []PolicyDocument) Decision {
	hasAllow := false
	for i := range policies {
		for j := range policies[i].Statement {
			stmt := &policies[i].Statement[j]

			if !matchesAny(stmt.Action, action) {
				continue
			}
			if !matchesAny(stmt.Resource, resource) {
				continue
			}
			if stmt.Effect == "Deny" {
				return Deny
			}
			if stmt.Effect == "Allow" {
				hasAllow = true
			}
		}
	}

	if hasAllow {
		return Allow
	}
	return Deny
}

func matchesAny(patterns []string, value string) bool {
	for _, p := range patterns {
		if matchWildcard(p, value) {
			return true
		}
	}
	return false
}

// matchWildcard performs simple wildcard matching where "*" can appear at the
// end of a pattern as a suffix wildcard, or alone to match everything.
//
//	"*"              matches anything
//	"ec2:*"          matches "ec2:ModifyVolume"
//	"ec2:Describe*"  matches "ec2:DescribeVolumes"
//	"ec2:CreateTags" matches only "ec2:CreateTags"
func matchWildcard(pattern, value string) bool {
	if pattern == "*" {
		return true
	}
	if strings.HasSuffix(pattern, "*") {
		prefix := pattern[:len(pattern)-1]
		return strings.HasPrefix(value, prefix)
	}
	return strings.EqualFold(pattern, value)
}
