package scope

import (
	"errors"
	"strings"
)

// Normalize trims whitespace, drops empty entries and removes duplicates,
// keeping the first occurrence.
func Normalize(scopes []string) []string {
	out := make([]string, 0, len(scopes))
	seen := make(map[string]struct{}, len(scopes))
	for _, s := range scopes {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// Intersect returns the requested scopes that are also entitled, in request
// order and without duplicates. An empty request yields an empty result.
func Intersect(requested, entitled []string) []string {
	allowed := make(map[string]struct{}, len(entitled))
	for _, s := range entitled {
		allowed[s] = struct{}{}
	}

	out := make([]string, 0, len(requested))
	for _, s := range Normalize(requested) {
		if _, ok := allowed[s]; ok {
			out = append(out, s)
		}
	}
	return out
}

// FirstMissing returns the first required scope, in order, absent from
// granted. ok is false when every required scope is present.
func FirstMissing(required, granted []string) (missing string, ok bool) {
	if len(required) == 0 {
		return "", false
	}
	have := make(map[string]struct{}, len(granted))
	for _, s := range granted {
		have[s] = struct{}{}
	}
	for _, s := range required {
		if _, present := have[s]; !present {
			return s, true
		}
	}
	return "", false
}

// Contains reports whether set holds name.
func Contains(set []string, name string) bool {
	for _, s := range set {
		if s == name {
			return true
		}
	}
	return false
}

// Parse splits an OAuth2 space-delimited scope parameter.
func Parse(param string) []string {
	return Normalize(strings.Fields(param))
}

// Format joins scopes into an OAuth2 scope parameter.
func Format(scopes []string) string {
	return strings.Join(scopes, " ")
}

// ValidateName checks name against the RFC 6749 scope-token grammar.
func ValidateName(name string) error {
	if name == "" {
		return errors.New("scope name cannot be empty")
	}
	for _, r := range name {
		// RFC 6749 scope-token: %x21 / %x23-5B / %x5D-7E
		if r < 0x21 || r > 0x7E || r == '"' || r == '\\' {
			return errors.New("scope name contains invalid characters")
		}
	}
	return nil
}
