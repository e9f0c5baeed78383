package auth

import (
	"net/http"
	"strings"
)

// Rule assigns the roles needed to read and write the paths it matches.
type Rule struct {
	Match func(path string) bool
	Read  Role
	Write Role
}

// Policy determines required roles by request. Rules are checked in order.
type Policy struct {
	exempt   map[string]struct{}
	prefixes []string
	rules    []Rule
}

// NewDefaultPolicy builds the admin API policy with the given public paths.
// Everything else under /api/ needs a viewer to read and an operator to write.
func NewDefaultPolicy(exemptPaths []string, exemptPrefixes []string) Policy {
	set := make(map[string]struct{}, len(exemptPaths))
	for _, path := range exemptPaths {
		set[path] = struct{}{}
	}
	return Policy{
		exempt:   set,
		prefixes: exemptPrefixes,
		rules: []Rule{
			{Match: isConfigurationsPath, Read: RoleViewer, Write: RoleOperator},
			{Match: exactPath("/api/v1/exposure/report"), Read: RoleViewer, Write: RoleViewer},
			{Match: exactPath("/api/v1/exposure/group"), Read: RoleOperator, Write: RoleOperator},
			{Match: prefixPath("/api/"), Read: RoleViewer, Write: RoleOperator},
		},
	}
}

// IsExempt reports whether a request skips authentication.
func (p Policy) IsExempt(r *http.Request) bool {
	if r == nil {
		return true
	}
	if _, ok := p.exempt[r.URL.Path]; ok {
		return true
	}
	for _, prefix := range p.prefixes {
		if strings.HasPrefix(r.URL.Path, prefix) {
			return true
		}
	}
	return false
}

// RequiredRole resolves the role a request needs. ok is false for paths no rule covers.
func (p Policy) RequiredRole(r *http.Request) (Role, bool) {
	if r == nil {
		return "", false
	}
	for _, rule := range p.rules {
		if !rule.Match(r.URL.Path) {
			continue
		}
		if isReadMethod(r.Method) {
			return rule.Read, true
		}
		return rule.Write, true
	}
	return "", false
}

func isReadMethod(method string) bool {
	return method == http.MethodGet || method == http.MethodHead || method == http.MethodOptions
}

func isConfigurationsPath(path string) bool {
	return strings.HasPrefix(path, "/api/v1/organizations/") && strings.HasSuffix(path, "/configurations")
}

func exactPath(want string) func(string) bool {
	return func(path string) bool { return path == want }
}

func prefixPath(prefix string) func(string) bool {
	return func(path string) bool { return strings.HasPrefix(path, prefix) }
}
