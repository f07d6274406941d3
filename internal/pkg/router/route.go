package router

import "strings"

// routeRule matches a registered route pattern, optionally for one method
// only. A pattern ending in "*" matches everything under that prefix.
type routeRule struct {
	method string
	path   string
	prefix bool
}

func (m routeRule) match(method, route string) bool {
	if m.method != "" && m.method != method {
		return false
	}
	if m.prefix {
		return strings.HasPrefix(route, m.path)
	}
	return route == m.path
}

// parseRouteRule reads "POST /api/v1/media/uploads" or "/api/v1/otp/*".
func parseRouteRule(raw string) (routeRule, bool) {
	fields := strings.Fields(raw)

	var rule routeRule
	switch len(fields) {
	case 1:
		rule.path = fields[0]
	case 2:
		rule.method, rule.path = strings.ToUpper(fields[0]), fields[1]
	default:
		return routeRule{}, false
	}

	if p, ok := strings.CutSuffix(rule.path, "*"); ok {
		rule.path, rule.prefix = p, true
	}
	return rule, rule.path != ""
}

type routeRules []routeRule

// parseRouteRules drops malformed entries.
func parseRouteRules(raw []string) routeRules {
	var rules routeRules
	for _, r := range raw {
		if rule, ok := parseRouteRule(r); ok {
			rules = append(rules, rule)
		}
	}
	return rules
}

func (rs routeRules) match(method, route string) bool {
	for _, r := range rs {
		if r.match(method, route) {
			return true
		}
	}
	return false
}
