package app

import (
	"errors"
	"fmt"
	"strings"

	"github.com/casbin/casbin/v3"
	"github.com/samber/lo"
)

var errMalformedPolicy = errors.New("policy must look like subject:object:action")

// seedAuthz loads "role:object:action" policies and "subject -> role[,role]"
// assignments into the enforcer.
func seedAuthz(e *casbin.Enforcer, policies []string, roles map[string]string) error {
	for _, raw := range policies {
		parts := lo.Map(strings.Split(raw, ":"), func(p string, _ int) string { return strings.TrimSpace(p) })
		if len(parts) != 3 || lo.Contains(parts, "") {
			return fmt.Errorf("%w: %q", errMalformedPolicy, raw)
		}
		if _, err := e.AddPolicy(parts[0], parts[1], parts[2]); err != nil {
			return err
		}
	}

	for sub, list := range roles {
		sub = strings.TrimSpace(sub)
		for _, role := range lo.Compact(lo.Map(strings.Split(list, ","), func(r string, _ int) string { return strings.TrimSpace(r) })) {
			if _, err := e.AddGroupingPolicy(sub, role); err != nil {
				return err
			}
		}
	}

	return nil
}
