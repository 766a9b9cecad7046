package parser

import (
	"fmt"
	"strings"
)

// ValidateCode parses source and reports structural problems. It never fails:
// the report always carries the best-effort parse, and errors do not block
// code generation downstream.
func ValidateCode(source string) *ValidationReport {
	pr := Parse(source)
	rep := &ValidationReport{
		Valid:    true,
		Errors:   []string{},
		Warnings: []string{},
		Parsed:   pr,
	}

	if len(pr.Endpoints) == 0 {
		rep.Warnings = append(rep.Warnings, "no @endpoint declarations found")
	}
	rep.Warnings = append(rep.Warnings, pr.Diagnostics...)

	seen := map[string]struct{}{}
	for _, ep := range pr.Endpoints {
		if _, dup := seen[ep.Name]; dup {
			rep.Errors = append(rep.Errors, fmt.Sprintf("duplicate endpoint name %q", ep.Name))
		} else {
			seen[ep.Name] = struct{}{}
		}
		if !strings.HasPrefix(ep.Route, "/") {
			rep.Errors = append(rep.Errors, fmt.Sprintf("endpoint %q: route %q must start with /", ep.Name, ep.Route))
		}
	}

	rep.Valid = len(rep.Errors) == 0
	return rep
}
