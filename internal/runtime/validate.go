package runtime

import (
	"strings"

	"github.com/simserve/simserve/internal/metrics"
	"github.com/simserve/simserve/internal/parser"
)

// ValidateSource checks source before any start attempt. Decorator-annotated
// code goes through the full scanner; conventional Flask code gets
// structural checks only, since it is assumed to be hand-written against the
// real framework.
func ValidateSource(source string) *parser.ValidationReport {
	var report *parser.ValidationReport
	if HasDecorators(source) {
		report = parser.ValidateCode(source)
	} else {
		report = validateConventional(source)
	}
	if !report.Valid {
		metrics.ValidationFailures.Inc()
	}
	return report
}

// ValidateSource is the orchestrator-scoped form of the package function.
func (o *Orchestrator) ValidateSource(source string) *parser.ValidationReport {
	return ValidateSource(source)
}

// validateConventional errors only on what makes the text not a Flask module
// at all; absent routes or an absent entry point still simulate, so those
// stay warnings.
func validateConventional(source string) *parser.ValidationReport {
	report := &parser.ValidationReport{Valid: true, Errors: []string{}, Warnings: []string{}}

	if !strings.Contains(source, "from flask import") && !strings.Contains(source, "import flask") {
		report.Errors = append(report.Errors, "missing flask import")
	}
	if !strings.Contains(source, "Flask(") {
		report.Errors = append(report.Errors, "missing Flask application instance")
	}
	if !strings.Contains(source, ".route(") {
		report.Warnings = append(report.Warnings, "no route registrations found")
	}
	if !strings.Contains(source, "app.run(") {
		report.Warnings = append(report.Warnings, "no app.run entry point; server may not start outside simulation")
	}

	report.Valid = len(report.Errors) == 0
	return report
}
