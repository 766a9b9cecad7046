package parser

import (
	"strings"
	"testing"
)

const sampleBackend = `@endpoint('/users')
def list_users():
    return {'users': []}

def format_name(first, last='Doe', *rest, **extra):
    return first + ' ' + last

@endpoint('/orders', methods=['POST'])
def create_order(order_id, quantity=1):
    total = quantity * 2
    return {'id': order_id, 'total': total}
`

func TestParseSampleBackend(t *testing.T) {
	pr := Parse(sampleBackend)

	if got := len(pr.Endpoints); got != 2 {
		t.Fatalf("expected 2 endpoints, got %d", got)
	}
	if got := len(pr.Helpers); got != 1 {
		t.Fatalf("expected 1 helper routine, got %d", got)
	}
	if len(pr.Diagnostics) != 0 {
		t.Fatalf("unexpected diagnostics: %v", pr.Diagnostics)
	}

	users := pr.Endpoints[0]
	if users.Name != "list_users" || users.Route != "/users" {
		t.Fatalf("unexpected first endpoint: %+v", users)
	}
	if len(users.Methods) != 1 || users.Methods[0] != "GET" {
		t.Fatalf("expected default GET method, got %v", users.Methods)
	}
	if len(users.Parameters) != 0 {
		t.Fatalf("expected no parameters, got %v", users.Parameters)
	}

	orders := pr.Endpoints[1]
	if orders.Route != "/orders" {
		t.Fatalf("unexpected route %q", orders.Route)
	}
	if len(orders.Methods) != 1 || orders.Methods[0] != "POST" {
		t.Fatalf("expected POST method, got %v", orders.Methods)
	}
	if !strings.Contains(orders.Body, "total = quantity * 2") {
		t.Fatalf("endpoint body not captured: %q", orders.Body)
	}
}

func TestParseParameterKinds(t *testing.T) {
	pr := Parse(sampleBackend)
	helper := pr.Helpers[0]
	if helper.Name != "format_name" {
		t.Fatalf("unexpected helper %q", helper.Name)
	}

	want := []Parameter{
		{Name: "first", Kind: ParamRequired},
		{Name: "last", Kind: ParamDefaulted, DefaultValue: "'Doe'"},
		{Name: "rest", Kind: ParamVarPositional},
		{Name: "extra", Kind: ParamVarKeyword},
	}
	if len(helper.Parameters) != len(want) {
		t.Fatalf("expected %d parameters, got %v", len(want), helper.Parameters)
	}
	for i, p := range helper.Parameters {
		if p != want[i] {
			t.Fatalf("parameter %d: got %+v want %+v", i, p, want[i])
		}
	}
}

func TestParseEndpointCountMatchesDecorators(t *testing.T) {
	var b strings.Builder
	names := []string{"alpha", "beta", "gamma", "delta"}
	for _, n := range names {
		b.WriteString("@endpoint('/" + n + "')\n")
		b.WriteString("def " + n + "():\n")
		b.WriteString("    return {'ok': True}\n\n")
	}
	pr := Parse(b.String())
	if len(pr.Endpoints) != len(names) {
		t.Fatalf("expected %d endpoints, got %d", len(names), len(pr.Endpoints))
	}
	for i, n := range names {
		if pr.Endpoints[i].Name != n {
			t.Fatalf("endpoint %d: got %q want %q", i, pr.Endpoints[i].Name, n)
		}
	}
}

func TestParseMalformedDecoratorFallsThrough(t *testing.T) {
	src := `@endpoint(/missing-quotes)
def broken():
    return 1

@endpoint('/ok')
def fine():
    return 2
`
	pr := Parse(src)
	if len(pr.Endpoints) != 1 {
		t.Fatalf("expected only the well-formed decorator to produce an endpoint, got %d", len(pr.Endpoints))
	}
	if pr.Endpoints[0].Name != "fine" {
		t.Fatalf("unexpected endpoint %q", pr.Endpoints[0].Name)
	}
	// The malformed function still parses as a helper.
	if len(pr.Helpers) != 1 || pr.Helpers[0].Name != "broken" {
		t.Fatalf("expected broken to become a helper, got %+v", pr.Helpers)
	}
	if len(pr.Diagnostics) == 0 {
		t.Fatal("expected a diagnostic for the malformed decorator line")
	}
	if !strings.Contains(pr.Diagnostics[0], "line 1") {
		t.Fatalf("diagnostic should name the line: %q", pr.Diagnostics[0])
	}
}

func TestParseUnrecognizedDecoratorIsSilent(t *testing.T) {
	src := `@staticmethod
def util():
    return None
`
	pr := Parse(src)
	if len(pr.Diagnostics) != 0 {
		t.Fatalf("foreign decorators must not produce diagnostics: %v", pr.Diagnostics)
	}
	if len(pr.Helpers) != 1 {
		t.Fatalf("expected util as helper, got %+v", pr.Helpers)
	}
}

func TestParseIndentationClosesBody(t *testing.T) {
	src := "@endpoint('/a')\ndef a():\n    x = 1\n    return x\nprint('outside')\n"
	pr := Parse(src)
	if len(pr.Endpoints) != 1 {
		t.Fatalf("expected one endpoint, got %d", len(pr.Endpoints))
	}
	if strings.Contains(pr.Endpoints[0].Body, "outside") {
		t.Fatalf("body leaked past dedent: %q", pr.Endpoints[0].Body)
	}
}

func TestParseLastFunctionClosesAtEOF(t *testing.T) {
	src := "@endpoint('/tail')\ndef tail():\n    return 'end'"
	pr := Parse(src)
	if len(pr.Endpoints) != 1 {
		t.Fatalf("expected one endpoint, got %d", len(pr.Endpoints))
	}
	if !strings.Contains(pr.Endpoints[0].Body, "return 'end'") {
		t.Fatalf("EOF did not close the body: %q", pr.Endpoints[0].Body)
	}
}

func TestParseEmptySource(t *testing.T) {
	for _, src := range []string{"", "   ", "\n\t\n"} {
		pr := Parse(src)
		if len(pr.Endpoints) != 0 || len(pr.Helpers) != 0 {
			t.Fatalf("source %q should parse to nothing, got %+v", src, pr)
		}
	}
}

func TestParseDecoratorOnlyAppliesToNextDef(t *testing.T) {
	src := `@endpoint('/only')
x = 42

def later():
    return x
`
	pr := Parse(src)
	// The assignment does not consume the decorator; it still binds the
	// next def.
	if len(pr.Endpoints) != 1 || pr.Endpoints[0].Name != "later" {
		t.Fatalf("decorator should bind the next def, got %+v", pr)
	}
}

func TestParseStackedDecoratorsLastWins(t *testing.T) {
	src := `@endpoint('/first')
@endpoint('/second')
def handler():
    return {}
`
	pr := Parse(src)
	if len(pr.Endpoints) != 1 {
		t.Fatalf("expected one endpoint, got %d", len(pr.Endpoints))
	}
	if pr.Endpoints[0].Route != "/second" {
		t.Fatalf("latest decorator should win, got %q", pr.Endpoints[0].Route)
	}
}

func TestParseDuplicateMethodsDeduplicated(t *testing.T) {
	src := "@endpoint('/m', methods=['post', 'POST', 'GET'])\ndef m():\n    return {}\n"
	pr := Parse(src)
	if len(pr.Endpoints) != 1 {
		t.Fatalf("expected one endpoint, got %d", len(pr.Endpoints))
	}
	got := pr.Endpoints[0].Methods
	if len(got) != 2 || got[0] != "POST" || got[1] != "GET" {
		t.Fatalf("unexpected methods %v", got)
	}
}
