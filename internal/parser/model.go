package parser

// Internal model definitions shared by the scanner, the validator, the Flask
// generator, and the OpenAPI exporter.

// ParamKind classifies a function parameter.
type ParamKind string

const (
	ParamRequired      ParamKind = "required"
	ParamDefaulted     ParamKind = "defaulted"
	ParamVarPositional ParamKind = "variadic-positional"
	ParamVarKeyword    ParamKind = "variadic-keyword"
)

// Parameter describes one entry of a function parameter list, in declaration
// order. DefaultValue holds the literal default text, unevaluated.
type Parameter struct {
	Name         string    `json:"name"`
	Kind         ParamKind `json:"kind"`
	DefaultValue string    `json:"defaultValue,omitempty"`
}

// Endpoint is a decorated, routable handler extracted from source.
type Endpoint struct {
	Name       string      `json:"name"`
	Route      string      `json:"route"`
	Methods    []string    `json:"methods"`
	Parameters []Parameter `json:"parameters"`
	// Body holds the full function text: the def line plus the indented
	// body, exactly as it appeared in the source.
	Body string `json:"body"`
}

// HelperRoutine is an undecorated function. It is copied verbatim into
// generated output and never invoked independently by the runtime.
type HelperRoutine struct {
	Name       string      `json:"name"`
	Parameters []Parameter `json:"parameters"`
	Body       string      `json:"body"`
}

// ParseResult is the structured description of one source string. It is
// created once per Parse call and not mutated afterwards.
type ParseResult struct {
	Endpoints []Endpoint      `json:"endpoints"`
	Helpers   []HelperRoutine `json:"helperRoutines"`
	// Diagnostics records decorator lines that started like a recognized
	// decorator but did not match the grammar. Such lines fall through as
	// plain text and produce no endpoint; the diagnostic makes the
	// under-recognition visible instead of silent.
	Diagnostics []string `json:"diagnostics,omitempty"`
}

// ValidationReport is the uniform result shape for both decorator-style and
// conventional source. Errors mark the report invalid but never block
// best-effort code generation; warnings are advisory.
type ValidationReport struct {
	Valid    bool         `json:"isValid"`
	Errors   []string     `json:"errors"`
	Warnings []string     `json:"warnings"`
	Parsed   *ParseResult `json:"parsed,omitempty"`
}
