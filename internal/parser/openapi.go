package parser

import (
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

// OpenAPIDocument exports a ParseResult as an OpenAPI 3 document so the
// surrounding product can render API documentation for the learner's
// endpoints. Function parameters are exposed as query parameters; variadic
// parameters have no positional meaning over HTTP and are omitted.
func OpenAPIDocument(pr *ParseResult) *openapi3.T {
	doc := &openapi3.T{
		OpenAPI: "3.0.3",
		Info: &openapi3.Info{
			Title:   "Learner backend",
			Version: "0.1.0",
		},
		Paths: openapi3.Paths{},
	}
	if pr == nil {
		return doc
	}

	for _, ep := range pr.Endpoints {
		item := doc.Paths[ep.Route]
		if item == nil {
			item = &openapi3.PathItem{}
			doc.Paths[ep.Route] = item
		}
		for _, method := range ep.Methods {
			op := &openapi3.Operation{
				OperationID: ep.Name,
				Summary:     "Handler " + ep.Name,
				Parameters:  queryParameters(ep.Parameters),
				Responses:   defaultResponses(),
			}
			setOperation(item, method, op)
		}
	}
	return doc
}

func queryParameters(params []Parameter) openapi3.Parameters {
	var out openapi3.Parameters
	for _, p := range params {
		if p.Kind == ParamVarPositional || p.Kind == ParamVarKeyword {
			continue
		}
		out = append(out, &openapi3.ParameterRef{
			Value: &openapi3.Parameter{
				Name:     p.Name,
				In:       openapi3.ParameterInQuery,
				Required: p.Kind == ParamRequired,
				Schema:   openapi3.NewStringSchema().NewRef(),
			},
		})
	}
	return out
}

func defaultResponses() openapi3.Responses {
	desc := "Successful response"
	return openapi3.Responses{
		"200": &openapi3.ResponseRef{
			Value: &openapi3.Response{Description: &desc},
		},
	}
}

func setOperation(item *openapi3.PathItem, method string, op *openapi3.Operation) {
	switch strings.ToUpper(method) {
	case "GET":
		item.Get = op
	case "POST":
		item.Post = op
	case "PUT":
		item.Put = op
	case "DELETE":
		item.Delete = op
	case "PATCH":
		item.Patch = op
	case "HEAD":
		item.Head = op
	case "OPTIONS":
		item.Options = op
	}
}
