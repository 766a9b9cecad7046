package runtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simserve/simserve/internal/parser"
)

func TestReturnLiteral(t *testing.T) {
	cases := []struct {
		name string
		body string
		want any
		ok   bool
	}{
		{
			name: "dict literal",
			body: "def h():\n    return {'a': 1}",
			want: map[string]any{"a": float64(1)},
			ok:   true,
		},
		{
			name: "jsonify wrapped",
			body: "def h():\n    return jsonify({'page': 'about'})",
			want: map[string]any{"page": "about"},
			ok:   true,
		},
		{
			name: "python keyword literals",
			body: "def h():\n    return {'created': True, 'error': None}",
			want: map[string]any{"created": true, "error": nil},
			ok:   true,
		},
		{
			name: "list literal",
			body: "def h():\n    return ['a', 'b']",
			want: []any{"a", "b"},
			ok:   true,
		},
		{
			name: "variable return",
			body: "def h():\n    result = build()\n    return result",
			ok:   false,
		},
		{
			name: "no return",
			body: "def h():\n    pass",
			ok:   false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := returnLiteral(tc.body)
			require.Equal(t, tc.ok, ok)
			if tc.ok {
				assert.Equal(t, tc.want, got)
			}
		})
	}
}

func TestDeriveRoutesEnvelopeFallback(t *testing.T) {
	pr := parser.Parse("@endpoint('/dynamic')\ndef dynamic():\n    return compute()\n")
	require.Len(t, pr.Endpoints, 1)

	table := deriveRoutes(pr)
	payload, ok := table["/dynamic"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "dynamic", payload["handler"])
}

func TestConventionalRoutes(t *testing.T) {
	table := conventionalRoutes(conventionalSource)
	require.Contains(t, table, "/about")

	about, ok := table["/about"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "About Us", about["title"])
}

func TestConventionalRoutesUnknownPath(t *testing.T) {
	src := "@app.route('/custom')\ndef custom():\n    return 'x'\n"
	table := conventionalRoutes(src)

	payload, ok := table["/custom"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "/custom", payload["path"])
}
