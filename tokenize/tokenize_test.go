package tokenize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPreprocess(t *testing.T) {
	for _, tc := range []struct {
		in        string
		lowercase bool
		want      string
	}{
		{"Hello World", false, "Hello World"},
		{"Hello World", true, "hello world"},
		{"  spaced \t out \n text  ", false, "spaced out text"},
		{"", true, ""},
		{"\t\n ", false, ""},
		{"Mixed   CASE\ttext", true, "mixed case text"},
	} {
		assert.Equal(t, tc.want, Preprocess(tc.in, tc.lowercase), "%q", tc.in)
	}
}
