package summarize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsIncomplete(t *testing.T) {
	tests := []struct {
		name         string
		text         string
		finishReason string
		want         bool
	}{
		{name: "complete sentence", text: "The trial met its primary endpoint.", finishReason: "STOP", want: false},
		{name: "empty text", text: "", want: true},
		{name: "whitespace only", text: "  \n ", want: true},
		{name: "max tokens finish reason", text: "Looks fine.", finishReason: "MAX_TOKENS", want: true},
		{name: "length finish reason", text: "Looks fine.", finishReason: "length", want: true},
		{name: "ascii ellipsis", text: "The results suggest...", want: true},
		{name: "unicode ellipsis", text: "The results suggest…", want: true},
		{name: "trailing comma", text: "In patients with heart failure,", want: true},
		{name: "trailing semicolon", text: "First arm received placebo;", want: true},
		{name: "trailing colon", text: "The key findings were:", want: true},
		{name: "trailing period is fine", text: "Mortality was reduced by 20%.", want: false},
		{name: "trailing whitespace ignored", text: "A complete sentence.  \n", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsIncomplete(tt.text, tt.finishReason))
		})
	}
}
