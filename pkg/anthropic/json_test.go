package anthropic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanJSON(t *testing.T) {
	cases := map[string]string{
		`{"a":1}`:                          `{"a":1}`,
		"```json\n{\"a\":1}\n```":          `{"a":1}`,
		"```\n{\"a\":1}\n```":              `{"a":1}`,
		"Here is the data:\n{\"a\":1}\nHope that helps.": `{"a":1}`,
		"no object here":                   "",
		"":                                 "",
	}
	for in, want := range cases {
		assert.Equal(t, want, CleanJSON(in), "input %q", in)
	}
}

func TestUnmarshalResponse(t *testing.T) {
	var out struct {
		Website string `json:"website"`
		Phone   string `json:"phone"`
	}
	text := "```json\n{\"website\": \"https://acme.example\", \"phone\": \"01234 567890\"}\n```"
	require.NoError(t, UnmarshalResponse(text, &out))
	assert.Equal(t, "https://acme.example", out.Website)
	assert.Equal(t, "01234 567890", out.Phone)
}

func TestUnmarshalResponse_Invalid(t *testing.T) {
	var out map[string]any
	assert.Error(t, UnmarshalResponse("not json at all", &out))
	assert.Error(t, UnmarshalResponse("{broken", &out))
}

func TestResponseText(t *testing.T) {
	r := &MessageResponse{Content: []ContentBlock{
		{Type: "text", Text: "hello "},
		{Type: "tool_use", Text: "ignored"},
		{Type: "text", Text: "world"},
	}}
	assert.Equal(t, "hello world", r.Text())
}
