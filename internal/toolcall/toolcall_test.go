package toolcall

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	calls []Call
}

func (r *recorder) OnSetProject(c SetProject)             { r.calls = append(r.calls, c) }
func (r *recorder) OnSetEmail(c SetEmail)                 { r.calls = append(r.calls, c) }
func (r *recorder) OnGenerateDocument(c GenerateDocument) { r.calls = append(r.calls, c) }
func (r *recorder) OnCompleteTask(c CompleteTask)         { r.calls = append(r.calls, c) }

func TestParse_Variants(t *testing.T) {
	tests := []struct {
		name string
		args map[string]any
		want Call
	}{
		{NameSetProject, map[string]any{"name": " TodoApp "}, SetProject{Name: "TodoApp"}},
		{NameSetEmail, map[string]any{"email": "me@gmail.com"}, SetEmail{Email: "me@gmail.com"}},
		{NameGenerateDocument, map[string]any{"type": "PRD", "title": "TodoApp PRD"}, GenerateDocument{Type: DocPRD, Title: "TodoApp PRD"}},
		{NameCompleteTask, map[string]any{"taskName": "design"}, CompleteTask{TaskName: "design"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.name, tt.args)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.name, got.ToolName())
		})
	}
}

func TestParse_Errors(t *testing.T) {
	_, err := Parse("deleteEverything", map[string]any{})
	assert.ErrorIs(t, err, ErrUnknownTool)

	_, err = Parse(NameSetProject, map[string]any{"name": 42.0})
	assert.Error(t, err)

	_, err = Parse(NameGenerateDocument, map[string]any{"type": "novel", "title": "x"})
	assert.ErrorContains(t, err, "invalid document type")

	_, err = Parse(NameCompleteTask, nil)
	assert.Error(t, err)
}

func TestDispatch_RoutesEachVariant(t *testing.T) {
	calls := []Call{
		SetProject{Name: "A"},
		SetEmail{Email: "a@gmail.com"},
		GenerateDocument{Type: DocQA, Title: "Q&A"},
		CompleteTask{TaskName: "write"},
	}
	r := &recorder{}
	for _, c := range calls {
		c.Dispatch(r)
	}
	assert.Equal(t, calls, r.calls)
}

func TestDefinitions_DeclareRequiredArguments(t *testing.T) {
	defs := Definitions()
	require.Len(t, defs, 4)

	required := map[string][]string{}
	for _, d := range defs {
		required[d.Name] = d.InputSchema.Required
	}
	assert.Equal(t, []string{"name"}, required[NameSetProject])
	assert.Equal(t, []string{"email"}, required[NameSetEmail])
	assert.ElementsMatch(t, []string{"type", "title"}, required[NameGenerateDocument])
	assert.Equal(t, []string{"taskName"}, required[NameCompleteTask])
}
