package actions_test

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manthysbr/llmsender/internal/adapters/actions"
	"github.com/manthysbr/llmsender/internal/core/ports"
)

func mustAction(t *testing.T, inst any, err error) ports.Action {
	t.Helper()
	require.NoError(t, err)
	a, ok := inst.(ports.Action)
	require.True(t, ok)
	return a
}

func TestFilter_PassesGoodContent(t *testing.T) {
	inst, err := actions.NewFilter(map[string]any{"min_length": 5})
	a := mustAction(t, inst, err)

	res, err := a.Process(context.Background(), "a long enough summary", nil)
	require.NoError(t, err)
	assert.True(t, res.Continue)
	assert.Equal(t, "a long enough summary", res.Output)
}

func TestFilter_StopsShortContent(t *testing.T) {
	inst, err := actions.NewFilter(map[string]any{"min_length": 100})
	a := mustAction(t, inst, err)

	res, err := a.Process(context.Background(), "short", nil)
	require.NoError(t, err) // a veto is not an error
	assert.False(t, res.Continue)
	assert.Contains(t, res.Metadata["reason"], "too short")
}

func TestFilter_RequiredKeyword(t *testing.T) {
	inst, err := actions.NewFilter(map[string]any{"require_keywords": []any{"go"}})
	a := mustAction(t, inst, err)

	res, err := a.Process(context.Background(), "all about Go releases", nil)
	require.NoError(t, err)
	assert.True(t, res.Continue)

	res, err = a.Process(context.Background(), "nothing relevant here", nil)
	require.NoError(t, err)
	assert.False(t, res.Continue)
}

func TestFilter_BlockedKeyword(t *testing.T) {
	inst, err := actions.NewFilter(map[string]any{"block_keywords": []any{"spam"}})
	a := mustAction(t, inst, err)

	res, err := a.Process(context.Background(), "this is SPAM really", nil)
	require.NoError(t, err)
	assert.False(t, res.Continue)
}

func TestFormat_PlainWithPrefixSuffix(t *testing.T) {
	inst, err := actions.NewFormat(map[string]any{
		"prefix": ">> ", "suffix": " <<",
	})
	a := mustAction(t, inst, err)

	res, err := a.Process(context.Background(), "  summary  ", nil)
	require.NoError(t, err)
	assert.True(t, res.Continue)
	assert.Equal(t, ">> summary <<", res.Output)
}

func TestFormat_JSONCarriesTaskName(t *testing.T) {
	inst, err := actions.NewFormat(map[string]any{
		"style": "json", "add_timestamp": true,
	})
	a := mustAction(t, inst, err)

	res, err := a.Process(context.Background(), "summary", map[string]any{"task_name": "demo"})
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(res.Output), &doc))
	assert.Equal(t, "summary", doc["summary"])
	assert.Equal(t, "demo", doc["task"])
	assert.NotEmpty(t, doc["generated_at"])
}

func TestFormat_MarkdownTimestamp(t *testing.T) {
	inst, err := actions.NewFormat(map[string]any{
		"style": "markdown", "add_timestamp": true,
	})
	a := mustAction(t, inst, err)

	res, err := a.Process(context.Background(), "summary", nil)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(res.Output, "summary\n\n_"))
	assert.True(t, strings.HasSuffix(res.Output, "_"))
}

func TestFormat_RejectsUnknownStyle(t *testing.T) {
	_, err := actions.NewFormat(map[string]any{"style": "yaml"})
	require.Error(t, err)
}
