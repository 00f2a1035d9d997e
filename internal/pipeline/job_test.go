package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deploymenttheory/go-gtm-composer/internal/gtmerr"
)

func writeInput(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "input.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const validDocument = `{
  "variables": [{"name": "GA ID", "type": "c"}],
  "triggers": [{"name": "All Pages", "type": "PAGEVIEW"}],
  "tags": [{"name": "GA4", "type": "googtag", "firingTriggerNames": ["All Pages"]}]
}`

func TestExecuteJobEndToEnd(t *testing.T) {
	fake := newFakeClient()
	result, err := ExecuteJob(context.Background(), JobOptions{
		InputPath: writeInput(t, validDocument),
		Connect:   fake.factory,
	})
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, StatusSuccess, result.Status)
	created, _, _ := result.Totals()
	assert.Equal(t, 3, created)
}

func TestExecuteJobDryRun(t *testing.T) {
	result, err := ExecuteJob(context.Background(), JobOptions{
		InputPath: writeInput(t, validDocument),
		DryRun:    true,
		Connect: func(ctx context.Context) (ResourceClient, error) {
			t.Fatal("dry run must never build a client")
			return nil, nil
		},
	})
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, StatusDryRun, result.Status)
	assert.Equal(t, 1, result.Input.Variables)
	assert.Equal(t, 1, result.Input.Triggers)
	assert.Equal(t, 1, result.Input.Tags)
}

func TestExecuteJobValidationFailure(t *testing.T) {
	doc := `{
	  "tags": [{"name": "Orphan", "type": "html", "firingTriggerNames": ["Ghost"]}]
	}`
	result, err := ExecuteJob(context.Background(), JobOptions{
		InputPath: writeInput(t, doc),
		Connect: func(ctx context.Context) (ResourceClient, error) {
			t.Fatal("invalid input must never reach the API")
			return nil, nil
		},
	})
	require.ErrorIs(t, err, gtmerr.ErrValidation)
	require.NotNil(t, result)

	assert.Equal(t, StatusValidationFailed, result.Status)
	require.Len(t, result.ValidationErrors, 1)
	assert.Contains(t, result.ValidationErrors[0].Error(), "Ghost")
}

func TestExecuteJobValidationRunsBeforeDryRunShortCircuit(t *testing.T) {
	doc := `{"variables": [{"type": "c"}]}`
	result, err := ExecuteJob(context.Background(), JobOptions{
		InputPath: writeInput(t, doc),
		DryRun:    true,
	})
	require.ErrorIs(t, err, gtmerr.ErrValidation)
	assert.Equal(t, StatusValidationFailed, result.Status)
}

func TestExecuteJobParseFailures(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := ExecuteJob(context.Background(), JobOptions{
			InputPath: filepath.Join(t.TempDir(), "nope.json"),
		})
		assert.ErrorIs(t, err, gtmerr.ErrFileNotFound)
	})

	t.Run("malformed json", func(t *testing.T) {
		_, err := ExecuteJob(context.Background(), JobOptions{
			InputPath: writeInput(t, "{broken"),
		})
		assert.ErrorIs(t, err, gtmerr.ErrParse)
	})
}

func TestExecuteJobRequiresContainer(t *testing.T) {
	_, err := ExecuteJob(context.Background(), JobOptions{
		InputPath: writeInput(t, validDocument),
	})
	assert.ErrorIs(t, err, gtmerr.ErrConfigInvalid)
}

func TestExecuteJobTemplateTypeFilter(t *testing.T) {
	doc := `{
	  "triggers": [{"name": "All Pages", "type": "PAGEVIEW"}],
	  "tags": [
	    {"name": "Pixel", "type": "html", "firingTriggerNames": ["All Pages"]},
	    {"name": "GA4", "type": "googtag", "firingTriggerNames": ["All Pages"]}
	  ]
	}`
	fake := newFakeClient()
	result, err := ExecuteJob(context.Background(), JobOptions{
		InputPath:    writeInput(t, doc),
		TemplateType: "PAGEVIEW",
		Connect:      fake.factory,
	})
	require.NoError(t, err)

	// Only the PAGEVIEW trigger survives the filter.
	assert.Equal(t, 0, result.Input.Variables)
	assert.Equal(t, 1, result.Input.Triggers)
	assert.Equal(t, 0, result.Input.Tags)
	assert.Equal(t, StatusSuccess, result.Status)
}
