package parser

import (
	"compress/gzip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deploymenttheory/go-gtm-composer/internal/gtmerr"
)

const flatDocument = `{
  "variables": [
    {"name": "GA ID", "type": "c", "parameter": [
      {"key": "value", "type": "template", "value": "G-ABC123"}
    ]}
  ],
  "triggers": [
    {"name": "All Pages", "type": "PAGEVIEW"},
    {"name": "Purchase", "type": "CUSTOM_EVENT", "customEventFilter": [
      {"type": "equals", "parameter": [
        {"key": "arg0", "type": "template", "value": "{{_event}}"},
        {"key": "arg1", "type": "template", "value": "purchase"}
      ]}
    ]}
  ],
  "tags": [
    {"name": "GA4 Config", "type": "googtag",
     "parameter": [{"key": "tagId", "type": "template", "value": "{{GA ID}}"}],
     "firingTriggerNames": ["All Pages"]}
  ]
}`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestParseFlatJSON(t *testing.T) {
	in, err := Parse(writeFile(t, "input.json", flatDocument))
	require.NoError(t, err)

	variables, triggers, tags := in.Counts()
	assert.Equal(t, 1, variables)
	assert.Equal(t, 2, triggers)
	assert.Equal(t, 1, tags)

	assert.Equal(t, "GA ID", in.Variables[0].Name)
	assert.Equal(t, "c", in.Variables[0].Type)
	require.Len(t, in.Variables[0].Parameters, 1)
	assert.Equal(t, "G-ABC123", in.Variables[0].Parameters[0].Value)

	assert.Equal(t, "CUSTOM_EVENT", in.Triggers[1].Type)
	require.Len(t, in.Triggers[1].CustomEventFilters, 1)

	assert.Equal(t, []string{"All Pages"}, in.Tags[0].FiringTriggerNames)
}

func TestParseLegacyTriggerKeys(t *testing.T) {
	// The older flat format carried trigger names in firingTriggerId.
	doc := `{
	  "triggers": [{"name": "All Pages", "type": "PAGEVIEW"}],
	  "tags": [
	    {"name": "Pixel", "type": "html",
	     "firingTriggerId": ["All Pages"],
	     "blockingTriggerId": ["Kill Switch"]}
	  ]
	}`
	in, err := Parse(writeFile(t, "legacy.json", doc))
	require.NoError(t, err)

	require.Len(t, in.Tags, 1)
	assert.Equal(t, []string{"All Pages"}, in.Tags[0].FiringTriggerNames)
	assert.Equal(t, []string{"Kill Switch"}, in.Tags[0].BlockingTriggerNames)
}

func TestParseContainerExport(t *testing.T) {
	doc := `{
	  "exportTime": "2024-01-01 00:00:00",
	  "containerVersion": {
	    "variable": [
	      {"name": "GA ID", "type": "c", "parameter": [
	        {"key": "value", "type": "TEMPLATE", "value": "G-ABC123"}
	      ]}
	    ],
	    "trigger": [
	      {"name": "All Pages", "type": "PAGEVIEW", "triggerId": "7"}
	    ],
	    "tag": [
	      {"name": "GA4 Config", "type": "googtag",
	       "firingTriggerId": ["7", "99"]}
	    ]
	  }
	}`
	in, err := Parse(writeFile(t, "export.json", doc))
	require.NoError(t, err)

	require.Len(t, in.Tags, 1)
	// Known ids translate to names; unknown ids pass through for the
	// validator to flag.
	assert.Equal(t, []string{"All Pages", "99"}, in.Tags[0].FiringTriggerNames)

	// Export parameter types normalize to template.
	require.Len(t, in.Variables[0].Parameters, 1)
	assert.Equal(t, "template", in.Variables[0].Parameters[0].Type)
}

func TestParseGzipCompressed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "input.json.gz")
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := gzip.NewWriter(f)
	_, err = zw.Write([]byte(flatDocument))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	in, err := Parse(path)
	require.NoError(t, err)
	_, triggers, _ := in.Counts()
	assert.Equal(t, 2, triggers)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		path func(t *testing.T) string
		want error
	}{
		{
			name: "missing file",
			path: func(t *testing.T) string { return filepath.Join(t.TempDir(), "nope.json") },
			want: gtmerr.ErrFileNotFound,
		},
		{
			name: "unsupported extension",
			path: func(t *testing.T) string { return writeFile(t, "input.csv", "a,b,c") },
			want: gtmerr.ErrUnsupportedFormat,
		},
		{
			name: "compressed spreadsheet",
			path: func(t *testing.T) string { return writeFile(t, "input.xlsx.gz", "junk") },
			want: gtmerr.ErrUnsupportedFormat,
		},
		{
			name: "malformed json",
			path: func(t *testing.T) string { return writeFile(t, "input.json", "{not json") },
			want: gtmerr.ErrParse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.path(t))
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestSplitExtensions(t *testing.T) {
	tests := []struct {
		path        string
		inner       string
		compression string
	}{
		{"input.json", ".json", ""},
		{"input.json.gz", ".json", ".gz"},
		{"input.JSON.BZ2", ".json", ".bz2"},
		{"input.json.xz", ".json", ".xz"},
		{"input.xlsx", ".xlsx", ""},
		{"noext", "", ""},
	}
	for _, tt := range tests {
		inner, compression := splitExtensions(tt.path)
		assert.Equal(t, tt.inner, inner, tt.path)
		assert.Equal(t, tt.compression, compression, tt.path)
	}
}

func TestFilterByType(t *testing.T) {
	in := &ParsedInput{
		Triggers: []Descriptor{
			{Name: "All Pages", Type: "PAGEVIEW"},
			{Name: "Purchase", Type: "CUSTOM_EVENT"},
		},
		Tags: []Descriptor{
			{Name: "Pixel", Type: "html"},
			{Name: "GA4", Type: "googtag"},
		},
	}

	filtered := in.FilterByType("html")
	variables, triggers, tags := filtered.Counts()
	assert.Equal(t, 0, variables)
	assert.Equal(t, 0, triggers)
	assert.Equal(t, 1, tags)
	assert.Equal(t, "Pixel", filtered.Tags[0].Name)

	// Original input is untouched.
	_, _, tags = in.Counts()
	assert.Equal(t, 2, tags)
}
