package keyframes

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/nvr-ai/go-keyframes/shapes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleResults() []FrameResult {
	return []FrameResult{
		{Index: 0, TimestampMs: 0},
		{Index: 1, TimestampMs: 33.3, Shapes: []shapes.Record{
			{Kind: shapes.Rectangle, CenterX: 0.4, CenterY: 0.25, Width: 0.4, Height: 0.2, Angle: 90, Color: [3]uint8{0, 0, 255}},
		}},
		{Index: 2, TimestampMs: 66.7, Shapes: []shapes.Record{
			{Kind: shapes.Triangle, CenterX: 0.2, CenterY: 0.3, Width: 0.1, Height: 0.1, Angle: 45, Color: [3]uint8{0, 255, 0}},
			{Kind: shapes.Circle, CenterX: 0.7, CenterY: 0.5, Width: 0.25, Height: 0.25, Color: [3]uint8{255, 0, 0}},
		}},
	}
}

func TestFromResults(t *testing.T) {
	doc := FromResults(sampleResults())
	require.Len(t, doc, 3)

	assert.NotNil(t, doc[0].Shapes)
	assert.Empty(t, doc[0].Shapes)

	expected := Shape{Type: "rect", CX: 0.4, CY: 0.25, W: 0.4, H: 0.2, Angle: 90, ColorBGR: [3]int{0, 0, 255}}
	if diff := cmp.Diff(expected, doc[1].Shapes[0]); diff != "" {
		t.Errorf("unexpected shape (-want +got):\n%s", diff)
	}

	assert.Equal(t, "triangle", doc[2].Shapes[0].Type)
	assert.Equal(t, "circle", doc[2].Shapes[1].Type)

	assert.Equal(t, 3, doc.ShapeCount())
	assert.Equal(t, map[string]int{"rect": 1, "triangle": 1, "circle": 1}, doc.KindCounts())
}

func TestKindCountsIncludesEveryKind(t *testing.T) {
	counts := Document{}.KindCounts()
	assert.Equal(t, map[string]int{"rect": 0, "triangle": 0, "circle": 0}, counts)
}

func TestEncodeJSONSchema(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, FromResults(sampleResults()), FormatJSON))

	// Four space indentation.
	assert.True(t, strings.HasPrefix(buf.String(), "[\n    {\n        \"timestamp_ms\": 0,"), buf.String())

	var raw []map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &raw))
	require.Len(t, raw, 3)

	assert.Equal(t, []interface{}{}, raw[0]["shapes"])

	shape := raw[1]["shapes"].([]interface{})[0].(map[string]interface{})
	keys := make([]string, 0, len(shape))
	for k := range shape {
		keys = append(keys, k)
	}
	assert.ElementsMatch(t, []string{"type", "cx", "cy", "w", "h", "angle", "color_bgr"}, keys)
	assert.Equal(t, []interface{}{0.0, 0.0, 255.0}, shape["color_bgr"])
}

func TestEncodeEmptyDocument(t *testing.T) {
	for _, format := range []Format{FormatJSON, FormatYAML} {
		var buf bytes.Buffer
		require.NoError(t, Encode(&buf, nil, format))
		assert.Equal(t, "[]", strings.TrimSpace(buf.String()), format)

		doc, err := Decode(&buf, format)
		require.NoError(t, err)
		assert.NotNil(t, doc)
		assert.Empty(t, doc)
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	doc := FromResults(sampleResults())

	for _, format := range []Format{FormatJSON, FormatYAML} {
		t.Run(string(format), func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, Encode(&buf, doc, format))

			decoded, err := Decode(&buf, format)
			require.NoError(t, err)
			if diff := cmp.Diff(doc, decoded); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestEncodeUnknownFormat(t *testing.T) {
	err := Encode(&bytes.Buffer{}, Document{}, Format("xml"))
	assert.ErrorIs(t, err, ErrUnknownFormat)

	_, err = Decode(strings.NewReader("[]"), Format("xml"))
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestDecodeYAMLRejectsUnknownFields(t *testing.T) {
	_, err := Decode(strings.NewReader("- timestamp_ms: 0\n  shapes: []\n  extra: 1\n"), FormatYAML)
	assert.Error(t, err)
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		name     string
		expected Format
	}{
		{"json", FormatJSON},
		{"JSON", FormatJSON},
		{"yaml", FormatYAML},
		{"yml", FormatYAML},
	}
	for _, tt := range tests {
		format, err := ParseFormat(tt.name)
		require.NoError(t, err)
		assert.Equal(t, tt.expected, format)
	}

	_, err := ParseFormat("csv")
	assert.ErrorIs(t, err, ErrUnknownFormat)

	format, err := FormatFromPath("out/keyframes.yml")
	require.NoError(t, err)
	assert.Equal(t, FormatYAML, format)

	_, err = FormatFromPath("keyframes")
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestWriteFileReadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "out", "keyframes.json")
	doc := FromResults(sampleResults())

	require.NoError(t, WriteFile(path, doc, FormatJSON))

	read, err := ReadFile(path)
	require.NoError(t, err)
	if diff := cmp.Diff(doc, read); diff != "" {
		t.Errorf("file round trip mismatch (-want +got):\n%s", diff)
	}

	// Only the final file remains.
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "keyframes.json", entries[0].Name())

	// Overwrites replace the previous document.
	require.NoError(t, WriteFile(path, Document{}, FormatJSON))
	read, err = ReadFile(path)
	require.NoError(t, err)
	assert.Empty(t, read)
}

func TestWriteFileFailureLeavesNoFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "keyframes.json")

	err := WriteFile(path, Document{}, Format("xml"))
	assert.ErrorIs(t, err, ErrUnknownFormat)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestReadFileErrors(t *testing.T) {
	_, err := ReadFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	_, err = ReadFile("keyframes.txt")
	assert.ErrorIs(t, err, ErrUnknownFormat)
}
