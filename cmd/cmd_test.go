// File: cmd/cmd_test.go
package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/beevik/etree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/xkilldash9x/elementcore/internal/element"
	"github.com/xkilldash9x/elementcore/internal/observability"
	"github.com/xkilldash9x/elementcore/internal/reporting"
	"github.com/xkilldash9x/elementcore/internal/scene"
)

const panelScene = `
application:
  resources:
    accent: Teal
    gap: {type: thickness, value: "4"}
  stylesheet: |
    #Title { FontSize: 20 }
viewport: {width: 200, height: 100}
root:
  kind: StackPanel
  name: panel
  properties:
    Foreground: Maroon
    FontSize: "10"
    Margin: resource(gap)
  children:
    - kind: TextBlock
      name: first
      properties: {Text: abcd}
    - kind: TextBlock
      name: second
      properties: {Text: ab, Style: "resource(Title)"}
    - kind: Border
      name: island
      inheritance: SkipAllNext
      children:
        - kind: TextBlock
          name: inner
          properties: {Text: x}
`

func writeScene(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

// run executes a pristine command tree and returns its stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	observability.ResetForTest()
	t.Cleanup(observability.ResetForTest)
	t.Setenv("HOME", t.TempDir())

	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append(args, "--log-level", "error"))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRootCommand(t *testing.T) {
	t.Run("version flag", func(t *testing.T) {
		out, err := run(t, "--version")
		require.NoError(t, err)
		assert.Equal(t, Version+"\n", out)
	})

	t.Run("version command", func(t *testing.T) {
		out, err := run(t, "version")
		require.NoError(t, err)
		assert.Equal(t, "elementcore version "+Version+"\n", out)
	})

	t.Run("help", func(t *testing.T) {
		out, err := run(t, "--help")
		require.NoError(t, err)
		assert.Contains(t, out, "Resolves element properties and lays out element scenes.")
		for _, sub := range []string{"layout", "resolve", "resource", "version"} {
			assert.Contains(t, out, sub)
		}
	})

	t.Run("missing explicit config", func(t *testing.T) {
		_, err := run(t, "version", "--config", filepath.Join(t.TempDir(), "absent.yaml"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "error reading config file")
	})

	t.Run("invalid config", func(t *testing.T) {
		cfg := writeScene(t, "config.yaml", "layout:\n  concurrency: 0\n")
		_, err := run(t, "version", "--config", cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to load or validate config")
	})
}

func TestGetConfigFromContext(t *testing.T) {
	_, err := getConfigFromContext(context.Background())
	assert.Error(t, err)
}

func TestLayoutCommand(t *testing.T) {
	defer goleak.VerifyNone(t)

	sceneA := writeScene(t, "a.yaml", panelScene)
	sceneB := writeScene(t, "b.yaml", "root: {kind: TextBlock, properties: {Text: hi}}\n")
	outPath := filepath.Join(t.TempDir(), "layout.json")

	_, err := run(t, "layout", sceneB, sceneA, "-o", outPath, "--viewport", "50x40", "-j", "2")
	require.NoError(t, err)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	var reports []*reporting.Report
	require.NoError(t, json.Unmarshal(data, &reports))
	require.Len(t, reports, 2)

	a, b := reports[0], reports[1]
	assert.Equal(t, sceneA, a.Scene, "reports are ordered by scene path")
	assert.Equal(t, reporting.Size{Width: 200, Height: 100}, a.Viewport, "the scene viewport wins")
	assert.Equal(t, reporting.Size{Width: 50, Height: 40}, b.Viewport, "the flag supplies the fallback")

	root := a.Root
	assert.Equal(t, "panel", root.Name)
	assert.Equal(t, reporting.Size{Width: 192, Height: 92}, root.Render, "margin of 4 on each side")
	require.Len(t, root.Children, 3)
	assert.Equal(t, reporting.Size{Width: 20, Height: 12}, root.Children[0].Desired)
	assert.Equal(t, reporting.Size{Width: 20, Height: 24}, root.Children[1].Desired, "FontSize from the Title style")
	assert.Equal(t, reporting.Point{Y: 12}, root.Children[1].Offset)
}

func TestLayoutCommand_XML(t *testing.T) {
	outPath := filepath.Join(t.TempDir(), "layout.xml")
	_, err := run(t, "layout", writeScene(t, "a.yaml", panelScene), "--format", "XML", "--pretty=false", "-o", outPath)
	require.NoError(t, err)

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromFile(outPath))
	inner := doc.FindElement("//node[@name='inner']")
	require.NotNil(t, inner)
	assert.Equal(t, "TextBlock", inner.SelectAttrValue("kind", ""))
}

func TestLayoutCommand_Errors(t *testing.T) {
	tests := []struct {
		name    string
		args    func(t *testing.T) []string
		wantErr string
	}{
		{
			name:    "no scenes",
			args:    func(t *testing.T) []string { return nil },
			wantErr: "requires at least 1 arg",
		},
		{
			name: "bad viewport",
			args: func(t *testing.T) []string {
				return []string{writeScene(t, "a.yaml", panelScene), "--viewport", "wide"}
			},
			wantErr: "want WIDTHxHEIGHT",
		},
		{
			name: "unsupported format",
			args: func(t *testing.T) []string {
				return []string{writeScene(t, "a.yaml", panelScene), "--format", "csv"}
			},
			wantErr: "output.format",
		},
		{
			name: "invalid scene",
			args: func(t *testing.T) []string {
				return []string{writeScene(t, "bad.yaml", "root: {kind: Window}\n"), "-o", filepath.Join(t.TempDir(), "out.json")}
			},
			wantErr: "bad.yaml",
		},
		{
			name: "missing scene",
			args: func(t *testing.T) []string {
				return []string{filepath.Join(t.TempDir(), "nope.yaml"), "-o", filepath.Join(t.TempDir(), "out.json")}
			},
			wantErr: "nope.yaml",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, append([]string{"layout"}, tt.args(t)...)...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestResolveCommand(t *testing.T) {
	path := writeScene(t, "a.yaml", panelScene)

	out, err := run(t, "resolve", path, "-n", "second", "-p", "Foreground,FontSize,Text")
	require.NoError(t, err)
	assert.Equal(t, "Foreground = Maroon (Inherited)\nFontSize = 20 (StyleSetter)\nText = ab (Local)\n", out)

	out, err = run(t, "resolve", path, "-p", "Margin")
	require.NoError(t, err)
	assert.Contains(t, out, "(Local) [resource]")

	_, err = run(t, "resolve", path, "-n", "ghost", "-p", "Text")
	assert.ErrorIs(t, err, scene.ErrUnknownNode)

	_, err = run(t, "resolve", path, "-p", "NoSuchProperty")
	assert.Error(t, err)
}

func TestResourceCommand(t *testing.T) {
	path := writeScene(t, "a.yaml", panelScene)

	out, err := run(t, "resource", path, "-n", "first", "-k", "accent")
	require.NoError(t, err)
	assert.Equal(t, "accent = Teal\n", out)

	out, err = run(t, "resource", path, "-n", "inner", "-k", "accent")
	require.NoError(t, err)
	assert.Equal(t, "accent not found\n", out, "SkipAllNext hides the application scope")

	_, err = run(t, "resource", path, "-n", "inner", "-k", "accent", "--strict")
	assert.ErrorIs(t, err, element.ErrResourceNotFound)
}

func TestParseViewport(t *testing.T) {
	size, err := parseViewport("640X480")
	require.NoError(t, err)
	assert.Equal(t, 640.0, size.Width)
	assert.Equal(t, 480.0, size.Height)

	size, err = parseViewport("inf x 20")
	require.NoError(t, err)
	assert.True(t, size.Width > 1e308)

	for _, bad := range []string{"", "10", "-1x5", "ax5", "5xNaN"} {
		_, err := parseViewport(bad)
		assert.Error(t, err, bad)
	}
}
