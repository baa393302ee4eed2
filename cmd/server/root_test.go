package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/rpattn/gradtrack/internal/importer"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestRootRegistersCommands(t *testing.T) {
	root := newRootCmd()
	names := map[string]bool{}
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"serve", "migrate", "import", "template"} {
		assert.True(t, names[want], want)
	}
}

func TestTemplateCommandWritesWorkbook(t *testing.T) {
	out := filepath.Join(t.TempDir(), importer.TemplateFileName)

	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"template", out})
	require.NoError(t, root.Execute())

	f, err := excelize.OpenFile(out)
	require.NoError(t, err)
	defer f.Close()
	assert.Len(t, f.GetSheetList(), 2)
}

func TestImportCommandRequiresFile(t *testing.T) {
	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"import"})
	assert.Error(t, root.Execute())
}
