package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"novel_crafter/assistant"
	"novel_crafter/config"
	"novel_crafter/export"
	"novel_crafter/grammar"
	"novel_crafter/processor"
)

func TestNewProcessorLogsRules(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	p := newProcessor(config.Default(), zap.New(core))
	require.NotNil(t, p)

	entries := logs.FilterMessage("grammar engine ready").All()
	require.Len(t, entries, 1)
	assert.Len(t, entries[0].ContextMap()["rules"], len(grammar.DefaultRules()))
}

func TestBuildLLM(t *testing.T) {
	llm, err := buildLLM(config.LLMConfig{})
	require.NoError(t, err)
	assert.IsType(t, assistant.MockLLM{}, llm)

	llm, err = buildLLM(config.LLMConfig{Provider: "mock", APIKey: "ignored"})
	require.NoError(t, err)
	assert.IsType(t, assistant.MockLLM{}, llm)

	llm, err = buildLLM(config.LLMConfig{Provider: "openai", APIKey: "k", Model: "gpt-4o"})
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", llm.(*assistant.OpenAILLM).Model)

	_, err = buildLLM(config.LLMConfig{Provider: "openai"})
	assert.Error(t, err)
	_, err = buildLLM(config.LLMConfig{Provider: "deepseek", APIKey: "k"})
	assert.Error(t, err)
	_, err = buildLLM(config.LLMConfig{Provider: "deepseek", APIKey: "k", BaseURL: "https://api.deepseek.com/v1"})
	assert.NoError(t, err)
	_, err = buildLLM(config.LLMConfig{Provider: "other"})
	assert.Error(t, err)
}

func TestCheckReport(t *testing.T) {
	p := processor.New(zaptest.NewLogger(t))
	text := "Your going home.\n\nJohn walked in. He sat down. " + strings.Repeat("silver ", 4)
	report := checkReport("draft.txt", p.ProcessText(text))

	assert.Contains(t, report, "# Manuscript check: draft.txt")
	assert.Contains(t, report, "**2** paragraphs")
	assert.Contains(t, report, "| 0 | your_youre | Your |")
	assert.Contains(t, report, `Consider varying the word "silver"`)
	assert.Contains(t, report, "| John | 1 | he |")

	empty := checkReport("empty.txt", p.ProcessText(""))
	assert.Contains(t, empty, "No issues found.")
	assert.Contains(t, empty, "No likely character names found.")

	failed := checkReport("x", &processor.Result{OriginalText: "x", FallbackMode: true, Error: "GRAMMAR_SCAN: boom"})
	assert.Contains(t, failed, "Processing failed")
	assert.Contains(t, failed, "GRAMMAR_SCAN: boom")
}

func TestCell(t *testing.T) {
	assert.Equal(t, `a \| b c`, cell("a | b\n c"))
}

func TestExportDocument(t *testing.T) {
	p := processor.New(nil)
	opts := export.DefaultOptions()
	text := "# Title\n\nBody."

	doc, err := exportDocument(context.Background(), p, "word", text, opts, time.Second)
	require.NoError(t, err)
	assert.Equal(t, ".docx", doc.Extension)
	assert.True(t, bytes.HasPrefix(doc.Data, []byte("PK")))

	doc, err = exportDocument(context.Background(), p, "HTML", text, opts, time.Second)
	require.NoError(t, err)
	assert.Equal(t, ".html", doc.Extension)

	doc, err = exportDocument(context.Background(), p, "text", text, opts, time.Second)
	require.NoError(t, err)
	assert.Equal(t, string(export.ExportAsPlainText(text)), string(doc.Data))

	_, err = exportDocument(context.Background(), p, "rtf", text, opts, time.Second)
	assert.Error(t, err)
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		checkJSON, checkPlain = false, false
		exportFormat, exportOut, exportTitle, exportAuthor = "word", "", "", ""
		rootCmd.SetArgs(nil)
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func TestCheckCommandJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "chapter.txt")
	text := "Their going to the store.\n\n  Indented line."
	require.NoError(t, os.WriteFile(path, []byte(text), 0o644))

	out, err := runCLI(t, "check", path, "--json")
	require.NoError(t, err)
	var res map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, text, res["originalText"])
	assert.Equal(t, true, res["preservationGuarantee"])

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, text, string(after))
}

func TestExportCommand(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "book.md")
	out := filepath.Join(dir, "book.txt")
	require.NoError(t, os.WriteFile(in, []byte("Chapter one.\n\nThe end."), 0o644))

	stdout, err := runCLI(t, "export", in, "--format", "text", "-o", out)
	require.NoError(t, err)
	assert.Contains(t, stdout, out)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, string(export.ExportAsPlainText("Chapter one.\n\nThe end.")), string(data))
}
