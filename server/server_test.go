package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
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
	"novel_crafter/imagesearch"
	"novel_crafter/processor"
)

type stubPDF struct{ err error }

func (p stubPDF) RenderPDF(context.Context, []byte, export.Options) ([]byte, error) {
	if p.err != nil {
		return nil, p.err
	}
	return append([]byte("%PDF-1.4\n"), bytes.Repeat([]byte("x"), 200)...), nil
}

type stubLLM struct {
	reply string
	err   error
	calls int
}

func (l *stubLLM) Complete(_ context.Context, p assistant.Prompt) (string, error) {
	l.calls++
	return l.reply, l.err
}

type fixture struct {
	srv     *Server
	handler http.Handler
	llm     *stubLLM
	logs    *observer.ObservedLogs
}

func newFixture(t *testing.T, cfg *config.Config, pdfErr error) *fixture {
	t.Helper()
	core, logs := observer.New(zap.InfoLevel)
	logger := zap.New(core)

	images := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") == "broken" {
			http.Error(w, "down", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"hits":[{"id":1,"webformatURL":"w.jpg","previewURL":"p.jpg","tags":"sea","user":"u"}]}`))
	}))
	t.Cleanup(images.Close)

	exp := export.NewExporter(zaptest.NewLogger(t), export.WithPDFRenderer(stubPDF{err: pdfErr}))
	proc := processor.New(zaptest.NewLogger(t), processor.WithExporter(exp))
	llm := &stubLLM{reply: "Try a shorter opening line."}
	agent, err := assistant.NewAgent(llm)
	require.NoError(t, err)
	search := imagesearch.New(imagesearch.Config{PixabayURL: images.URL}, images.Client(), nil)

	srv, err := New(cfg, proc, agent, search, logger)
	require.NoError(t, err)
	srv.now = func() time.Time { return time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC) }
	return &fixture{srv: srv, handler: srv.Routes(), llm: llm, logs: logs}
}

func (f *fixture) do(method, target, body string) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rd)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decodeMap(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestNewRequiresDependencies(t *testing.T) {
	agent, _ := assistant.NewAgent(assistant.MockLLM{})
	_, err := New(nil, nil, agent, nil, nil)
	assert.Error(t, err)
	_, err = New(nil, processor.New(nil), nil, nil, nil)
	assert.Error(t, err)
	_, err = New(&config.Config{StaticDir: filepath.Join(t.TempDir(), "missing")}, processor.New(nil), agent, nil, nil)
	assert.Error(t, err)
}

func TestHealthAndCORS(t *testing.T) {
	f := newFixture(t, nil, nil)

	rec := f.do(http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decodeMap(t, rec)["status"])
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = f.do(http.MethodOptions, "/api/process-text", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())
	assert.Equal(t, "GET, POST, OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))
}

func TestRequestLogging(t *testing.T) {
	f := newFixture(t, nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("X-Request-ID", "req-1")
	f.handler.ServeHTTP(httptest.NewRecorder(), req)

	entries := f.logs.FilterMessage("http request").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, "/api/health", fields["path"])
	assert.EqualValues(t, http.StatusOK, fields["status"])
}

func TestProcessText(t *testing.T) {
	f := newFixture(t, nil, nil)
	text := "Your going to love this.\n\nJohn smiled. He waved."

	for _, path := range []string{"/api/process-text", "/api/process"} {
		t.Run(path, func(t *testing.T) {
			body, _ := json.Marshal(map[string]string{"text": text})
			rec := f.do(http.MethodPost, path, string(body))
			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			res := decodeMap(t, rec)
			assert.Equal(t, text, res["originalText"])
			assert.Equal(t, true, res["preservationGuarantee"])
			assert.Nil(t, res["generatedContent"])
			assert.Nil(t, res["characterNames"])
			assert.Nil(t, res["addedContent"])
			assert.NotEmpty(t, res["grammarErrors"])
			assert.NotContains(t, res, "fallbackMode")
		})
	}
}

func TestTextValidation(t *testing.T) {
	f := newFixture(t, nil, nil)
	cases := map[string]string{
		"missing":    `{}`,
		"null":       `{"text":null}`,
		"number":     `{"text":42}`,
		"array":      `{"text":["a"]}`,
		"bad json":   `{"text":`,
		"empty body": ``,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			rec := f.do(http.MethodPost, "/api/process-text", body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, errTextRequired, decodeMap(t, rec)["error"])
		})
	}

	t.Run("empty string is valid", func(t *testing.T) {
		rec := f.do(http.MethodPost, "/api/process-text", `{"text":""}`)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "", decodeMap(t, rec)["originalText"])
	})

	t.Run("bad options", func(t *testing.T) {
		rec := f.do(http.MethodPost, "/api/character-names", `{"text":"x","options":{"suggestionsOnly":"yes"}}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, decodeMap(t, rec)["error"], "Invalid request body")
	})

	t.Run("wrong method", func(t *testing.T) {
		rec := f.do(http.MethodGet, "/api/grammar-check", "")
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
		assert.Equal(t, "Method not allowed", decodeMap(t, rec)["error"])
	})
}

func TestGrammarCheck(t *testing.T) {
	f := newFixture(t, nil, nil)
	rec := f.do(http.MethodPost, "/api/grammar-check", `{"text":"Your going home."}`)
	require.Equal(t, http.StatusOK, rec.Code)

	res := decodeMap(t, rec)
	assert.Equal(t, "Your going home.", res["text"])
	assert.Equal(t, "2024-03-01T09:30:00Z", res["processedAt"])
	errs, ok := res["errors"].([]any)
	require.True(t, ok)
	assert.EqualValues(t, len(errs), res["errorCount"])
	assert.NotEmpty(t, errs)

	rec = f.do(http.MethodPost, "/api/grammar-check", `{"text":""}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", string(mustRaw(t, rec, "errors")))
}

func mustRaw(t *testing.T, rec *httptest.ResponseRecorder, key string) json.RawMessage {
	t.Helper()
	var out map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out[key]
}

func TestCharacterNames(t *testing.T) {
	f := newFixture(t, nil, nil)
	rec := f.do(http.MethodPost, "/api/character-names",
		`{"text":"John walked in. He sat down. Sarah waved. She smiled.","options":{"suggestionsOnly":false}}`)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, "null", string(mustRaw(t, rec, "characterNames")))
	assert.Equal(t, "null", string(mustRaw(t, rec, "generatedContent")))
	res := decodeMap(t, rec)
	names, ok := res["detectedNames"].([]any)
	require.True(t, ok)
	require.Len(t, names, 2)
	assert.Equal(t, "John", names[0].(map[string]any)["name"])
	assert.Equal(t, "he", names[0].(map[string]any)["pronouns"])
	assert.Equal(t, false, res["settings"].(map[string]any)["suggestionsOnly"])
}

func TestNameChangeAndCorrections(t *testing.T) {
	f := newFixture(t, nil, nil)

	rec := f.do(http.MethodPost, "/api/name-change", `{"text":"Jon met Jonathan. Jon left.","oldName":"Jon","newName":"John"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "John met Jonathan. John left.", decodeMap(t, rec)["text"])
	entries := f.logs.FilterMessage("name change applied").All()
	require.Len(t, entries, 1)
	assert.Equal(t, int64(2), entries[0].ContextMap()["occurrences"])

	rec = f.do(http.MethodPost, "/api/apply-corrections", `{"text":"Your going home.","corrections":[
		{"position":0,"original":"Your","replacement":"You're","approved":true},
		{"position":5,"original":"going","replacement":"coming","approved":false}]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "You're going home.", decodeMap(t, rec)["text"])
}

func TestExportWord(t *testing.T) {
	f := newFixture(t, nil, nil)
	rec := f.do(http.MethodPost, "/api/export-word", `{"text":"# One\n\nIt began.","options":{"title":"My Novel"}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, export.ContentTypeDOCX, rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="My_Novel.docx"`, rec.Header().Get("Content-Disposition"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("PK\x03\x04")))
	assert.Empty(t, rec.Header().Get("X-Export-Fallback"))
}

func TestExportHTMLUsesConfiguredDefaults(t *testing.T) {
	cfg := config.Default()
	cfg.Export.Title = "Draft"
	f := newFixture(t, cfg, nil)

	rec := f.do(http.MethodPost, "/api/export-html", `{"text":"Hello <world>"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, export.ContentTypeHTML, rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="Draft.html"`, rec.Header().Get("Content-Disposition"))
	assert.Contains(t, rec.Body.String(), "Hello &lt;world&gt;")
}

func TestExportPDF(t *testing.T) {
	t.Run("rendered", func(t *testing.T) {
		f := newFixture(t, nil, nil)
		rec := f.do(http.MethodPost, "/api/export-pdf", `{"text":"Hello."}`)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, export.ContentTypePDF, rec.Header().Get("Content-Type"))
		assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF-")))
	})

	t.Run("fallback", func(t *testing.T) {
		f := newFixture(t, nil, errors.New("no browser"))
		rec := f.do(http.MethodPost, "/api/export-pdf", `{"text":"Hello.\n\n  Spaced  "}`)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, export.ContentTypeText, rec.Header().Get("Content-Type"))
		assert.Equal(t, "true", rec.Header().Get("X-Export-Fallback"))
		assert.Contains(t, rec.Body.String(), "Hello.\n\n  Spaced  ")
		assert.Contains(t, rec.Header().Get("Content-Disposition"), ".txt")
	})
}

func TestAssistant(t *testing.T) {
	f := newFixture(t, nil, nil)

	rec := f.do(http.MethodPost, "/api/ai-assistant", `{"text":"It was a dark night.","action":"style"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	res := decodeMap(t, rec)
	assert.Equal(t, true, res["success"])
	assert.Equal(t, "Try a shorter opening line.", res["response"])
	assert.Equal(t, "style", res["action"])
	id, _ := res["sessionId"].(string)
	require.NotEmpty(t, id)

	rec = f.do(http.MethodPost, "/api/ai-assistant", `{"text":"And now?","action":"style","sessionId":"`+id+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, id, decodeMap(t, rec)["sessionId"])
	sess, ok := f.srv.store.get(id)
	require.True(t, ok)
	assert.Len(t, sess.History(), 2)

	t.Run("empty text", func(t *testing.T) {
		rec := f.do(http.MethodPost, "/api/ai-assistant", `{"text":"","action":"plot"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Text is required", decodeMap(t, rec)["error"])
	})

	t.Run("backend down", func(t *testing.T) {
		f.llm.err = errors.New("quota exceeded")
		rec := f.do(http.MethodPost, "/api/ai-assistant", `{"text":"Hi.","action":"plot"}`)
		assert.Equal(t, http.StatusBadGateway, rec.Code)
		res := decodeMap(t, rec)
		assert.Equal(t, "AI service temporarily unavailable", res["error"])
		assert.Equal(t, assistant.FallbackResponse(assistant.ActionPlot), res["fallback"])
	})
}

func TestAnonymousSessionsAreBounded(t *testing.T) {
	f := newFixture(t, nil, nil)
	for i := 0; i < maxSessions+50; i++ {
		rec := f.do(http.MethodPost, "/api/ai-assistant", `{"text":"Hi.","action":"style"}`)
		require.Equal(t, http.StatusOK, rec.Code)
	}
	assert.Equal(t, maxSessions, f.srv.store.size())
}

func TestSessionStoreEviction(t *testing.T) {
	clock := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	st := newStore()
	st.max = 2
	st.now = func() time.Time { return clock }
	agent, err := assistant.NewAgent(&stubLLM{reply: "ok"})
	require.NoError(t, err)

	add := func(id string) {
		clock = clock.Add(time.Second)
		st.set(id, assistant.NewSession(id, agent))
	}

	t.Run("least recently used goes first", func(t *testing.T) {
		add("a")
		add("b")
		clock = clock.Add(time.Second)
		_, ok := st.get("a")
		require.True(t, ok)
		add("c")

		assert.Equal(t, 2, st.size())
		_, ok = st.get("b")
		assert.False(t, ok)
		_, ok = st.get("a")
		assert.True(t, ok)
	})

	t.Run("idle sessions expire", func(t *testing.T) {
		clock = clock.Add(sessionIdleTTL + time.Minute)
		_, ok := st.get("a")
		assert.False(t, ok)
		add("d")
		assert.Equal(t, 1, st.size())
	})
}

func TestApplyCorrectionsHugePosition(t *testing.T) {
	f := newFixture(t, nil, nil)
	rec := f.do(http.MethodPost, "/api/apply-corrections",
		`{"text":"hello","corrections":[{"position":9223372036854775807,"original":"x","replacement":"y","approved":true}]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "hello", decodeMap(t, rec)["text"])
}

func TestImageSearch(t *testing.T) {
	f := newFixture(t, nil, nil)

	rec := f.do(http.MethodGet, "/api/image-search?query=sea&source=pixabay&per_page=2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	res := decodeMap(t, rec)
	assert.Equal(t, true, res["success"])
	assert.Equal(t, "pixabay", res["source"])
	assert.Equal(t, "sea", res["query"])
	assert.Len(t, res["images"], 1)

	rec = f.do(http.MethodGet, "/api/image-search?source=pixabay", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Search query is required", decodeMap(t, rec)["error"])

	rec = f.do(http.MethodGet, "/api/image-search?query=sea&source=flickr", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid source", decodeMap(t, rec)["error"])

	rec = f.do(http.MethodGet, "/api/image-search?query=broken&source=pixabay", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Try searching manually on the respective platforms", decodeMap(t, rec)["fallback"])

	rec = f.do(http.MethodPost, "/api/image-search?query=sea", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestStaticFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<h1>workspace</h1>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.js"), []byte("console.log(1)"), 0o644))
	cfg := config.Default()
	cfg.StaticDir = dir
	f := newFixture(t, cfg, nil)

	rec := f.do(http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "workspace")

	rec = f.do(http.MethodGet, "/app.js", "")
	assert.Contains(t, rec.Body.String(), "console.log")

	rec = f.do(http.MethodGet, "/editor/chapter-1", "")
	assert.Contains(t, rec.Body.String(), "workspace")

	rec = f.do(http.MethodGet, "/api/nothing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Not Found", decodeMap(t, rec)["error"])
}

func TestNoStaticDir(t *testing.T) {
	f := newFixture(t, nil, nil)
	rec := f.do(http.MethodGet, "/", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
