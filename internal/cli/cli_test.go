package cli

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"regexp"
	"strings"
	"sync/atomic"
	"testing"

	"lrc-translator/internal/config"
	"lrc-translator/internal/parser"
)

var envKeys = []string{
	"LRC_CONFIG", "LRC_API_KEY", "OPENAI_API_KEY", "LRC_BASE_URL", "LRC_MODEL", "LRC_MODE",
	"DATABASE_URL", "LRC_LISTEN_ADDR", "LRC_LINE_MAX_TOKENS", "LRC_DOCUMENT_MAX_TOKENS",
	"LRC_REQUEST_TIMEOUT", "LRC_TARGET_LANGUAGES", "LRC_ALLOWED_ORIGINS",
}

// isolate clears configuration from the environment and runs the test in a
// fresh working directory.
func isolate(t *testing.T) string {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
	dir := t.TempDir()
	prevDir, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(prevDir) })
	return dir
}

// languageEcho answers with "<language>:<user text>", where the language is
// taken from the line prompt.
func languageEcho(t *testing.T, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		var req struct {
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		lang := strings.TrimSuffix(strings.TrimPrefix(req.Messages[0].Content, "Translate the following text to "), ".")
		content := lang + ":" + req.Messages[1].Content
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{map[string]any{"message": map[string]any{"content": content}}},
		})
	}))
	t.Cleanup(server.Close)
	return server
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

const sampleLyrics = "[ar:Someone]\n[00:12.50] Hello world\n\n[00:15.00]Bye\n"

func TestTranslateFile(t *testing.T) {
	dir := isolate(t)
	var calls atomic.Int32
	server := languageEcho(t, &calls)

	in := filepath.Join(dir, "song.lrc")
	if err := os.WriteFile(in, []byte(sampleLyrics), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}

	_, err := execute(t, "translate", in,
		"--api-key", "k", "--base-url", server.URL, "--model", "m",
		"--lang", "Japanese", "--lang", "Korean")
	if err != nil {
		t.Fatalf("translate returned error: %v", err)
	}

	got, err := os.ReadFile(filepath.Join(dir, "translated_lyrics.lrc"))
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	want := "[ar:Someone]\n" +
		"[00:12.50] Japanese:Hello world / Korean:Hello world\n" +
		"\n" +
		"[00:15.00] Japanese:Bye / Korean:Bye"
	if string(got) != want {
		t.Fatalf("unexpected output:\n%q\nwant:\n%q", got, want)
	}
	if calls.Load() != 4 {
		t.Fatalf("expected 4 calls, got %d", calls.Load())
	}
}

func TestTranslateTextToStdout(t *testing.T) {
	isolate(t)
	var calls atomic.Int32
	server := languageEcho(t, &calls)

	out, err := execute(t, "translate", "--text", "[01:00.00] Hi", "--stdout",
		"--api-key", "k", "--base-url", server.URL, "--model", "m", "--lang", "French")
	if err != nil {
		t.Fatalf("translate returned error: %v", err)
	}
	if strings.TrimSpace(out) != "[01:00.00] French:Hi" {
		t.Fatalf("unexpected stdout %q", out)
	}
	if _, err := os.Stat("translated_lyrics.lrc"); !os.IsNotExist(err) {
		t.Fatalf("expected no output file with --stdout, stat err=%v", err)
	}
}

func TestTranslateDirectory(t *testing.T) {
	dir := isolate(t)
	var calls atomic.Int32
	server := languageEcho(t, &calls)

	in := filepath.Join(dir, "in")
	if err := os.MkdirAll(filepath.Join(in, "album"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	files := map[string]string{
		"a.lrc":           "[00:01.00] One",
		"album/b.lrc":     "[00:02.00] Two",
		"album/notes.txt": "ignored",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(in, name), []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}

	out := filepath.Join(dir, "out")
	_, err := execute(t, "translate", in, "-o", out,
		"--api-key", "k", "--base-url", server.URL, "--model", "m", "--lang", "German")
	if err != nil {
		t.Fatalf("translate returned error: %v", err)
	}

	for name, want := range map[string]string{
		"a.lrc":       "[00:01.00] German:One",
		"album/b.lrc": "[00:02.00] German:Two",
	} {
		got, err := os.ReadFile(filepath.Join(out, name))
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		if string(got) != want {
			t.Fatalf("%s: got %q, want %q", name, got, want)
		}
	}
	if _, err := os.Stat(filepath.Join(out, "album", "notes.txt")); !os.IsNotExist(err) {
		t.Fatalf("non-lrc file should not be copied, stat err=%v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected 2 calls, got %d", calls.Load())
	}
}

func TestTranslateBackendErrorIsEmbedded(t *testing.T) {
	isolate(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	t.Cleanup(server.Close)

	out, err := execute(t, "translate", "--text", "[00:01.00] Hi", "--stdout",
		"--api-key", "k", "--base-url", server.URL, "--model", "m", "--lang", "Japanese")
	if err != nil {
		t.Fatalf("backend errors should not fail the command: %v", err)
	}
	if !strings.HasPrefix(out, "[00:01.00] [Error: 404 - model not found") {
		t.Fatalf("unexpected stdout %q", out)
	}
}

func TestTranslateTransportErrorFails(t *testing.T) {
	isolate(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	t.Cleanup(server.Close)

	_, err := execute(t, "translate", "--text", "[00:01.00] Hi",
		"--api-key", "k", "--base-url", server.URL, "--model", "m")
	if err == nil {
		t.Fatal("expected malformed response to fail the command")
	}
	if _, statErr := os.Stat("translated_lyrics.lrc"); !os.IsNotExist(statErr) {
		t.Fatalf("no output should be written after a transport error, stat err=%v", statErr)
	}
}

func TestTranslateRequiresInput(t *testing.T) {
	isolate(t)

	_, err := execute(t, "translate", "--api-key", "k", "--model", "m")
	if err == nil || !strings.Contains(err.Error(), "--text") {
		t.Fatalf("expected missing input error, got %v", err)
	}
}

func TestTranslateRequiresCredentials(t *testing.T) {
	isolate(t)

	_, err := execute(t, "translate", "--text", "[00:01.00] Hi")
	if err == nil || !strings.Contains(err.Error(), "API key") {
		t.Fatalf("expected missing credentials error, got %v", err)
	}
}

func TestTranslateFlagOverrides(t *testing.T) {
	isolate(t)
	cfgPath := "lrc.toml"
	if err := os.WriteFile(cfgPath, []byte("mode = \"whole\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("LRC_CONFIG", cfgPath)

	opts := &translateOptions{maxTokens: 999, langs: []string{"Thai, Greek"}, timeout: 5}
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	opts.apply(cfg)

	if cfg.DocumentMaxTokens != 999 || cfg.LineMaxTokens == 999 {
		t.Fatalf("max tokens should target the whole-content limit, got line=%d doc=%d", cfg.LineMaxTokens, cfg.DocumentMaxTokens)
	}
	if strings.Join(cfg.TargetLanguages, "|") != "Thai|Greek" {
		t.Fatalf("unexpected languages %v", cfg.TargetLanguages)
	}
	if cfg.RequestTimeout.Seconds() != 5 {
		t.Fatalf("unexpected timeout %v", cfg.RequestTimeout)
	}
}

func TestInspect(t *testing.T) {
	dir := isolate(t)
	in := filepath.Join(dir, "song.lrc")
	if err := os.WriteFile(in, []byte(sampleLyrics), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}

	out, err := execute(t, "inspect", in, "--lang", "Japanese,Korean,French")
	if err != nil {
		t.Fatalf("inspect returned error: %v", err)
	}
	rows := []string{
		`│\s*File\s*│\s*song\.lrc\s*│`,
		`│\s*Timestamped\s*│\s*2\s*│`,
		`│\s*Passthrough\s*│\s*2\s*│`,
		`│\s*ar\s*│\s*Someone\s*│`,
		`│\s*line\s*│\s*3\s*│\s*6\s*│`,
		`│\s*whole\s*│\s*3\s*│\s*1\s*│`,
	}
	for _, pattern := range rows {
		if !regexp.MustCompile(pattern).MatchString(out) {
			t.Fatalf("inspect output has no row matching %s:\n%s", pattern, out)
		}
	}
}

func TestPlanRows(t *testing.T) {
	doc := parser.NewLRCParser().ParseString(sampleLyrics)

	got := planRows(doc, 3)
	want := [][]string{{"line", "3", "6"}, {"whole", "3", "1"}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("planRows = %v, want %v", got, want)
	}
}

func TestSummaryRowsCounts(t *testing.T) {
	doc := parser.NewLRCParser().ParseString(sampleLyrics)

	rows := summaryRows(doc)
	want := [][]string{{"Lines", "4"}, {"Timestamped", "2"}, {"Passthrough", "2"}}
	if !reflect.DeepEqual(rows[1:4], want) {
		t.Fatalf("summaryRows counts = %v, want %v", rows[1:4], want)
	}
}

func TestHistoryRequiresDatabase(t *testing.T) {
	isolate(t)

	_, err := execute(t, "history", "list")
	if err == nil || !strings.Contains(err.Error(), "DATABASE_URL") {
		t.Fatalf("expected DATABASE_URL error, got %v", err)
	}
}

func TestSetLogLevel(t *testing.T) {
	if err := setLogLevel("debug"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := setLogLevel("loud"); err == nil {
		t.Fatal("expected invalid level error")
	}
	_ = setLogLevel("info")
}
