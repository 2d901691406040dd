package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"lrc-translator/internal/config"
	"lrc-translator/internal/history"
	"lrc-translator/internal/parser"
	"lrc-translator/internal/translation"

	"github.com/rs/zerolog/log"
)

const (
	// MaxUploadBytes bounds the lyric upload size.
	MaxUploadBytes = 2 << 20

	downloadName = "translated_lyrics.lrc"
)

// TranslateHandler accepts lyrics and returns the translated file as a download.
type TranslateHandler struct {
	cfg        *config.Config
	newBackend BackendFactory
	recorder   history.Recorder
	parser     *parser.LRCParser
}

func NewTranslateHandler(cfg *config.Config, newBackend BackendFactory, recorder history.Recorder) *TranslateHandler {
	if newBackend == nil {
		newBackend = DefaultBackendFactory
	}
	return &TranslateHandler{
		cfg:        cfg,
		newBackend: newBackend,
		recorder:   recorder,
		parser:     parser.NewLRCParser(),
	}
}

// Health reports liveness.
func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Translate handles POST /api/translate. Lyrics come from the "file" upload or
// the "text" field; api_key, base_url, model, mode and lang override the
// server configuration for this request.
func (h *TranslateHandler) Translate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBytes)

	content, source, err := readLyrics(r)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			jsonError(w, "upload too large", http.StatusRequestEntityTooLarge)
			return
		}
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(content) == "" {
		jsonError(w, "please upload an .lrc file or paste lyrics", http.StatusBadRequest)
		return
	}

	cfg := h.requestConfig(r)
	if err := cfg.Validate(); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	opts := cfg.DriverOptions()
	driver := translation.NewDriver(h.newBackend(cfg.ClientConfig()), opts)
	doc := h.parser.ParseString(content)

	res, err := driver.Run(r.Context(), doc)
	if err != nil {
		log.Error().Err(err).Str("source", source).Msg("Translation run failed")
		jsonError(w, err.Error(), http.StatusBadGateway)
		return
	}

	if h.recorder != nil {
		if err := h.recorder.Record(r.Context(), history.NewRun(source, content, opts, res)); err != nil {
			log.Warn().Err(err).Msg("Failed to record run")
		}
	}

	log.Info().
		Str("source", source).
		Str("mode", string(res.Mode)).
		Int("calls", res.Calls).
		Int("backend_errors", res.BackendErrors).
		Msg("Lyrics translated")

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+downloadName+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, res.Output)
}

// requestConfig overlays per-request form values onto a copy of the server config.
func (h *TranslateHandler) requestConfig(r *http.Request) *config.Config {
	cfg := h.cfg.Clone()
	if v := strings.TrimSpace(r.FormValue("api_key")); v != "" {
		cfg.APIKey = v
	}
	if v := strings.TrimSpace(r.FormValue("base_url")); v != "" {
		cfg.BaseURL = v
	}
	if v := strings.TrimSpace(r.FormValue("model")); v != "" {
		cfg.Model = v
	}
	if v := strings.TrimSpace(r.FormValue("mode")); v != "" {
		cfg.Mode = v
	}
	var langs []string
	for _, v := range r.Form["lang"] {
		langs = append(langs, config.SplitList(v)...)
	}
	if len(langs) > 0 {
		cfg.TargetLanguages = langs
	}
	return cfg
}

// readLyrics returns the uploaded file if present, otherwise the text field.
func readLyrics(r *http.Request) (string, string, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(MaxUploadBytes); err != nil {
			return "", "", err
		}
		if file, header, err := r.FormFile("file"); err == nil {
			defer file.Close()
			data, err := io.ReadAll(file)
			if err != nil {
				return "", "", err
			}
			content, err := parser.Decode(data)
			if err != nil {
				return "", "", err
			}
			return content, header.Filename, nil
		} else if !errors.Is(err, http.ErrMissingFile) {
			return "", "", err
		}
	} else if err := r.ParseForm(); err != nil {
		return "", "", err
	}
	return r.FormValue("text"), "pasted", nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, status int) {
	writeJSON(w, status, map[string]string{"error": msg})
}
