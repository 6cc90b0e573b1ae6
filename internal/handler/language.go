package handler

import (
	"net/http"

	"github.com/sakif/tinkers/internal/interpreter"
)

// LanguageResponse describes one supported language to the client.
type LanguageResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Extension   string `json:"extension"`
	DefaultCode string `json:"defaultCode"`
}

// LanguageHandler lists the closed set of supported languages.
type LanguageHandler struct {
	languages *interpreter.Registry
}

func NewLanguageHandler(languages *interpreter.Registry) *LanguageHandler {
	return &LanguageHandler{languages: languages}
}

// HandleList serves GET /api/languages.
func (h *LanguageHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	specs := h.languages.Languages()
	out := make([]LanguageResponse, 0, len(specs))
	for _, s := range specs {
		out = append(out, LanguageResponse{
			ID:          s.ID,
			Name:        s.DisplayName,
			Extension:   s.Extension,
			DefaultCode: s.DefaultCode,
		})
	}
	writeJSON(w, http.StatusOK, out)
}
