package handlers

import (
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"textbook-chatbot/internal/contextutil"
)

// CitationHandler serves corpus source documents to the citation viewer.
// The page parameter is validated and echoed back in a header; the viewer
// itself handles scrolling to the page.
type CitationHandler struct {
	corpusPath string
}

// NewCitationHandler creates a new CitationHandler rooted at the corpus
// directory.
func NewCitationHandler(corpusPath string) *CitationHandler {
	return &CitationHandler{corpusPath: corpusPath}
}

// ServeHTTP handles GET /api/citation?file=<source>&page=<n>.
func (h *CitationHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodGet {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	file := r.URL.Query().Get("file")
	if file == "" {
		writeError(w, http.StatusBadRequest, "file parameter is required")
		return
	}
	// Sources can live in corpus subdirectories, so relative paths are
	// allowed as long as they stay confined to the corpus root.
	cleaned := filepath.Clean(filepath.FromSlash(file))
	if filepath.IsAbs(cleaned) || cleaned == ".." ||
		strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		logger.WarnContext(ctx, "rejected citation file path", "file", file)
		writeError(w, http.StatusBadRequest, "Invalid file parameter")
		return
	}

	if pageParam := r.URL.Query().Get("page"); pageParam != "" {
		page, err := strconv.Atoi(pageParam)
		if err != nil || page < 1 {
			writeError(w, http.StatusBadRequest, "Invalid page parameter")
			return
		}
		w.Header().Set("X-Citation-Page", strconv.Itoa(page))
	}

	path := filepath.Join(h.corpusPath, cleaned)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		writeError(w, http.StatusNotFound, "Source document not found")
		return
	}

	w.Header().Set("Content-Disposition", "inline; filename=\""+filepath.Base(cleaned)+"\"")
	http.ServeFile(w, r, path)
}
