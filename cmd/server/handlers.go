package main

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/lychee-technology/filterdetect"
	"go.uber.org/zap"
)

// DetectResponse is returned by POST /api/v1/detect
type DetectResponse struct {
	TypeName        string   `json:"type_name"`
	RepairRequested bool     `json:"repair_requested"`
	RepairAllowed   bool     `json:"repair_allowed"`
	AsTemplate      bool     `json:"as_template"`
	DocumentTitle   string   `json:"document_title,omitempty"`
	Requests        []string `json:"requests,omitempty"`
}

// FilterView is one cache entry together with its format number
type FilterView struct {
	Format uint16 `json:"format"`
	filterdetect.FilterEntry
	Wildcard string `json:"wildcard"`
}

// handleDetect handles POST /api/v1/detect?type_name=...&url=...&repair=approve|decline
func (s *Server) handleDetect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	query := r.URL.Query()
	answer, answered, err := parseRepairAnswer(query)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	body := r.Body
	if s.maxPackageSize > 0 {
		body = http.MaxBytesReader(w, r.Body, s.maxPackageSize)
	}
	defer body.Close()

	desc := &filterdetect.MediaDescriptor{
		InputStream: body,
		TypeName:    query.Get("type_name"),
		URL:         query.Get("url"),
	}
	if v := query.Get("repair_allowed"); v != "" {
		allowed, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid repair_allowed: %v", err))
			return
		}
		desc.RepairAllowed = &allowed
	}

	var requests []string
	if answered {
		desc.InteractionHandler = filterdetect.InteractionHandlerFunc(
			func(ctx context.Context, req *filterdetect.InteractionRequest) filterdetect.Outcome {
				requests = append(requests, string(req.Kind))
				if req.Kind == filterdetect.RequestRepairPackage {
					return answer
				}
				return filterdetect.OutcomeDecline
			})
	}

	typeName, err := s.detector.Detect(r.Context(), desc)
	if err != nil {
		zap.S().Errorw("type detection failed", "error", err)
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("detection failed: %v", err))
		return
	}

	writeSuccess(w, http.StatusOK, DetectResponse{
		TypeName:        typeName,
		RepairRequested: desc.RepairPackage,
		RepairAllowed:   desc.IsRepairAllowed(),
		AsTemplate:      desc.AsTemplate,
		DocumentTitle:   desc.DocumentTitle,
		Requests:        requests,
	})
}

// handleFilters handles GET /api/v1/filters/{import|export}
func (s *Server) handleFilters(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	direction, err := parseDirection(r.URL.Path)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	cache := s.caches.Current()
	entries := cache.ImportEntries()
	lookups := importLookups
	wildcard := cache.GetImportWildcard
	if direction == filterdetect.FilterFlagExport {
		entries = cache.ExportEntries()
		lookups = exportLookups
		wildcard = cache.GetExportWildcard
	}

	query := r.URL.Query()
	for _, l := range lookups {
		value := query.Get(l.param)
		if value == "" {
			continue
		}
		format := l.find(cache, value)
		if format == filterdetect.FormatNotFound || int(format) >= len(entries) {
			writeError(w, http.StatusNotFound, fmt.Sprintf("no %s filter for %s=%s", direction, l.param, value))
			return
		}
		writeSuccess(w, http.StatusOK, FilterView{Format: format, FilterEntry: entries[format], Wildcard: wildcard(format, 0)})
		return
	}

	views := make([]FilterView, len(entries))
	for i, e := range entries {
		views[i] = FilterView{Format: uint16(i), FilterEntry: e, Wildcard: wildcard(uint16(i), 0)}
	}
	writeSuccess(w, http.StatusOK, views)
}

// handleReload handles POST /api/v1/filters/reload
func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	cache, err := s.caches.Reload(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("reload failed: %v", err))
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{
		"import_count": cache.GetImportFormatCount(),
		"export_count": cache.GetExportFormatCount(),
	})
}
