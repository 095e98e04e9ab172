package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/lychee-technology/filterdetect"
)

// parseDirection parses /api/v1/filters/{import|export}
func parseDirection(path string) (filterdetect.FilterFlags, error) {
	path = strings.TrimPrefix(path, "/api/v1/filters/")
	path = strings.Trim(path, "/")

	switch path {
	case "import":
		return filterdetect.FilterFlagImport, nil
	case "export":
		return filterdetect.FilterFlagExport, nil
	case "":
		return 0, fmt.Errorf("invalid path: empty direction")
	default:
		return 0, fmt.Errorf("unknown direction: %s", path)
	}
}

// parseRepairAnswer maps the repair query parameter to an outcome. ok is false when absent.
func parseRepairAnswer(queryParams url.Values) (outcome filterdetect.Outcome, ok bool, err error) {
	switch strings.ToLower(queryParams.Get("repair")) {
	case "":
		return 0, false, nil
	case "approve", "yes":
		return filterdetect.OutcomeApprove, true, nil
	case "decline", "no":
		return filterdetect.OutcomeDecline, true, nil
	default:
		return 0, false, fmt.Errorf("repair must be approve or decline")
	}
}

// formatLookup is a single name based lookup on the filter cache
type formatLookup struct {
	param string
	find  func(c filterdetect.GraphicFilterCache, value string) uint16
}

var importLookups = []formatLookup{
	{"ext", filterdetect.GraphicFilterCache.GetImportFormatNumberForExtension},
	{"short", filterdetect.GraphicFilterCache.GetImportFormatNumberForShortName},
	{"type", filterdetect.GraphicFilterCache.GetImportFormatNumberForTypeName},
	{"ui", filterdetect.GraphicFilterCache.GetImportFormatNumber},
}

var exportLookups = []formatLookup{
	{"media_type", filterdetect.GraphicFilterCache.GetExportFormatNumberForMediaType},
	{"short", filterdetect.GraphicFilterCache.GetExportFormatNumberForShortName},
	{"type", filterdetect.GraphicFilterCache.GetExportFormatNumberForTypeName},
	{"ui", filterdetect.GraphicFilterCache.GetExportFormatNumber},
}

// APIResponse is the standard response format
type APIResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// writeJSON writes JSON response to http.ResponseWriter
func writeJSON(w http.ResponseWriter, statusCode int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(data)
}

// writeError writes an error response
func writeError(w http.ResponseWriter, statusCode int, message string) error {
	return writeJSON(w, statusCode, APIResponse{
		Success: false,
		Error:   message,
	})
}

// writeSuccess writes a success response
func writeSuccess(w http.ResponseWriter, statusCode int, data any) error {
	return writeJSON(w, statusCode, APIResponse{
		Success: true,
		Data:    data,
	})
}
