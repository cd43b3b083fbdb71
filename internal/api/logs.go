package api

import (
	"net/http"
	"strconv"

	"github.com/mistops/guestgate/internal/logging"
)

// handleLogs returns recent application log entries from the in-memory
// ring buffer. Query params: limit (default 100), source (api, mist).
func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			WriteError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		if n > 1000 {
			n = 1000
		}
		limit = n
	}

	buffer := logging.GetAppLogBuffer()
	var entries []logging.AppLogEntry
	if source := r.URL.Query().Get("source"); source != "" {
		entries = buffer.GetBySource(source, limit)
	} else {
		entries = buffer.GetLast(limit)
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"logs":    entries,
		"total":   buffer.Count(),
	})
}
