package api

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mistops/guestgate/internal/guest"
	"github.com/mistops/guestgate/internal/mist"
)

// errorStatus maps a service error to an HTTP status. Caller mistakes
// (bad MACs) and errors the vendor cloud reported get a 400; anything
// else is a 500.
func errorStatus(err error) int {
	if errors.Is(err, mist.ErrInvalidMAC) || errors.Is(err, mist.ErrNoOrg) {
		return http.StatusBadRequest
	}
	var apiErr *mist.APIError
	if errors.As(err, &apiErr) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (s *Server) handleTestConnection(w http.ResponseWriter, r *http.Request) {
	info, err := s.svc.TestConnection(r.Context())
	if err != nil {
		s.logger.Warn("connection test failed", "error", err)
		WriteError(w, errorStatus(err), err.Error())
		return
	}
	s.logger.Info("connection test successful", "org", info.OrgName)
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"message":  "Connected to Mist API successfully",
		"org_name": info.OrgName,
		"org_id":   info.OrgID,
	})
}

func (s *Server) handleSites(w http.ResponseWriter, r *http.Request) {
	sites, err := s.svc.Sites(r.Context(), true)
	if err != nil {
		s.logger.Error("failed to fetch sites", "error", err)
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"sites":   sites,
	})
}

func (s *Server) handleSiteWLANs(w http.ResponseWriter, r *http.Request) {
	siteID := r.PathValue("site_id")
	wlans, err := s.svc.GuestWLANs(r.Context(), siteID)
	if err != nil {
		s.logger.Error("failed to fetch WLANs", "site_id", siteID, "error", err)
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"wlans":   wlans,
	})
}

func (s *Server) handleListGuests(w http.ResponseWriter, r *http.Request) {
	siteID := r.PathValue("site_id")
	wlanID := r.PathValue("wlan_id")
	guests, err := s.svc.Guests(r.Context(), siteID, wlanID)
	if err != nil {
		s.logger.Error("failed to fetch guests", "wlan_id", wlanID, "error", err)
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"guests":  guests,
	})
}

func (s *Server) handleAuthorizeGuest(w http.ResponseWriter, r *http.Request) {
	siteID := r.PathValue("site_id")
	wlanID := r.PathValue("wlan_id")

	var req guest.AuthorizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid JSON: "+err.Error())
		return
	}
	if req.Mac == "" {
		WriteError(w, http.StatusBadRequest, "MAC address is required")
		return
	}

	g, err := s.svc.Authorize(r.Context(), siteID, wlanID, req)
	if err != nil {
		s.logger.Warn("failed to authorize guest", "mac", req.Mac, "error", err)
		WriteError(w, errorStatus(err), err.Error())
		return
	}
	s.logger.Info("authorized guest", "mac", g.Mac, "wlan_id", wlanID)
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"guest":   g,
	})
}

func (s *Server) handleUpdateGuest(w http.ResponseWriter, r *http.Request) {
	siteID := r.PathValue("site_id")
	wlanID := r.PathValue("wlan_id")
	mac := r.PathValue("mac")

	var req guest.UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid JSON: "+err.Error())
		return
	}

	g, err := s.svc.Update(r.Context(), siteID, wlanID, mac, req)
	if err != nil {
		s.logger.Warn("failed to update guest", "mac", mac, "error", err)
		WriteError(w, errorStatus(err), err.Error())
		return
	}
	s.logger.Info("updated guest", "mac", g.Mac, "wlan_id", wlanID)
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"guest":   g,
	})
}

func (s *Server) handleRevokeGuest(w http.ResponseWriter, r *http.Request) {
	siteID := r.PathValue("site_id")
	wlanID := r.PathValue("wlan_id")
	mac := r.PathValue("mac")

	if err := s.svc.Revoke(r.Context(), siteID, wlanID, mac); err != nil {
		s.logger.Warn("failed to revoke guest", "mac", mac, "error", err)
		WriteError(w, errorStatus(err), err.Error())
		return
	}
	s.logger.Info("revoked guest", "mac", mac, "wlan_id", wlanID)
	WriteJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

func (s *Server) handleSearchClients(w http.ResponseWriter, r *http.Request) {
	siteID := r.PathValue("site_id")
	query := r.URL.Query().Get("query")

	clients, err := s.svc.SearchClients(r.Context(), siteID, query)
	if err != nil {
		s.logger.Error("failed to search clients", "site_id", siteID, "error", err)
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"clients": clients,
	})
}

// handleCSVTemplate serves an example CSV for the bulk importer. The
// header names double as documentation for the expected columns.
func (s *Server) handleCSVTemplate(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename=guest_import_template.csv")

	writer := csv.NewWriter(w)
	rows := [][]string{
		{"site_name", "ssid", "mac", "name", "email", "company", "field1", "field2", "field3_sponsor_email", "minutes"},
		{"Main Office", "Guest-WiFi", "AA:BB:CC:DD:EE:FF", "John Smith", "john.smith@example.com", "Acme Corp", "Badge #12345", "Building A", "sponsor@company.com", "1440"},
		{"Branch Office", "Visitor-Network", "11:22:33:44:55:66", "Jane Doe", "jane.doe@example.com", "Partner Inc", "", "", "host@company.com", "480"},
	}
	for _, row := range rows {
		if err := writer.Write(row); err != nil {
			s.logger.Error("failed to write CSV template", "error", err)
			return
		}
	}
	writer.Flush()
}

func (s *Server) handleSiteWLANMap(w http.ResponseWriter, r *http.Request) {
	m, err := s.svc.SiteWLANMap(r.Context())
	if err != nil {
		s.logger.Error("failed to build sites/WLANs map", "error", err)
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"map":     m,
	})
}

// bulkImportRequest is one resolved row of the CSV importer. The UI
// resolves site and WLAN names through /api/sites-wlans-map and calls
// this endpoint once per row.
type bulkImportRequest struct {
	SiteID string `json:"site_id"`
	WlanID string `json:"wlan_id"`
	guest.AuthorizeRequest
}

func (s *Server) handleBulkImport(w http.ResponseWriter, r *http.Request) {
	var req bulkImportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid JSON: "+err.Error())
		return
	}
	if req.SiteID == "" {
		WriteError(w, http.StatusBadRequest, "Site not found")
		return
	}
	if req.WlanID == "" {
		WriteError(w, http.StatusBadRequest, "WLAN not found")
		return
	}
	if req.Mac == "" {
		WriteError(w, http.StatusBadRequest, "MAC address is required")
		return
	}

	g, err := s.svc.Authorize(r.Context(), req.SiteID, req.WlanID, req.AuthorizeRequest)
	if err != nil {
		s.logger.Warn("bulk import row failed", "mac", req.Mac, "error", err)
		WriteError(w, errorStatus(err), err.Error())
		return
	}
	s.logger.Info("bulk import authorized guest", "mac", g.Mac)
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"guest":   g,
	})
}
