// Package guest implements the guest pre-authorization workflows on top of
// the Mist API client: site and WLAN discovery, listing, authorizing,
// updating and revoking guest devices, and connected-client search.
package guest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/mistops/guestgate/internal/clock"
	"github.com/mistops/guestgate/internal/logging"
	"github.com/mistops/guestgate/internal/metrics"
	"github.com/mistops/guestgate/internal/mist"
)

// DefaultMinutes is the authorization duration applied when the caller
// does not specify one (24 hours).
const DefaultMinutes = 1440

// API is the slice of the Mist client the service depends on. Tests
// substitute a fake.
type API interface {
	GetSelf(ctx context.Context) (*mist.Self, error)
	GetOrg(ctx context.Context, orgID string) (*mist.Org, error)
	ListSites(ctx context.Context, orgID string) ([]mist.Site, error)
	ListOrgWLANs(ctx context.Context, orgID string) ([]mist.WLAN, error)
	ListSiteWLANs(ctx context.Context, siteID string) ([]mist.WLAN, error)
	GetTemplate(ctx context.Context, orgID, templateID string) (*mist.Template, error)
	GetSiteGroup(ctx context.Context, orgID, sitegroupID string) (*mist.SiteGroup, error)
	ListSiteGuests(ctx context.Context, siteID, wlanID string) ([]mist.GuestAuthorization, error)
	ListOrgGuests(ctx context.Context, orgID string) ([]mist.GuestAuthorization, error)
	UpsertSiteGuest(ctx context.Context, siteID, mac string, body *mist.GuestUpsert) error
	UpsertOrgGuest(ctx context.Context, orgID, mac string, body *mist.GuestUpsert) error
	ListClientStats(ctx context.Context, siteID string) ([]mist.ClientStat, error)
}

// Service owns the org context and implements the console operations.
type Service struct {
	api    API
	logger *logging.Logger
	clock  clock.Clock

	mu        sync.Mutex
	orgID     string
	tokenName string
}

// NewService creates a Service. orgID may be empty, in which case the
// organization is discovered from the token's first privilege on first use.
func NewService(api API, orgID string, logger *logging.Logger, clk clock.Clock) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	if clk == nil {
		clk = &clock.RealClock{}
	}
	return &Service{
		api:    api,
		logger: logger.WithComponent("guest"),
		clock:  clk,
		orgID:  orgID,
	}
}

// ConnectionInfo is the result of a connection test.
type ConnectionInfo struct {
	OrgName string `json:"org_name"`
	OrgID   string `json:"org_id"`
}

// TestConnection verifies the API token works and resolves the
// organization. With no configured org ID, the token's first org
// privilege wins.
func (s *Service) TestConnection(ctx context.Context) (*ConnectionInfo, error) {
	s.mu.Lock()
	orgID := s.orgID
	s.mu.Unlock()

	if orgID != "" {
		org, err := s.api.GetOrg(ctx, orgID)
		if err != nil {
			return nil, err
		}
		name := org.Name
		if name == "" {
			name = "Unknown"
		}
		return &ConnectionInfo{OrgName: name, OrgID: orgID}, nil
	}

	self, err := s.api.GetSelf(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range self.Privileges {
		if p.OrgID == "" {
			continue
		}
		s.mu.Lock()
		s.orgID = p.OrgID
		s.mu.Unlock()
		name := p.Name
		if name == "" {
			name = "Unknown"
		}
		return &ConnectionInfo{OrgName: name, OrgID: p.OrgID}, nil
	}
	return nil, mist.ErrNoOrg
}

// ensureOrg returns the org ID, discovering it when not yet known.
func (s *Service) ensureOrg(ctx context.Context) (string, error) {
	s.mu.Lock()
	orgID := s.orgID
	s.mu.Unlock()
	if orgID != "" {
		return orgID, nil
	}

	if _, err := s.TestConnection(ctx); err != nil {
		return "", fmt.Errorf("could not determine organization ID: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.orgID, nil
}

// TokenName returns the API token's display name, memoized for the
// lifetime of the service. Failures degrade to a placeholder so writes
// still carry something in the operator field.
func (s *Service) TokenName(ctx context.Context) string {
	s.mu.Lock()
	name := s.tokenName
	s.mu.Unlock()
	if name != "" {
		return name
	}

	self, err := s.api.GetSelf(ctx)
	if err != nil || self.Name == "" {
		s.logger.Warn("could not get token name", "error", err)
		return "Unknown Token"
	}
	s.mu.Lock()
	s.tokenName = self.Name
	s.mu.Unlock()
	return self.Name
}

// SiteInfo is a site as shown in the console.
type SiteInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Address     string `json:"address"`
	CountryCode string `json:"country_code"`
	Timezone    string `json:"timezone"`
}

// Sites returns the org's sites sorted by name. With filterGuestWLANs
// set, only sites reachable by at least one enabled guest-portal WLAN
// are returned. The filter works entirely from org-level data (org
// WLANs, their templates and sitegroups) so it never fans out into
// per-site WLAN queries.
func (s *Service) Sites(ctx context.Context, filterGuestWLANs bool) ([]SiteInfo, error) {
	orgID, err := s.ensureOrg(ctx)
	if err != nil {
		return nil, err
	}

	sites, err := s.api.ListSites(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch sites: %w", err)
	}
	sort.Slice(sites, func(i, j int) bool {
		return strings.ToLower(sites[i].Name) < strings.ToLower(sites[j].Name)
	})

	if !filterGuestWLANs {
		return sitesToInfo(sites, nil), nil
	}

	guestSites := s.sitesWithGuestWLANs(ctx, orgID, sites)
	result := sitesToInfo(sites, guestSites)
	s.logger.Info("filtered sites with guest WLANs", "matched", len(result), "total", len(sites))
	return result, nil
}

func sitesToInfo(sites []mist.Site, keep map[string]bool) []SiteInfo {
	out := make([]SiteInfo, 0, len(sites))
	for _, site := range sites {
		if keep != nil && !keep[site.ID] {
			continue
		}
		name := site.Name
		if name == "" {
			name = "Unknown"
		}
		out = append(out, SiteInfo{
			ID:          site.ID,
			Name:        name,
			Address:     site.Address,
			CountryCode: site.CountryCode,
			Timezone:    site.Timezone,
		})
	}
	return out
}

// sitesWithGuestWLANs resolves which site IDs have an enabled guest-portal
// WLAN. Template and sitegroup lookups are cached for the duration of the
// call; lookup failures are tolerated and only narrow the result.
func (s *Service) sitesWithGuestWLANs(ctx context.Context, orgID string, sites []mist.Site) map[string]bool {
	matched := make(map[string]bool)

	orgWLANs, err := s.api.ListOrgWLANs(ctx, orgID)
	if err != nil {
		s.logger.Warn("could not fetch org WLANs for filtering", "error", err)
		return matched
	}

	templateCache := make(map[string]*mist.Template)
	sitegroupCache := make(map[string][]string)

	resolveSitegroup := func(sitegroupID string) []string {
		if ids, ok := sitegroupCache[sitegroupID]; ok {
			return ids
		}
		sg, err := s.api.GetSiteGroup(ctx, orgID, sitegroupID)
		if err != nil {
			s.logger.Debug("could not fetch sitegroup", "sitegroup_id", sitegroupID, "error", err)
			sitegroupCache[sitegroupID] = nil
			return nil
		}
		sitegroupCache[sitegroupID] = sg.SiteIDs
		return sg.SiteIDs
	}

	for i := range orgWLANs {
		wlan := &orgWLANs[i]
		if !wlan.HasGuestPortal() || !wlan.IsEnabled() {
			continue
		}

		if wlan.TemplateID != "" {
			tmpl, ok := templateCache[wlan.TemplateID]
			if !ok {
				var err error
				tmpl, err = s.api.GetTemplate(ctx, orgID, wlan.TemplateID)
				if err != nil {
					s.logger.Debug("could not fetch template", "template_id", wlan.TemplateID, "error", err)
					tmpl = nil
				}
				templateCache[wlan.TemplateID] = tmpl
			}
			if tmpl == nil || tmpl.Applies == nil {
				continue
			}
			for _, siteID := range tmpl.Applies.SiteIDs {
				matched[siteID] = true
			}
			for _, sitegroupID := range tmpl.Applies.SitegroupIDs {
				for _, siteID := range resolveSitegroup(sitegroupID) {
					matched[siteID] = true
				}
			}
			continue
		}

		if wlan.ApplyTo == "all" {
			for _, site := range sites {
				matched[site.ID] = true
			}
			continue
		}
		for _, siteID := range wlan.SiteIDs {
			matched[siteID] = true
		}
		for _, sitegroupID := range wlan.SitegroupIDs {
			for _, siteID := range resolveSitegroup(sitegroupID) {
				matched[siteID] = true
			}
		}
	}

	return matched
}

// WLANInfo is a guest WLAN as shown in the console.
type WLANInfo struct {
	ID            string `json:"id"`
	SSID          string `json:"ssid"`
	Enabled       bool   `json:"enabled"`
	AuthType      string `json:"auth_type"`
	PortalEnabled bool   `json:"portal_enabled"`
	PortalAuth    string `json:"portal_auth"`
	OrgLevel      bool   `json:"org_level"`
}

// GuestWLANs returns the enabled guest-portal WLANs visible to a site,
// merging site-level and org-level definitions. Site-level wins on ID
// collisions. Either listing may fail without failing the whole call.
func (s *Service) GuestWLANs(ctx context.Context, siteID string) ([]WLANInfo, error) {
	orgID, err := s.ensureOrg(ctx)
	if err != nil {
		return nil, err
	}

	siteWLANs, err := s.api.ListSiteWLANs(ctx, siteID)
	if err != nil {
		s.logger.Debug("could not fetch site WLANs", "site_id", siteID, "error", err)
	}
	orgWLANs, err := s.api.ListOrgWLANs(ctx, orgID)
	if err != nil {
		s.logger.Debug("could not fetch org WLANs", "error", err)
	}

	seen := make(map[string]bool)
	var result []WLANInfo

	appendWLANs := func(wlans []mist.WLAN, orgLevel bool) {
		for i := range wlans {
			wlan := &wlans[i]
			if seen[wlan.ID] {
				continue
			}
			seen[wlan.ID] = true

			if !wlan.IsEnabled() || !wlan.HasGuestPortal() {
				continue
			}
			ssid := wlan.SSID
			if ssid == "" {
				ssid = "Unknown"
			}
			info := WLANInfo{
				ID:            wlan.ID,
				SSID:          ssid,
				Enabled:       true,
				PortalEnabled: true,
				PortalAuth:    "none",
				OrgLevel:      orgLevel,
			}
			if wlan.Auth != nil {
				info.AuthType = wlan.Auth.Type
			}
			if wlan.Portal.Auth != "" {
				info.PortalAuth = wlan.Portal.Auth
			}
			result = append(result, info)
		}
	}
	appendWLANs(siteWLANs, false)
	appendWLANs(orgWLANs, true)

	sort.Slice(result, func(i, j int) bool {
		return strings.ToLower(result[i].SSID) < strings.ToLower(result[j].SSID)
	})
	return result, nil
}

// Guest is one authorization record as shown in the console, with the
// derived expiry fields.
type Guest struct {
	Mac                    string `json:"mac"`
	Name                   string `json:"name"`
	Email                  string `json:"email"`
	Company                string `json:"company"`
	Field1                 string `json:"field1"`
	Field2                 string `json:"field2"`
	Field3                 string `json:"field3"`
	Field4                 string `json:"field4"`
	AuthorizedTime         int64  `json:"authorized_time"`
	AuthorizedExpiringTime int64  `json:"authorized_expiring_time"`
	RemainingMinutes       int64  `json:"remaining_minutes"`
	IsExpired              bool   `json:"is_expired"`
	AuthMethod             string `json:"auth_method"`
	SSID                   string `json:"ssid"`
	WlanID                 string `json:"wlan_id"`
}

// Guests returns the authorizations for a WLAN, active first. When the
// site-level listing fails it falls back to the org-level one; guests
// on org WLANs often only appear there.
func (s *Service) Guests(ctx context.Context, siteID, wlanID string) ([]Guest, error) {
	records, err := s.api.ListSiteGuests(ctx, siteID, wlanID)
	if err != nil {
		s.logger.Debug("could not fetch guests from site endpoint", "site_id", siteID, "error", err)
		orgID, orgErr := s.ensureOrg(ctx)
		if orgErr != nil {
			return nil, orgErr
		}
		records, err = s.api.ListOrgGuests(ctx, orgID)
		if err != nil {
			s.logger.Debug("could not fetch guests from org endpoint", "error", err)
			records = nil
		}
	}

	now := s.clock.Now().Unix()
	guests := make([]Guest, 0, len(records))
	for _, rec := range records {
		g := Guest{
			Mac:                    rec.Mac,
			Name:                   rec.Name,
			Email:                  rec.Email,
			Company:                rec.Company,
			Field1:                 rec.Field1,
			Field2:                 rec.Field2,
			Field3:                 rec.Field3,
			Field4:                 rec.Field4,
			AuthorizedTime:         rec.AuthorizedTime,
			AuthorizedExpiringTime: rec.AuthorizedExpiringTime,
			IsExpired:              true,
			AuthMethod:             rec.AuthMethod,
			SSID:                   rec.SSID,
			WlanID:                 rec.WlanID,
		}
		if g.AuthMethod == "" {
			g.AuthMethod = "manual"
		}
		if g.WlanID == "" {
			g.WlanID = wlanID
		}
		if rec.AuthorizedExpiringTime > now {
			g.RemainingMinutes = (rec.AuthorizedExpiringTime - now) / 60
			g.IsExpired = false
		}
		guests = append(guests, g)
	}

	sort.SliceStable(guests, func(i, j int) bool {
		if guests[i].IsExpired != guests[j].IsExpired {
			return !guests[i].IsExpired
		}
		return guests[i].AuthorizedExpiringTime > guests[j].AuthorizedExpiringTime
	})
	return guests, nil
}

// AuthorizeRequest carries the fields for a new guest authorization.
// Minutes of nil means the 24-hour default.
type AuthorizeRequest struct {
	Mac     string `json:"mac"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Company string `json:"company"`
	Field1  string `json:"field1"`
	Field2  string `json:"field2"`
	Field3  string `json:"field3"`
	Minutes *int   `json:"minutes"`
	Notify  bool   `json:"notify"`
}

// Authorize pre-authorizes a device on a WLAN. The operator field
// (field4) is always stamped with the API token's name so the audit
// trail shows who acted; any caller-supplied value is ignored. Falls
// back to the org-level endpoint when the site-level write fails.
func (s *Service) Authorize(ctx context.Context, siteID, wlanID string, req AuthorizeRequest) (*Guest, error) {
	mac, err := mist.NormalizeMAC(req.Mac)
	if err != nil {
		return nil, err
	}

	minutes := DefaultMinutes
	if req.Minutes != nil {
		minutes = *req.Minutes
	}
	authorized := true
	body := &mist.GuestUpsert{
		Mac:        mac,
		Minutes:    &minutes,
		Authorized: &authorized,
		WlanID:     wlanID,
	}
	setIfNotEmpty(&body.Name, req.Name)
	setIfNotEmpty(&body.Email, req.Email)
	setIfNotEmpty(&body.Company, req.Company)
	setIfNotEmpty(&body.Field1, req.Field1)
	setIfNotEmpty(&body.Field2, req.Field2)
	setIfNotEmpty(&body.Field3, req.Field3)
	tokenName := s.TokenName(ctx)
	body.Field4 = &tokenName
	if req.Notify {
		body.Notify = &req.Notify
	}

	if err := s.upsertWithFallback(ctx, siteID, mac, body, "authorize"); err != nil {
		metrics.Get().GuestOperations.WithLabelValues("authorize", "error").Inc()
		return nil, err
	}
	metrics.Get().GuestOperations.WithLabelValues("authorize", "success").Inc()
	s.logger.Audit("authorize", "guest:"+mac, map[string]any{
		"site_id": siteID,
		"wlan_id": wlanID,
		"minutes": minutes,
	})

	now := s.clock.Now().Unix()
	return &Guest{
		Mac:                    mac,
		Name:                   req.Name,
		Email:                  req.Email,
		Company:                req.Company,
		AuthorizedTime:         now,
		AuthorizedExpiringTime: now + int64(minutes)*60,
		RemainingMinutes:       int64(minutes),
		IsExpired:              false,
		WlanID:                 wlanID,
	}, nil
}

// UpdateRequest carries a partial update; nil fields are left untouched.
type UpdateRequest struct {
	Name    *string `json:"name"`
	Email   *string `json:"email"`
	Company *string `json:"company"`
	Field1  *string `json:"field1"`
	Field2  *string `json:"field2"`
	Field3  *string `json:"field3"`
	Minutes *int    `json:"minutes"`
}

// Update modifies an existing guest authorization. Only the provided
// fields are sent; field4 is re-stamped with the token name on every
// update, same as Authorize.
func (s *Service) Update(ctx context.Context, siteID, wlanID, rawMAC string, req UpdateRequest) (*Guest, error) {
	mac, err := mist.NormalizeMAC(rawMAC)
	if err != nil {
		return nil, err
	}

	body := &mist.GuestUpsert{
		Name:    req.Name,
		Email:   req.Email,
		Company: req.Company,
		Field1:  req.Field1,
		Field2:  req.Field2,
		Field3:  req.Field3,
		Minutes: req.Minutes,
	}
	tokenName := s.TokenName(ctx)
	body.Field4 = &tokenName

	if err := s.upsertWithFallback(ctx, siteID, mac, body, "update"); err != nil {
		metrics.Get().GuestOperations.WithLabelValues("update", "error").Inc()
		return nil, err
	}
	metrics.Get().GuestOperations.WithLabelValues("update", "success").Inc()
	s.logger.Audit("update", "guest:"+mac, map[string]any{
		"site_id": siteID,
		"wlan_id": wlanID,
	})

	minutes := DefaultMinutes
	if req.Minutes != nil {
		minutes = *req.Minutes
	}
	now := s.clock.Now().Unix()
	g := &Guest{
		Mac:                    mac,
		AuthorizedTime:         now,
		AuthorizedExpiringTime: now + int64(minutes)*60,
		RemainingMinutes:       int64(minutes),
		IsExpired:              false,
		WlanID:                 wlanID,
	}
	if req.Name != nil {
		g.Name = *req.Name
	}
	if req.Email != nil {
		g.Email = *req.Email
	}
	if req.Company != nil {
		g.Company = *req.Company
	}
	return g, nil
}

// Revoke expires a guest authorization immediately by writing
// minutes=0. The vendor's DELETE endpoint is unreliable for guests on
// org-level WLANs, so expiry-by-update is used instead.
func (s *Service) Revoke(ctx context.Context, siteID, wlanID, rawMAC string) error {
	mac, err := mist.NormalizeMAC(rawMAC)
	if err != nil {
		return err
	}

	s.logger.Info("deauthorizing guest by setting minutes=0", "mac", mac, "site_id", siteID)
	zero := 0
	if err := s.api.UpsertSiteGuest(ctx, siteID, mac, &mist.GuestUpsert{Minutes: &zero}); err != nil {
		metrics.Get().GuestOperations.WithLabelValues("revoke", "error").Inc()
		return err
	}
	metrics.Get().GuestOperations.WithLabelValues("revoke", "success").Inc()
	s.logger.Audit("revoke", "guest:"+mac, map[string]any{
		"site_id": siteID,
		"wlan_id": wlanID,
	})
	return nil
}

// upsertWithFallback writes a guest at the site level and retries at
// the org level when that fails.
func (s *Service) upsertWithFallback(ctx context.Context, siteID, mac string, body *mist.GuestUpsert, action string) error {
	siteErr := s.api.UpsertSiteGuest(ctx, siteID, mac, body)
	if siteErr == nil {
		return nil
	}
	s.logger.Warn("site-level guest write failed, trying org level", "action", action, "mac", mac, "error", siteErr)

	orgID, err := s.ensureOrg(ctx)
	if err != nil {
		return siteErr
	}
	if err := s.api.UpsertOrgGuest(ctx, orgID, mac, body); err != nil {
		return fmt.Errorf("%s failed: %w", action, err)
	}
	return nil
}

// ClientInfo is a connected wireless client as shown in the search UI.
type ClientInfo struct {
	Mac         string `json:"mac"`
	Hostname    string `json:"hostname"`
	IP          string `json:"ip"`
	SSID        string `json:"ssid"`
	ApMac       string `json:"ap_mac"`
	Band        string `json:"band"`
	RSSI        int    `json:"rssi"`
	OS          string `json:"os"`
	Manufacture string `json:"manufacture"`
	IsConnected bool   `json:"is_connected"`
}

// SearchClients returns currently connected wireless clients for a
// site, optionally filtered by a substring match against MAC, hostname,
// IP and SSID.
func (s *Service) SearchClients(ctx context.Context, siteID, query string) ([]ClientInfo, error) {
	stats, err := s.api.ListClientStats(ctx, siteID)
	if err != nil {
		s.logger.Debug("could not fetch wireless client stats", "site_id", siteID, "error", err)
		stats = nil
	}

	query = strings.ToLower(query)
	clients := make([]ClientInfo, 0, len(stats))
	for _, c := range stats {
		if query != "" {
			searchable := strings.ToLower(c.Mac + " " + c.Hostname + " " + c.IP + " " + c.SSID)
			if !strings.Contains(searchable, query) {
				continue
			}
		}
		clients = append(clients, ClientInfo{
			Mac:         c.Mac,
			Hostname:    c.Hostname,
			IP:          c.IP,
			SSID:        c.SSID,
			ApMac:       c.ApMac,
			Band:        c.Band,
			RSSI:        c.RSSI,
			OS:          c.OS,
			Manufacture: c.Manufacture,
			IsConnected: true,
		})
	}

	sort.Slice(clients, func(i, j int) bool {
		return strings.ToLower(sortKey(clients[i])) < strings.ToLower(sortKey(clients[j]))
	})
	return clients, nil
}

func sortKey(c ClientInfo) string {
	if c.Hostname != "" {
		return c.Hostname
	}
	return c.Mac
}

// SiteWLANEntry maps one site to its guest WLANs by SSID.
type SiteWLANEntry struct {
	ID    string            `json:"id"`
	WLANs map[string]string `json:"wlans"`
}

// SiteWLANMap builds a lookup from lowercased site name to site ID and
// lowercased SSID to WLAN ID. The bulk CSV import resolves its
// human-readable columns through this map.
func (s *Service) SiteWLANMap(ctx context.Context) (map[string]SiteWLANEntry, error) {
	sites, err := s.Sites(ctx, true)
	if err != nil {
		return nil, err
	}

	result := make(map[string]SiteWLANEntry, len(sites))
	for _, site := range sites {
		name := strings.ToLower(strings.TrimSpace(site.Name))
		if name == "" || site.ID == "" {
			continue
		}
		wlans, err := s.GuestWLANs(ctx, site.ID)
		if err != nil {
			return nil, err
		}
		wlanMap := make(map[string]string, len(wlans))
		for _, w := range wlans {
			ssid := strings.ToLower(strings.TrimSpace(w.SSID))
			if ssid != "" && w.ID != "" {
				wlanMap[ssid] = w.ID
			}
		}
		result[name] = SiteWLANEntry{ID: site.ID, WLANs: wlanMap}
	}
	return result, nil
}

func setIfNotEmpty(dst **string, v string) {
	if v != "" {
		s := v
		*dst = &s
	}
}
