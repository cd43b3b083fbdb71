package mist

// Self describes the API token used for authentication, as returned by
// GET /api/v1/self. The token's display name feeds the audit trail.
type Self struct {
	Name       string      `json:"name"`
	Email      string      `json:"email"`
	Privileges []Privilege `json:"privileges"`
}

// Privilege is one scope the API token can act within.
type Privilege struct {
	Scope string `json:"scope"`
	OrgID string `json:"org_id"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

// Org is a Mist organization.
type Org struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Site is a Mist site within an organization.
type Site struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Address     string `json:"address"`
	CountryCode string `json:"country_code"`
	Timezone    string `json:"timezone"`
}

// Portal holds the captive-portal section of a WLAN config.
type Portal struct {
	Enabled bool   `json:"enabled"`
	Auth    string `json:"auth"`
}

// AuthConfig holds the radio auth section of a WLAN config.
type AuthConfig struct {
	Type string `json:"type"`
}

// WLAN is a wireless network configuration, either site-scoped or
// org-scoped (via templates).
type WLAN struct {
	ID           string      `json:"id"`
	SSID         string      `json:"ssid"`
	Enabled      *bool       `json:"enabled"` // vendor omits when true
	Portal       *Portal     `json:"portal"`
	Auth         *AuthConfig `json:"auth"`
	TemplateID   string      `json:"template_id"`
	ApplyTo      string      `json:"apply_to"`
	SiteIDs      []string    `json:"site_ids"`
	SitegroupIDs []string    `json:"sitegroup_ids"`
}

// IsEnabled reports whether the WLAN is enabled. The vendor treats a
// missing field as enabled.
func (w *WLAN) IsEnabled() bool {
	return w.Enabled == nil || *w.Enabled
}

// HasGuestPortal reports whether the WLAN has a captive portal enabled,
// which is the marker for guest pre-authorization capability.
func (w *WLAN) HasGuestPortal() bool {
	return w.Portal != nil && w.Portal.Enabled
}

// Template is an org WLAN template; Applies maps it to sites.
type Template struct {
	ID      string           `json:"id"`
	Name    string           `json:"name"`
	Applies *TemplateApplies `json:"applies"`
}

// TemplateApplies lists the sites and sitegroups a template covers.
type TemplateApplies struct {
	SiteIDs      []string `json:"site_ids"`
	SitegroupIDs []string `json:"sitegroup_ids"`
}

// SiteGroup is a named set of sites.
type SiteGroup struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	SiteIDs []string `json:"site_ids"`
}

// GuestAuthorization is a guest record as returned by the vendor.
type GuestAuthorization struct {
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
	AuthMethod             string `json:"auth_method"`
	SSID                   string `json:"ssid"`
	WlanID                 string `json:"wlan_id"`
}

// GuestUpsert is the PUT body for creating or updating a guest
// authorization. Pointer fields are omitted when nil so partial updates
// only touch the provided fields; Minutes must stay a pointer because an
// explicit zero is the revocation workaround.
type GuestUpsert struct {
	Mac        string  `json:"mac,omitempty"`
	Minutes    *int    `json:"minutes,omitempty"`
	Authorized *bool   `json:"authorized,omitempty"`
	Name       *string `json:"name,omitempty"`
	Email      *string `json:"email,omitempty"`
	Company    *string `json:"company,omitempty"`
	Field1     *string `json:"field1,omitempty"`
	Field2     *string `json:"field2,omitempty"`
	Field3     *string `json:"field3,omitempty"`
	Field4     *string `json:"field4,omitempty"`
	Notify     *bool   `json:"notify,omitempty"`
	WlanID     string  `json:"wlan_id,omitempty"`
}

// ClientStat is one connected wireless client from the site stats endpoint.
type ClientStat struct {
	Mac         string `json:"mac"`
	Hostname    string `json:"hostname"`
	IP          string `json:"ip"`
	SSID        string `json:"ssid"`
	ApMac       string `json:"ap_mac"`
	Band        string `json:"band"`
	RSSI        int    `json:"rssi"`
	OS          string `json:"os"`
	Manufacture string `json:"manufacture"`
}
