package guest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mistops/guestgate/internal/clock"
	"github.com/mistops/guestgate/internal/logging"
	"github.com/mistops/guestgate/internal/mist"
)

// fakeAPI implements API with canned data and records writes.
type fakeAPI struct {
	self       *mist.Self
	org        *mist.Org
	sites      []mist.Site
	orgWLANs   []mist.WLAN
	siteWLANs  map[string][]mist.WLAN
	templates  map[string]*mist.Template
	sitegroups map[string]*mist.SiteGroup
	siteGuests []mist.GuestAuthorization
	orgGuests  []mist.GuestAuthorization
	stats      []mist.ClientStat

	siteGuestsErr error
	siteUpsertErr error
	orgUpsertErr  error

	siteUpserts []upsertCall
	orgUpserts  []upsertCall
	selfCalls   int
}

type upsertCall struct {
	scopeID string
	mac     string
	body    *mist.GuestUpsert
}

func (f *fakeAPI) GetSelf(ctx context.Context) (*mist.Self, error) {
	f.selfCalls++
	if f.self == nil {
		return nil, errors.New("no self")
	}
	return f.self, nil
}

func (f *fakeAPI) GetOrg(ctx context.Context, orgID string) (*mist.Org, error) {
	if f.org == nil {
		return nil, errors.New("no org")
	}
	return f.org, nil
}

func (f *fakeAPI) ListSites(ctx context.Context, orgID string) ([]mist.Site, error) {
	return f.sites, nil
}

func (f *fakeAPI) ListOrgWLANs(ctx context.Context, orgID string) ([]mist.WLAN, error) {
	return f.orgWLANs, nil
}

func (f *fakeAPI) ListSiteWLANs(ctx context.Context, siteID string) ([]mist.WLAN, error) {
	return f.siteWLANs[siteID], nil
}

func (f *fakeAPI) GetTemplate(ctx context.Context, orgID, templateID string) (*mist.Template, error) {
	if t, ok := f.templates[templateID]; ok {
		return t, nil
	}
	return nil, errors.New("template not found")
}

func (f *fakeAPI) GetSiteGroup(ctx context.Context, orgID, sitegroupID string) (*mist.SiteGroup, error) {
	if sg, ok := f.sitegroups[sitegroupID]; ok {
		return sg, nil
	}
	return nil, errors.New("sitegroup not found")
}

func (f *fakeAPI) ListSiteGuests(ctx context.Context, siteID, wlanID string) ([]mist.GuestAuthorization, error) {
	if f.siteGuestsErr != nil {
		return nil, f.siteGuestsErr
	}
	return f.siteGuests, nil
}

func (f *fakeAPI) ListOrgGuests(ctx context.Context, orgID string) ([]mist.GuestAuthorization, error) {
	return f.orgGuests, nil
}

func (f *fakeAPI) UpsertSiteGuest(ctx context.Context, siteID, mac string, body *mist.GuestUpsert) error {
	f.siteUpserts = append(f.siteUpserts, upsertCall{siteID, mac, body})
	return f.siteUpsertErr
}

func (f *fakeAPI) UpsertOrgGuest(ctx context.Context, orgID, mac string, body *mist.GuestUpsert) error {
	f.orgUpserts = append(f.orgUpserts, upsertCall{orgID, mac, body})
	return f.orgUpsertErr
}

func (f *fakeAPI) ListClientStats(ctx context.Context, siteID string) ([]mist.ClientStat, error) {
	return f.stats, nil
}

func boolPtr(b bool) *bool      { return &b }
func intPtr(i int) *int         { return &i }
func strPtr(s string) *string   { return &s }
func guestPortal() *mist.Portal { return &mist.Portal{Enabled: true, Auth: "none"} }

func testLogger() *logging.Logger {
	return logging.New(logging.DefaultConfig())
}

func newTestService(api API, orgID string) (*Service, *clock.MockClock) {
	clk := clock.NewMockClock(time.Unix(1_700_000_000, 0))
	return NewService(api, orgID, testLogger(), clk), clk
}

func TestTestConnectionWithOrgID(t *testing.T) {
	api := &fakeAPI{org: &mist.Org{ID: "org-1", Name: "Acme"}}
	svc, _ := newTestService(api, "org-1")

	info, err := svc.TestConnection(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Acme", info.OrgName)
	assert.Equal(t, "org-1", info.OrgID)
}

func TestTestConnectionDiscoversOrg(t *testing.T) {
	api := &fakeAPI{self: &mist.Self{
		Name: "tok",
		Privileges: []mist.Privilege{
			{Scope: "msp"},
			{Scope: "org", OrgID: "org-9", Name: "Discovered"},
		},
	}}
	svc, _ := newTestService(api, "")

	info, err := svc.TestConnection(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "org-9", info.OrgID)
	assert.Equal(t, "Discovered", info.OrgName)

	// The discovered org must stick for later calls.
	orgID, err := svc.ensureOrg(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "org-9", orgID)
}

func TestTestConnectionNoPrivileges(t *testing.T) {
	api := &fakeAPI{self: &mist.Self{Name: "tok"}}
	svc, _ := newTestService(api, "")

	_, err := svc.TestConnection(context.Background())
	assert.ErrorIs(t, err, mist.ErrNoOrg)
}

func TestTokenNameMemoized(t *testing.T) {
	api := &fakeAPI{self: &mist.Self{Name: "automation"}}
	svc, _ := newTestService(api, "org-1")

	assert.Equal(t, "automation", svc.TokenName(context.Background()))
	assert.Equal(t, "automation", svc.TokenName(context.Background()))
	assert.Equal(t, 1, api.selfCalls)
}

func TestTokenNameFallback(t *testing.T) {
	svc, _ := newTestService(&fakeAPI{}, "org-1")
	assert.Equal(t, "Unknown Token", svc.TokenName(context.Background()))
}

func TestSitesUnfilteredSortedByName(t *testing.T) {
	api := &fakeAPI{sites: []mist.Site{
		{ID: "s2", Name: "zeta"},
		{ID: "s1", Name: "Alpha"},
	}}
	svc, _ := newTestService(api, "org-1")

	sites, err := svc.Sites(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, sites, 2)
	assert.Equal(t, "Alpha", sites[0].Name)
	assert.Equal(t, "zeta", sites[1].Name)
}

func TestSitesGuestWLANFiltering(t *testing.T) {
	api := &fakeAPI{
		sites: []mist.Site{
			{ID: "s1", Name: "Branch"},
			{ID: "s2", Name: "HQ"},
			{ID: "s3", Name: "Lab"},
		},
		orgWLANs: []mist.WLAN{
			// Guest WLAN assigned via template to s1 directly and to s2
			// through a sitegroup.
			{ID: "w1", SSID: "Guest", Portal: guestPortal(), TemplateID: "t1"},
			// Disabled guest WLAN must not count.
			{ID: "w2", SSID: "Old-Guest", Portal: guestPortal(), Enabled: boolPtr(false), SiteIDs: []string{"s3"}},
			// Non-portal WLAN must not count.
			{ID: "w3", SSID: "Corp", SiteIDs: []string{"s3"}},
		},
		templates: map[string]*mist.Template{
			"t1": {ID: "t1", Applies: &mist.TemplateApplies{
				SiteIDs:      []string{"s1"},
				SitegroupIDs: []string{"sg1"},
			}},
		},
		sitegroups: map[string]*mist.SiteGroup{
			"sg1": {ID: "sg1", SiteIDs: []string{"s2"}},
		},
	}
	svc, _ := newTestService(api, "org-1")

	sites, err := svc.Sites(context.Background(), true)
	require.NoError(t, err)
	require.Len(t, sites, 2)
	assert.Equal(t, "s1", sites[0].ID)
	assert.Equal(t, "s2", sites[1].ID)
}

func TestSitesApplyToAll(t *testing.T) {
	api := &fakeAPI{
		sites: []mist.Site{{ID: "s1", Name: "A"}, {ID: "s2", Name: "B"}},
		orgWLANs: []mist.WLAN{
			{ID: "w1", SSID: "Guest", Portal: guestPortal(), ApplyTo: "all"},
		},
	}
	svc, _ := newTestService(api, "org-1")

	sites, err := svc.Sites(context.Background(), true)
	require.NoError(t, err)
	assert.Len(t, sites, 2)
}

func TestGuestWLANsMergeAndSort(t *testing.T) {
	api := &fakeAPI{
		siteWLANs: map[string][]mist.WLAN{
			"s1": {
				{ID: "w1", SSID: "Zebra-Guest", Portal: guestPortal(), Auth: &mist.AuthConfig{Type: "open"}},
				{ID: "w3", SSID: "Corp"}, // no portal, dropped
			},
		},
		orgWLANs: []mist.WLAN{
			{ID: "w1", SSID: "Zebra-Guest", Portal: guestPortal()}, // duplicate, site wins
			{ID: "w2", SSID: "Acme-Guest", Portal: guestPortal()},
		},
	}
	svc, _ := newTestService(api, "org-1")

	wlans, err := svc.GuestWLANs(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, wlans, 2)
	assert.Equal(t, "Acme-Guest", wlans[0].SSID)
	assert.True(t, wlans[0].OrgLevel)
	assert.Equal(t, "Zebra-Guest", wlans[1].SSID)
	assert.False(t, wlans[1].OrgLevel, "site-level definition wins on ID collision")
	assert.Equal(t, "open", wlans[1].AuthType)
}

func TestGuestsRemainingAndSort(t *testing.T) {
	now := int64(1_700_000_000)
	api := &fakeAPI{siteGuests: []mist.GuestAuthorization{
		{Mac: "aa:aa:aa:aa:aa:aa", AuthorizedExpiringTime: now - 100},  // expired
		{Mac: "bb:bb:bb:bb:bb:bb", AuthorizedExpiringTime: now + 600},  // 10 min left
		{Mac: "cc:cc:cc:cc:cc:cc", AuthorizedExpiringTime: now + 7200}, // 2 h left
	}}
	svc, _ := newTestService(api, "org-1")

	guests, err := svc.Guests(context.Background(), "s1", "w1")
	require.NoError(t, err)
	require.Len(t, guests, 3)

	// Active guests first, longest-lived first, expired last.
	assert.Equal(t, "cc:cc:cc:cc:cc:cc", guests[0].Mac)
	assert.Equal(t, int64(120), guests[0].RemainingMinutes)
	assert.False(t, guests[0].IsExpired)

	assert.Equal(t, "bb:bb:bb:bb:bb:bb", guests[1].Mac)
	assert.Equal(t, int64(10), guests[1].RemainingMinutes)

	assert.Equal(t, "aa:aa:aa:aa:aa:aa", guests[2].Mac)
	assert.True(t, guests[2].IsExpired)
	assert.Equal(t, int64(0), guests[2].RemainingMinutes)
	assert.Equal(t, "manual", guests[2].AuthMethod)
	assert.Equal(t, "w1", guests[2].WlanID)
}

func TestGuestsOrgFallback(t *testing.T) {
	api := &fakeAPI{
		siteGuestsErr: errors.New("403"),
		org:           &mist.Org{ID: "org-1", Name: "Acme"},
		orgGuests: []mist.GuestAuthorization{
			{Mac: "aa:bb:cc:dd:ee:ff", AuthorizedExpiringTime: 1_700_000_600},
		},
	}
	svc, _ := newTestService(api, "org-1")

	guests, err := svc.Guests(context.Background(), "s1", "w1")
	require.NoError(t, err)
	require.Len(t, guests, 1)
	assert.Equal(t, "aa:bb:cc:dd:ee:ff", guests[0].Mac)
}

func TestAuthorizeDefaults(t *testing.T) {
	api := &fakeAPI{self: &mist.Self{Name: "automation"}}
	svc, _ := newTestService(api, "org-1")

	guest, err := svc.Authorize(context.Background(), "s1", "w1", AuthorizeRequest{
		Mac:  "AA-BB-CC-DD-EE-FF",
		Name: "Printer",
	})
	require.NoError(t, err)
	assert.Equal(t, "aa:bb:cc:dd:ee:ff", guest.Mac)
	assert.Equal(t, int64(DefaultMinutes), guest.RemainingMinutes)
	assert.False(t, guest.IsExpired)
	assert.Equal(t, guest.AuthorizedTime+int64(DefaultMinutes)*60, guest.AuthorizedExpiringTime)

	require.Len(t, api.siteUpserts, 1)
	body := api.siteUpserts[0].body
	assert.Equal(t, "aa:bb:cc:dd:ee:ff", api.siteUpserts[0].mac)
	require.NotNil(t, body.Minutes)
	assert.Equal(t, DefaultMinutes, *body.Minutes)
	require.NotNil(t, body.Authorized)
	assert.True(t, *body.Authorized)
	require.NotNil(t, body.Field4)
	assert.Equal(t, "automation", *body.Field4, "operator field carries the token name")
	assert.Nil(t, body.Email, "empty fields are not sent")
	assert.Equal(t, "w1", body.WlanID)
}

func TestAuthorizeInvalidMAC(t *testing.T) {
	svc, _ := newTestService(&fakeAPI{}, "org-1")
	_, err := svc.Authorize(context.Background(), "s1", "w1", AuthorizeRequest{Mac: "nope"})
	assert.ErrorIs(t, err, mist.ErrInvalidMAC)
}

func TestAuthorizeOrgFallback(t *testing.T) {
	api := &fakeAPI{
		self:          &mist.Self{Name: "automation"},
		siteUpsertErr: errors.New("404"),
	}
	svc, _ := newTestService(api, "org-1")

	_, err := svc.Authorize(context.Background(), "s1", "w1", AuthorizeRequest{Mac: "aa:bb:cc:dd:ee:ff"})
	require.NoError(t, err)
	require.Len(t, api.orgUpserts, 1)
	assert.Equal(t, "org-1", api.orgUpserts[0].scopeID)
}

func TestUpdatePartialFields(t *testing.T) {
	api := &fakeAPI{self: &mist.Self{Name: "automation"}}
	svc, _ := newTestService(api, "org-1")

	guest, err := svc.Update(context.Background(), "s1", "w1", "aa:bb:cc:dd:ee:ff", UpdateRequest{
		Name:    strPtr("Scanner"),
		Minutes: intPtr(480),
	})
	require.NoError(t, err)
	assert.Equal(t, "Scanner", guest.Name)
	assert.Equal(t, int64(480), guest.RemainingMinutes)

	require.Len(t, api.siteUpserts, 1)
	body := api.siteUpserts[0].body
	require.NotNil(t, body.Name)
	assert.Equal(t, "Scanner", *body.Name)
	assert.Nil(t, body.Email)
	assert.Nil(t, body.Company)
	require.NotNil(t, body.Field4)
	assert.Equal(t, "automation", *body.Field4)
}

func TestRevokeWritesMinutesZero(t *testing.T) {
	api := &fakeAPI{}
	svc, _ := newTestService(api, "org-1")

	require.NoError(t, svc.Revoke(context.Background(), "s1", "w1", "AABBCCDDEEFF"))
	require.Len(t, api.siteUpserts, 1)
	call := api.siteUpserts[0]
	assert.Equal(t, "aa:bb:cc:dd:ee:ff", call.mac)
	require.NotNil(t, call.body.Minutes)
	assert.Equal(t, 0, *call.body.Minutes)
	assert.Nil(t, call.body.Authorized)
}

func TestRevokeInvalidMAC(t *testing.T) {
	svc, _ := newTestService(&fakeAPI{}, "org-1")
	assert.ErrorIs(t, svc.Revoke(context.Background(), "s1", "w1", "xyz"), mist.ErrInvalidMAC)
}

func TestSearchClientsFilterAndSort(t *testing.T) {
	api := &fakeAPI{stats: []mist.ClientStat{
		{Mac: "cc:cc:cc:cc:cc:cc", Hostname: "zulu-laptop", IP: "10.0.0.3", SSID: "Guest"},
		{Mac: "aa:aa:aa:aa:aa:aa", Hostname: "alpha-phone", IP: "10.0.0.1", SSID: "Guest"},
		{Mac: "bb:bb:bb:bb:bb:bb", Hostname: "", IP: "10.0.0.2", SSID: "Corp"},
	}}
	svc, _ := newTestService(api, "org-1")

	all, err := svc.SearchClients(context.Background(), "s1", "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "alpha-phone", all[0].Hostname)
	assert.Equal(t, "bb:bb:bb:bb:bb:bb", all[1].Mac, "hostname-less clients sort by MAC")
	assert.Equal(t, "zulu-laptop", all[2].Hostname)
	assert.True(t, all[0].IsConnected)

	guests, err := svc.SearchClients(context.Background(), "s1", "guest")
	require.NoError(t, err)
	assert.Len(t, guests, 2)

	byIP, err := svc.SearchClients(context.Background(), "s1", "10.0.0.2")
	require.NoError(t, err)
	require.Len(t, byIP, 1)
	assert.Equal(t, "bb:bb:bb:bb:bb:bb", byIP[0].Mac)
}

func TestSiteWLANMap(t *testing.T) {
	api := &fakeAPI{
		sites: []mist.Site{{ID: "s1", Name: "Main Office"}},
		orgWLANs: []mist.WLAN{
			{ID: "w1", SSID: "Guest-WiFi", Portal: guestPortal(), ApplyTo: "all"},
		},
	}
	svc, _ := newTestService(api, "org-1")

	m, err := svc.SiteWLANMap(context.Background())
	require.NoError(t, err)
	entry, ok := m["main office"]
	require.True(t, ok, "site names are lowercased")
	assert.Equal(t, "s1", entry.ID)
	assert.Equal(t, "w1", entry.WLANs["guest-wifi"])
}
