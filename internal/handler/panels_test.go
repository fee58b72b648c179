package handler

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"creatordesk/internal/model"
)

func panelUsers() []model.User {
	return []model.User{
		{
			ID:   "u1",
			Name: "Ann",
			SocialHandles: []model.SocialHandle{
				{Platform: "instagram", Handle: "@ann", AddedAt: time.Now()},
			},
			Images: []model.Image{
				{URL: "/uploads/ann-1.png", UploadedAt: time.Now()},
			},
			CreatedAt: time.Now(),
		},
		{
			ID:        "u2",
			Name:      "Ben",
			CreatedAt: time.Now(),
		},
	}
}

func adminApp(t *testing.T, api *fakeAPI) (*testApp, *http.Cookie) {
	t.Helper()
	app := newTestApp(t, api)
	return app, app.login(t, RouteAdminLogin)
}

func TestUsersPanelRendersCollection(t *testing.T) {
	app, cookie := adminApp(t, &fakeAPI{loginToken: "admin-tok", users: panelUsers()})

	rr := app.do(t, http.MethodGet, RouteAdminUsers, nil, cookie, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d; want 200", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "Ann") || !strings.Contains(body, "Ben") {
		t.Error("user names missing from panel")
	}
}

func TestSocialHandlesPanelFlattensRows(t *testing.T) {
	app, cookie := adminApp(t, &fakeAPI{loginToken: "admin-tok", users: panelUsers()})

	rr := app.do(t, http.MethodGet, RouteAdminSocialHandles, nil, cookie, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d; want 200", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "@ann") || !strings.Contains(body, "instagram") {
		t.Error("handle row missing from panel")
	}
	// Ben has no handles and must not produce a row, but Ann's row names her
	if !strings.Contains(body, "Ann") {
		t.Error("owner name missing from handle row")
	}
}

func TestImagesPanelRendersGallery(t *testing.T) {
	app, cookie := adminApp(t, &fakeAPI{loginToken: "admin-tok", users: panelUsers()})

	rr := app.do(t, http.MethodGet, RouteAdminImages, nil, cookie, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d; want 200", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "/uploads/ann-1.png") {
		t.Error("image URL missing from gallery")
	}
}

func TestPanelsShareOneFetch(t *testing.T) {
	api := &fakeAPI{loginToken: "admin-tok", users: panelUsers()}
	app, cookie := adminApp(t, api)

	app.do(t, http.MethodGet, RouteAdminUsers, nil, cookie, "")
	app.do(t, http.MethodGet, RouteAdminSocialHandles, nil, cookie, "")
	app.do(t, http.MethodGet, RouteAdminImages, nil, cookie, "")

	api.mu.Lock()
	defer api.mu.Unlock()
	if api.listCalls != 1 {
		t.Errorf("API list calls = %d; want 1, panels share the cached collection", api.listCalls)
	}
}

func TestPanelFetchFailureRendersEmptyState(t *testing.T) {
	api := &fakeAPI{loginToken: "admin-tok", users: panelUsers(), failList: true}
	app, cookie := adminApp(t, api)

	rr := app.do(t, http.MethodGet, RouteAdminUsers, nil, cookie, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d; want 200, fetch failure is not an error page", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "No users found") {
		t.Error("empty state not rendered")
	}
	if !strings.Contains(body, "Could not load data") {
		t.Error("failure flash not shown")
	}
}

func TestDeleteUserRequiresConfirm(t *testing.T) {
	api := &fakeAPI{loginToken: "admin-tok", users: panelUsers()}
	app, cookie := adminApp(t, api)

	rr := app.form(t, "/admin/dashboard/users/u1/delete", map[string]string{}, cookie)
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("status = %d; want 303", rr.Code)
	}

	api.mu.Lock()
	defer api.mu.Unlock()
	if len(api.deleteCalls) != 0 {
		t.Errorf("API delete calls = %v; want none without confirmation", api.deleteCalls)
	}
}

func TestDeleteUserSplicesWithoutRefetch(t *testing.T) {
	api := &fakeAPI{loginToken: "admin-tok", users: panelUsers()}
	app, cookie := adminApp(t, api)

	// Warm the cache
	app.do(t, http.MethodGet, RouteAdminUsers, nil, cookie, "")

	rr := app.form(t, "/admin/dashboard/users/u1/delete", map[string]string{"confirm": "yes"}, cookie)
	if got := rr.Header().Get("Location"); got != RouteAdminUsers {
		t.Errorf("Location = %q; want %s", got, RouteAdminUsers)
	}

	rr = app.do(t, http.MethodGet, RouteAdminUsers, nil, cookie, "")
	body := rr.Body.String()
	if strings.Contains(body, "Ann") {
		t.Error("deleted user still rendered")
	}
	if !strings.Contains(body, "Ben") {
		t.Error("remaining user missing")
	}

	api.mu.Lock()
	defer api.mu.Unlock()
	if api.listCalls != 1 {
		t.Errorf("API list calls = %d; want 1, delete must splice the cache", api.listCalls)
	}
	if len(api.deleteCalls) != 1 || api.deleteCalls[0] != "/api/users/u1" {
		t.Errorf("API delete calls = %v", api.deleteCalls)
	}
}

func TestDeleteSocialHandleSendsPlatform(t *testing.T) {
	api := &fakeAPI{loginToken: "admin-tok", users: panelUsers()}
	app, cookie := adminApp(t, api)

	app.do(t, http.MethodGet, RouteAdminSocialHandles, nil, cookie, "")
	app.form(t, "/admin/dashboard/social-handles/u1/delete", map[string]string{
		"confirm":  "yes",
		"platform": "instagram",
	}, cookie)

	rr := app.do(t, http.MethodGet, RouteAdminSocialHandles, nil, cookie, "")
	if strings.Contains(rr.Body.String(), "@ann") {
		t.Error("deleted handle still rendered")
	}

	api.mu.Lock()
	defer api.mu.Unlock()
	if len(api.deleteCalls) != 1 || api.deleteCalls[0] != "/api/users/u1/social-handles" {
		t.Errorf("API delete calls = %v", api.deleteCalls)
	}
}

func TestDeleteImageFailureLeavesGallery(t *testing.T) {
	api := &fakeAPI{loginToken: "admin-tok", users: panelUsers(), failDelete: true}
	app, cookie := adminApp(t, api)

	app.do(t, http.MethodGet, RouteAdminImages, nil, cookie, "")
	app.form(t, "/admin/dashboard/images/u1/delete", map[string]string{
		"confirm":    "yes",
		"image_path": "/uploads/ann-1.png",
	}, cookie)

	rr := app.do(t, http.MethodGet, RouteAdminImages, nil, cookie, "")
	if !strings.Contains(rr.Body.String(), "/uploads/ann-1.png") {
		t.Error("image vanished despite failed delete")
	}
}

func TestDashboardHomeShowsRecentEvents(t *testing.T) {
	api := &fakeAPI{loginToken: "admin-tok"}
	app, cookie := adminApp(t, api)

	if _, err := app.db.Exec(
		`INSERT INTO events (level, category, message) VALUES ('warning', 'panel', 'panel fetch failed')`,
	); err != nil {
		t.Fatalf("seed event: %v", err)
	}

	rr := app.do(t, http.MethodGet, RouteAdminHome, nil, cookie, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d; want 200", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "panel fetch failed") {
		t.Error("event log entry missing from home page")
	}
}
