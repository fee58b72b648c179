package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(srv.URL, 5*time.Second)
}

func TestLoginReturnsToken(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/users/login" {
			t.Errorf("got %s %s", r.Method, r.URL.Path)
		}
		var creds Credentials
		if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if creds.Email != "a@b.c" || creds.Password != "pw" {
			t.Errorf("credentials = %+v", creds)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"token": "tok-1"})
	})

	token, err := c.Login(context.Background(), Credentials{Email: "a@b.c", Password: "pw"})
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if token != "tok-1" {
		t.Errorf("token = %q; want tok-1", token)
	}
}

func TestLoginRejectedCredentials(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "invalid credentials"})
	})

	_, err := c.Login(context.Background(), Credentials{Email: "a@b.c", Password: "bad"})
	if !errors.Is(err, ErrUnauthorized) {
		t.Errorf("Login() error = %v; want ErrUnauthorized", err)
	}
}

func TestLoginMissingToken(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{})
	})

	if _, err := c.Login(context.Background(), Credentials{}); err == nil {
		t.Error("Login() with empty token should fail")
	}
}

func TestRegisterValidationError(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "email already taken"})
	})

	err := c.Register(context.Background(), Credentials{Name: "Ann", Email: "a@b.c", Password: "pw"})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Register() error = %v; want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusBadRequest || apiErr.Message != "email already taken" {
		t.Errorf("APIError = %+v", apiErr)
	}
}

func TestListUsersSendsBearerToken(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer admin-tok" {
			t.Errorf("Authorization = %q", got)
		}
		io.WriteString(w, `[
			{"id":"u1","name":"Ann","socialHandles":[{"platform":"mastodon","handle":"@ann"}],"images":[{"url":"/uploads/a.png"}]},
			{"id":"u2","name":"Ben","socialHandles":[],"images":[]}
		]`)
	})

	users, err := c.ListUsers(context.Background(), "admin-tok")
	if err != nil {
		t.Fatalf("ListUsers() error = %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("got %d users; want 2", len(users))
	}
	if users[0].SocialHandles[0].Platform != "mastodon" {
		t.Errorf("SocialHandles = %+v", users[0].SocialHandles)
	}
	if users[0].Images[0].URL != "/uploads/a.png" {
		t.Errorf("Images = %+v", users[0].Images)
	}
}

func TestListUsersUnauthorized(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	_, err := c.ListUsers(context.Background(), "stale")
	if !errors.Is(err, ErrUnauthorized) {
		t.Errorf("ListUsers() error = %v; want ErrUnauthorized", err)
	}
}

func TestDeleteUser(t *testing.T) {
	var gotPath, gotMethod string
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod, gotPath = r.Method, r.URL.Path
		w.WriteHeader(http.StatusOK)
	})

	if err := c.DeleteUser(context.Background(), "tok", "u42"); err != nil {
		t.Fatalf("DeleteUser() error = %v", err)
	}
	if gotMethod != http.MethodDelete || gotPath != "/api/users/u42" {
		t.Errorf("request = %s %s", gotMethod, gotPath)
	}
}

func TestDeleteSocialHandleBody(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/users/u1/social-handles" {
			t.Errorf("path = %s", r.URL.Path)
		}
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["platform"] != "pixelfed" {
			t.Errorf("body = %v", body)
		}
	})

	if err := c.DeleteSocialHandle(context.Background(), "tok", "u1", "pixelfed"); err != nil {
		t.Fatalf("DeleteSocialHandle() error = %v", err)
	}
}

func TestDeleteImageBody(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/users/u1/images" {
			t.Errorf("path = %s", r.URL.Path)
		}
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["imagePath"] != "/uploads/pic.jpg" {
			t.Errorf("body = %v", body)
		}
	})

	if err := c.DeleteImage(context.Background(), "tok", "u1", "/uploads/pic.jpg"); err != nil {
		t.Fatalf("DeleteImage() error = %v", err)
	}
}

func TestUploadMultipartForm(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer user-tok" {
			t.Errorf("Authorization = %q", got)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("ParseMultipartForm: %v", err)
		}
		if got := r.FormValue("platform"); got != "mastodon" {
			t.Errorf("platform = %q", got)
		}
		if got := r.FormValue("handle"); got != "@ann" {
			t.Errorf("handle = %q", got)
		}
		files := r.MultipartForm.File["images"]
		if len(files) != 2 {
			t.Fatalf("got %d files; want 2", len(files))
		}
		f, err := files[0].Open()
		if err != nil {
			t.Fatalf("open part: %v", err)
		}
		defer f.Close()
		data, _ := io.ReadAll(f)
		if string(data) != "first image bytes" {
			t.Errorf("file content = %q", data)
		}
		w.WriteHeader(http.StatusCreated)
	})

	err := c.Upload(context.Background(), "user-tok", UploadRequest{
		Platform: "mastodon",
		Handle:   "@ann",
		Files: []UploadFile{
			{Name: "a.png", Content: strings.NewReader("first image bytes")},
			{Name: "b.png", Content: strings.NewReader("second")},
		},
	})
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
}

func TestUploadFailureStatus(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "storage full"})
	})

	err := c.Upload(context.Background(), "tok", UploadRequest{Platform: "x", Handle: "@h"})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Upload() error = %v; want *APIError", err)
	}
	if apiErr.Message != "storage full" {
		t.Errorf("Message = %q", apiErr.Message)
	}
}

func TestContextCancellation(t *testing.T) {
	started := make(chan struct{})
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-r.Context().Done()
	})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()

	_, err := c.ListUsers(ctx, "tok")
	if err == nil {
		t.Fatal("ListUsers() should fail on cancelled context")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v; want context.Canceled in chain", err)
	}
}
