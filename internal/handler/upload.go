package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"creatordesk/internal/model"
	"creatordesk/internal/render"
	"creatordesk/internal/session"
	"creatordesk/internal/upstream"
)

// UploadHandler serves the submission form and passes uploads through
// to the API. Files are streamed, never written to local disk.
type UploadHandler struct {
	api            *upstream.Client
	renderer       *render.Renderer
	sessions       *session.Manager
	logger         *slog.Logger
	maxUploadBytes int64
}

// NewUploadHandler creates a new UploadHandler.
func NewUploadHandler(api *upstream.Client, renderer *render.Renderer, sessions *session.Manager, logger *slog.Logger, maxUploadBytes int64) *UploadHandler {
	return &UploadHandler{
		api:            api,
		renderer:       renderer,
		sessions:       sessions,
		logger:         logger,
		maxUploadBytes: maxUploadBytes,
	}
}

// uploadFormData is what the form template renders. After a failed
// submit the typed values come back so the visitor can retry without
// re-entering them.
type uploadFormData struct {
	Platform string
	Handle   string
}

// Form renders the submission form.
func (h *UploadHandler) Form(w http.ResponseWriter, r *http.Request) {
	h.renderForm(w, r, uploadFormData{})
}

// Submit forwards the form to the API as multipart form data under the
// visitor's own token. The file selection is passed through as-is, an
// empty one included; what counts as a valid submission is the API's
// call.
func (h *UploadHandler) Submit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		h.renderer.SetFlash(r, "Upload too large or malformed.", flashError)
		h.renderForm(w, r, uploadFormData{})
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	form := uploadFormData{
		Platform: strings.TrimSpace(r.FormValue("platform")),
		Handle:   strings.TrimSpace(r.FormValue("handle")),
	}
	fileHeaders := r.MultipartForm.File["images"]

	if form.Platform == "" || form.Handle == "" {
		h.renderer.SetFlash(r, "Platform and handle are required.", flashError)
		h.renderForm(w, r, form)
		return
	}

	up := upstream.UploadRequest{
		Platform: form.Platform,
		Handle:   form.Handle,
	}
	for _, fh := range fileHeaders {
		f, err := fh.Open()
		if err != nil {
			h.logger.Error("upload part open failed", "category", model.EventCategoryUpload, "file", fh.Filename, "error", err)
			h.renderer.SetFlash(r, "Could not read one of the selected files.", flashError)
			h.renderForm(w, r, form)
			return
		}
		defer f.Close()
		up.Files = append(up.Files, upstream.UploadFile{Name: fh.Filename, Content: f})
	}

	uploadID := uuid.NewString()
	token := h.sessions.Token(r.Context(), model.RoleUser)

	if err := h.api.Upload(r.Context(), token, up); err != nil {
		h.logger.Warn("upload failed",
			"category", model.EventCategoryUpload,
			"upload_id", uploadID,
			"platform", form.Platform,
			"files", len(up.Files),
			"error", err,
		)
		h.renderer.SetFlash(r, "Upload failed. Your entries are kept, try again.", flashError)
		h.renderForm(w, r, form)
		return
	}

	h.logger.Info("upload accepted",
		"category", model.EventCategoryUpload,
		"upload_id", uploadID,
		"platform", form.Platform,
		"files", len(up.Files),
	)

	// Redirect clears the form on success
	h.renderer.SetFlash(r, "Upload successful.", flashSuccess)
	http.Redirect(w, r, RouteUserForm, http.StatusSeeOther)
}

func (h *UploadHandler) renderForm(w http.ResponseWriter, r *http.Request, form uploadFormData) {
	data := render.TemplateData{
		Title: "Submit Your Work",
		Data:  form,
	}
	if err := h.renderer.Render(w, r, "upload/user_form", data); err != nil {
		h.logger.Error("template render failed", "template", "upload/user_form", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}
