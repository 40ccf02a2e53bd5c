package handlers

import (
	"net/http"
)

// AddPhoto uploads one image for a property and answers with a JSON
// envelope carrying the stored path.
func (h *AdminHandler) AddPhoto(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, Envelope{Message: "Invalid property id."})
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		writeJSON(w, http.StatusBadRequest, Envelope{Message: "File too large. Max 10MB."})
		return
	}

	var files uploads
	defer files.Close()
	photo, err := files.single(r, "photo")
	if err != nil || photo == nil {
		writeJSON(w, http.StatusBadRequest, Envelope{Message: "No photo uploaded."})
		return
	}

	isMain := formBool(r, "is_main")
	path, err := h.Properties.AddPhoto(r.Context(), id, *photo, isMain)
	if err != nil {
		jsonError(w, r, err)
		return
	}
	jsonOK(w, "Photo uploaded.", map[string]any{"path": path, "is_main": isMain})
}

// DeletePhoto removes the main image or one additional image.
func (h *AdminHandler) DeletePhoto(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, Envelope{Message: "Invalid property id."})
		return
	}
	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, Envelope{Message: "Invalid form data."})
		return
	}
	if err := h.Properties.DeletePhoto(r.Context(), id, r.FormValue("path"), formBool(r, "is_main")); err != nil {
		jsonError(w, r, err)
		return
	}
	jsonOK(w, "Photo deleted.", nil)
}
