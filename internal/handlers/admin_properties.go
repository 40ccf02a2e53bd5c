package handlers

import (
	"fmt"
	"net/http"

	"github.com/alextreichler/estatehub/internal/auth"
	"github.com/alextreichler/estatehub/internal/models"
	"github.com/alextreichler/estatehub/internal/search"
	"github.com/alextreichler/estatehub/internal/service"
)

// ListProperties shows every listing regardless of status.
func (h *AdminHandler) ListProperties(w http.ResponseWriter, r *http.Request) {
	params := search.FromQuery(r.URL.Query())
	params.Visibility = search.VisibilityAll

	result, err := h.Properties.Search(r.Context(), params)
	if err != nil {
		h.pageError(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, "admin_properties.html", map[string]any{
		"Result":        result,
		"Params":        result.Params,
		"PropertyTypes": models.PropertyTypes,
		"Statuses":      models.PropertyStatuses,
	})
}

func (h *AdminHandler) NewPropertyForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "admin_property_form.html", map[string]any{
		"Property":      &models.Property{Status: models.PropertyAvailable, MainImage: models.DefaultPropertyImage},
		"PropertyTypes": models.PropertyTypes,
		"Statuses":      models.PropertyStatuses,
		"Action":        "/admin/properties",
	})
}

func (h *AdminHandler) CreateProperty(w http.ResponseWriter, r *http.Request) {
	const back = "/admin/properties/new"
	files, ok := h.parsePropertyForm(w, r, back)
	if !ok {
		return
	}
	defer files.Close()

	photos, err := propertyPhotos(r, files)
	if err != nil {
		h.redirectWithFlash(w, r, back, "error", "Could not read the uploaded images.")
		return
	}

	actor := auth.FromContext(r.Context())
	p, err := h.Properties.Create(r.Context(), actor.UserID, propertyInput(r), photos)
	if err != nil {
		if p != nil {
			// The listing exists; only the photos failed.
			h.formError(w, r, err, editURL(p.ID))
			return
		}
		h.formError(w, r, err, back)
		return
	}
	h.redirectWithFlash(w, r, "/admin/properties", "success", "Property added successfully!")
}

func (h *AdminHandler) EditPropertyForm(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		h.notFound(w, r)
		return
	}
	p, err := h.Properties.Get(r.Context(), id)
	if err != nil {
		h.pageError(w, r, err)
		return
	}
	inquiries, err := h.Inquiries.ListByProperty(r.Context(), id)
	if err != nil {
		h.pageError(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, "admin_property_form.html", map[string]any{
		"Property":      p,
		"Inquiries":     inquiries,
		"PropertyTypes": models.PropertyTypes,
		"Statuses":      models.PropertyStatuses,
		"Action":        fmt.Sprintf("/admin/properties/%d", id),
	})
}

func (h *AdminHandler) UpdateProperty(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		h.notFound(w, r)
		return
	}
	back := editURL(id)
	files, ok := h.parsePropertyForm(w, r, back)
	if !ok {
		return
	}
	defer files.Close()

	photos, err := propertyPhotos(r, files)
	if err != nil {
		h.redirectWithFlash(w, r, back, "error", "Could not read the uploaded images.")
		return
	}
	if _, err := h.Properties.Update(r.Context(), id, propertyInput(r), photos); err != nil {
		h.formError(w, r, err, back)
		return
	}
	h.redirectWithFlash(w, r, "/admin/properties", "success", "Property updated successfully!")
}

func (h *AdminHandler) DeleteProperty(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		h.notFound(w, r)
		return
	}
	if err := h.Properties.Delete(r.Context(), id); err != nil {
		h.formError(w, r, err, "/admin/properties")
		return
	}
	h.redirectWithFlash(w, r, "/admin/properties", "success", "Property deleted successfully!")
}

func (h *AdminHandler) CancelProperty(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		h.notFound(w, r)
		return
	}
	if err := h.Properties.Cancel(r.Context(), id); err != nil {
		h.formError(w, r, err, "/admin/properties")
		return
	}
	h.redirectWithFlash(w, r, "/admin/properties", "success", "Property listing cancelled.")
}

func (h *AdminHandler) ToggleFeatured(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		h.notFound(w, r)
		return
	}
	featured, err := h.Properties.ToggleFeatured(r.Context(), id)
	if err != nil {
		h.formError(w, r, err, "/admin/properties")
		return
	}
	msg := "Property removed from featured."
	if featured {
		msg = "Property marked as featured."
	}
	h.redirectWithFlash(w, r, "/admin/properties", "success", msg)
}

func (h *AdminHandler) UpdatePropertyStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		h.notFound(w, r)
		return
	}
	status := models.PropertyStatus(r.FormValue("status"))
	if err := h.Properties.SetStatus(r.Context(), id, status); err != nil {
		h.formError(w, r, err, "/admin/properties")
		return
	}
	h.redirectWithFlash(w, r, "/admin/properties", "success", "Property status updated to "+string(status)+".")
}

// parsePropertyForm reads the multipart listing form, flashing and
// redirecting to back when it is unreadable.
func (h *AdminHandler) parsePropertyForm(w http.ResponseWriter, r *http.Request, back string) (*uploads, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxPropertyForm)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil && err != http.ErrNotMultipart {
		h.redirectWithFlash(w, r, back, "error", "Upload too large.")
		return nil, false
	}
	return &uploads{}, true
}

func propertyPhotos(r *http.Request, files *uploads) (service.PropertyPhotos, error) {
	main, err := files.single(r, "main_image")
	if err != nil {
		return service.PropertyPhotos{}, err
	}
	additional, err := files.multiple(r, "additional_images")
	if err != nil {
		return service.PropertyPhotos{}, err
	}
	return service.PropertyPhotos{
		Main:               main,
		Additional:         additional,
		KeepExistingImages: formBool(r, "keep_existing_images"),
	}, nil
}

func editURL(id int64) string {
	return fmt.Sprintf("/admin/properties/%d/edit", id)
}
