package handlers

import (
	"fmt"
	"net/http"

	"github.com/alextreichler/estatehub/internal/auth"
	"github.com/alextreichler/estatehub/internal/models"
	"github.com/alextreichler/estatehub/internal/search"
	"github.com/alextreichler/estatehub/internal/service"
)

// HomeHandler serves the public site.
type HomeHandler struct {
	Base
	Properties *service.Properties
	Inquiries  *service.Inquiries
}

func (h *HomeHandler) Index(w http.ResponseWriter, r *http.Request) {
	home, err := h.Properties.Home(r.Context())
	if err != nil {
		h.pageError(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, "home.html", map[string]any{
		"Featured": home.Featured,
		"Latest":   home.Latest,
		"Cities":   home.Cities,
		"Stats":    home.Stats,
	})
}

// ListProperties is the public listing page. Only Available properties are shown.
func (h *HomeHandler) ListProperties(w http.ResponseWriter, r *http.Request) {
	params := search.FromQuery(r.URL.Query())
	params.Visibility = search.VisibilityAvailable

	result, err := h.Properties.Search(r.Context(), params)
	if err != nil {
		h.pageError(w, r, err)
		return
	}
	if auth.WantsJSON(r) {
		writeJSON(w, http.StatusOK, result)
		return
	}
	h.render(w, r, http.StatusOK, "properties.html", map[string]any{
		"Result":        result,
		"Params":        result.Params,
		"Sorts":         []search.Sort{search.SortNewest, search.SortOldest, search.SortPriceAsc, search.SortPriceDesc, search.SortPopular},
		"PropertyTypes": models.PropertyTypes,
	})
}

func (h *HomeHandler) PropertyDetail(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		h.notFound(w, r)
		return
	}
	p, err := h.Properties.View(r.Context(), id)
	if err != nil {
		h.pageError(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, "property.html", map[string]any{
		"Property": p,
	})
}

// SubmitPropertyInquiry records an inquiry about one property.
func (h *HomeHandler) SubmitPropertyInquiry(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		h.notFound(w, r)
		return
	}
	h.submitInquiry(w, r, &id, fmt.Sprintf("/properties/%d", id))
}

func (h *HomeHandler) ContactForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "contact.html", nil)
}

// SubmitContact records a general inquiry not tied to a property.
func (h *HomeHandler) SubmitContact(w http.ResponseWriter, r *http.Request) {
	h.submitInquiry(w, r, nil, "/contact")
}

func (h *HomeHandler) submitInquiry(w http.ResponseWriter, r *http.Request, propertyID *int64, back string) {
	if err := r.ParseForm(); err != nil {
		h.redirectWithFlash(w, r, back, "error", "Invalid form data.")
		return
	}
	id := auth.FromContext(r.Context())
	in := inquiryInput(r)
	// Signed-in visitors may leave contact fields blank.
	if id.Authenticated() {
		if in.Name == "" {
			in.Name = id.Name
		}
		if in.Email == "" {
			in.Email = id.Email
		}
	}

	_, err := h.Inquiries.Submit(r.Context(), propertyID, id.UserIDPtr(), in)
	if auth.WantsJSON(r) {
		if err != nil {
			jsonError(w, r, err)
			return
		}
		jsonOK(w, "Your inquiry has been sent. We will get back to you soon.", nil)
		return
	}
	if err != nil {
		h.formError(w, r, err, back)
		return
	}
	h.redirectWithFlash(w, r, back, "success", "Your inquiry has been sent. We will get back to you soon.")
}
