package handlers

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/alextreichler/estatehub/internal/photos"
	"github.com/alextreichler/estatehub/internal/service"
)

const (
	maxUploadSize   = 10 << 20 // 10MB
	maxPropertyForm = 64 << 20
)

func formIntPtr(r *http.Request, key string) *int {
	v, err := strconv.Atoi(strings.TrimSpace(r.FormValue(key)))
	if err != nil {
		return nil
	}
	return &v
}

func formFloatPtr(r *http.Request, key string) *float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(r.FormValue(key)), 64)
	if err != nil {
		return nil
	}
	return &v
}

func formInt64(r *http.Request, key string) int64 {
	v, _ := strconv.ParseInt(strings.TrimSpace(r.FormValue(key)), 10, 64)
	return v
}

func formBool(r *http.Request, key string) bool {
	switch strings.ToLower(r.FormValue(key)) {
	case "true", "on", "1", "yes":
		return true
	}
	return false
}

func propertyInput(r *http.Request) service.PropertyInput {
	var price float64
	if p := formFloatPtr(r, "price"); p != nil {
		price = *p
	}
	return service.PropertyInput{
		Title:        r.FormValue("title"),
		Description:  r.FormValue("description"),
		PropertyType: r.FormValue("property_type"),
		ListingType:  r.FormValue("listing_type"),
		Price:        price,
		Address:      r.FormValue("address"),
		City:         r.FormValue("city"),
		State:        r.FormValue("state"),
		ZipCode:      r.FormValue("zip_code"),
		Bedrooms:     formIntPtr(r, "bedrooms"),
		Bathrooms:    formIntPtr(r, "bathrooms"),
		SquareFeet:   formFloatPtr(r, "square_feet"),
		YearBuilt:    formIntPtr(r, "year_built"),
		Parking:      r.FormValue("parking"),
		Features:     r.FormValue("features"),
		Status:       r.FormValue("status"),
		IsFeatured:   formBool(r, "is_featured"),
	}
}

func inquiryInput(r *http.Request) service.InquiryInput {
	return service.InquiryInput{
		Name:    r.FormValue("name"),
		Email:   r.FormValue("email"),
		Phone:   r.FormValue("phone"),
		Message: r.FormValue("message"),
	}
}

// uploads holds the opened files of a multipart request until the handler
// is done with them.
type uploads struct {
	files []multipart.File
}

func (u *uploads) Close() {
	for _, f := range u.files {
		f.Close()
	}
}

// single opens the file sent as field, or returns nil when none was sent.
func (u *uploads) single(r *http.Request, field string) (*photos.File, error) {
	if r.MultipartForm == nil {
		return nil, nil
	}
	f, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if header.Size == 0 {
		f.Close()
		return nil, nil
	}
	u.files = append(u.files, f)
	return &photos.File{Name: header.Filename, Content: f}, nil
}

// multiple opens every non-empty file sent as field.
func (u *uploads) multiple(r *http.Request, field string) ([]photos.File, error) {
	if r.MultipartForm == nil {
		return nil, nil
	}
	var out []photos.File
	for _, header := range r.MultipartForm.File[field] {
		if header.Size == 0 {
			continue
		}
		f, err := header.Open()
		if err != nil {
			return nil, err
		}
		u.files = append(u.files, f)
		out = append(out, photos.File{Name: header.Filename, Content: f})
	}
	return out, nil
}
