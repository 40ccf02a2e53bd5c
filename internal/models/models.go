package models

import (
	"time"
)

type PropertyType string

const (
	TypeHouse      PropertyType = "House"
	TypeApartment  PropertyType = "Apartment"
	TypeVilla      PropertyType = "Villa"
	TypeCommercial PropertyType = "Commercial"
	TypeLand       PropertyType = "Land"
)

var PropertyTypes = []PropertyType{TypeHouse, TypeApartment, TypeVilla, TypeCommercial, TypeLand}

func (t PropertyType) Valid() bool {
	for _, v := range PropertyTypes {
		if v == t {
			return true
		}
	}
	return false
}

type ListingType string

const (
	ListingSale ListingType = "Sale"
	ListingRent ListingType = "Rent"
)

func (t ListingType) Valid() bool {
	return t == ListingSale || t == ListingRent
}

type PropertyStatus string

const (
	PropertyAvailable PropertyStatus = "Available"
	PropertyPending   PropertyStatus = "Pending"
	PropertySold      PropertyStatus = "Sold"
	PropertyCancelled PropertyStatus = "Cancelled"
)

var PropertyStatuses = []PropertyStatus{PropertyAvailable, PropertyPending, PropertySold, PropertyCancelled}

func (s PropertyStatus) Valid() bool {
	for _, v := range PropertyStatuses {
		if v == s {
			return true
		}
	}
	return false
}

type Role string

const (
	RoleUser  Role = "User"
	RoleAdmin Role = "Admin"
)

// DefaultPropertyImage is the shared placeholder. It is never deleted.
const DefaultPropertyImage = "/images/properties/default-property.jpg"

type Property struct {
	ID               int64          `json:"id"`
	Title            string         `json:"title"`
	Description      string         `json:"description"`
	PropertyType     PropertyType   `json:"property_type"`
	ListingType      ListingType    `json:"listing_type"`
	Price            float64        `json:"price"`
	Address          string         `json:"address"`
	City             string         `json:"city"`
	State            string         `json:"state"`
	ZipCode          string         `json:"zip_code"`
	Bedrooms         *int           `json:"bedrooms,omitempty"`
	Bathrooms        *int           `json:"bathrooms,omitempty"`
	SquareFeet       *float64       `json:"square_feet,omitempty"`
	YearBuilt        *int           `json:"year_built,omitempty"`
	Parking          string         `json:"parking"`
	Features         string         `json:"features"`
	MainImage        string         `json:"main_image"`
	AdditionalImages ImageList      `json:"additional_images"`
	Status           PropertyStatus `json:"status"`
	IsFeatured       bool           `json:"is_featured"`
	ViewCount        int            `json:"view_count"`
	OwnerID          int64          `json:"owner_id"`
	OwnerName        string         `json:"owner_name,omitempty"` // For display convenience
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        *time.Time     `json:"updated_at,omitempty"`
}

// HasCustomMainImage reports whether the main image is an uploaded blob.
func (p *Property) HasCustomMainImage() bool {
	return p.MainImage != "" && p.MainImage != DefaultPropertyImage
}

// Touch stamps UpdatedAt.
func (p *Property) Touch(now time.Time) {
	t := now.UTC()
	p.UpdatedAt = &t
}

type User struct {
	ID           int64      `json:"id"`
	FullName     string     `json:"full_name"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	Phone        string     `json:"phone"`
	Address      string     `json:"address"`
	City         string     `json:"city"`
	State        string     `json:"state"`
	ZipCode      string     `json:"zip_code"`
	ProfileImage string     `json:"profile_image"`
	Role         Role       `json:"role"`
	IsActive     bool       `json:"is_active"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    *time.Time `json:"updated_at,omitempty"`
}

func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }

type Booking struct {
	ID            int64         `json:"id"`
	PropertyID    int64         `json:"property_id"`
	PropertyTitle string        `json:"property_title,omitempty"` // For display convenience
	UserID        int64         `json:"user_id"`
	UserName      string        `json:"user_name,omitempty"`
	UserEmail     string        `json:"user_email,omitempty"`
	BookingDate   time.Time     `json:"booking_date"`
	BookingTime   string        `json:"booking_time"`
	Message       string        `json:"message"`
	Status        BookingStatus `json:"status"`
	AdminNotes    string        `json:"admin_notes"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     *time.Time    `json:"updated_at,omitempty"`
}

type Inquiry struct {
	ID            int64         `json:"id"`
	PropertyID    *int64        `json:"property_id,omitempty"` // nil for general inquiries
	PropertyTitle string        `json:"property_title,omitempty"`
	UserID        *int64        `json:"user_id,omitempty"` // nil for anonymous visitors
	Name          string        `json:"name"`
	Email         string        `json:"email"`
	Phone         string        `json:"phone"`
	Message       string        `json:"message"`
	Status        InquiryStatus `json:"status"`
	AdminReply    string        `json:"admin_reply"`
	RepliedAt     *time.Time    `json:"replied_at,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
}

type City struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	State         string    `json:"state"`
	Image         string    `json:"image"`
	PropertyCount int       `json:"property_count"`
	IsActive      bool      `json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
}
