package models

// DashboardStats backs the admin dashboard.
type DashboardStats struct {
	TotalUsers             int
	TotalProperties        int
	TotalBookings          int
	TotalInquiries         int
	PendingBookings        int
	NewInquiries           int
	AvailableProperties    int
	NewUsersThisMonth      int
	NewPropertiesThisMonth int
	NewBookingsThisMonth   int
	NewInquiriesThisMonth  int
	PropertiesByType       map[PropertyType]int
	FeaturedCount          int
	TotalViews             int
	ActiveUsers            int
	RecentBookings         []Booking
	RecentInquiries        []Inquiry
}

// UserDashboardStats backs a signed-in user's dashboard.
type UserDashboardStats struct {
	Bookings         int
	PendingBookings  int
	Inquiries        int
	RepliedInquiries int
	RecentBookings   []Booking
	RecentInquiries  []Inquiry
}

// HomeStats is shown on the landing page.
type HomeStats struct {
	TotalProperties int
	TotalUsers      int
	FeaturedCount   int
}
