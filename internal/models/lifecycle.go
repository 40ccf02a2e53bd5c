package models

type BookingStatus string

const (
	BookingPending   BookingStatus = "Pending"
	BookingConfirmed BookingStatus = "Confirmed"
	BookingCancelled BookingStatus = "Cancelled"
	BookingCompleted BookingStatus = "Completed"
)

var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingPending:   {BookingConfirmed, BookingCancelled},
	BookingConfirmed: {BookingCompleted, BookingCancelled},
}

func (s BookingStatus) Valid() bool {
	switch s {
	case BookingPending, BookingConfirmed, BookingCancelled, BookingCompleted:
		return true
	}
	return false
}

// Terminal reports whether no transition leaves s.
func (s BookingStatus) Terminal() bool {
	return len(bookingTransitions[s]) == 0
}

// CanTransition reports whether the booking state machine allows s -> to.
func (s BookingStatus) CanTransition(to BookingStatus) bool {
	for _, next := range bookingTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// OwnerCancellable reports whether the booking owner may still cancel.
// Owners can only withdraw requests nobody has acted on yet.
func (s BookingStatus) OwnerCancellable() bool {
	return s == BookingPending
}

type InquiryStatus string

const (
	InquiryNew     InquiryStatus = "New"
	InquiryReplied InquiryStatus = "Replied"
)

func (s InquiryStatus) CanReply() bool {
	return s == InquiryNew
}
