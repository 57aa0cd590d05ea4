package booking

import "github.com/iliyamo/mentorship-escrow/internal/model"

// canTransition is the booking status transition matrix.  CONFIRMED fans out
// to every non-terminal outcome; COMPLETED and CANCELLED admit nothing.  The
// admin emergency override bypasses this table deliberately.
func canTransition(from, to model.BookingStatus) bool {
	switch from {
	case model.BookingConfirmed:
		return to == model.BookingInProgress || to == model.BookingNoShow ||
			to == model.BookingCancelled || to == model.BookingCompleted
	case model.BookingInProgress:
		return to == model.BookingNoShow || to == model.BookingCompleted
	case model.BookingNoShow:
		return to == model.BookingCompleted
	default:
		return false
	}
}

// validStatus reports whether s is one of the known booking states.  Used to
// sanity-check the emergency override input.
func validStatus(s model.BookingStatus) bool {
	switch s {
	case model.BookingConfirmed, model.BookingInProgress, model.BookingNoShow,
		model.BookingCompleted, model.BookingCancelled:
		return true
	}
	return false
}
