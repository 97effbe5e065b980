package lifecycle

import (
	"github.com/salonmonarch/booking/services/booking-service/internal/model"
	"github.com/salonmonarch/booking/services/booking-service/internal/notify"
)

// editNotice picks the customer notification for a full edit. Only a move
// into approved is special; every other edit, cancellation included, is an update.
func editNotice(prev, next model.Status) notify.Kind {
	if prev != model.StatusApproved && next == model.StatusApproved {
		return notify.KindConfirmed
	}
	return notify.KindUpdated
}

// statusNotice picks the customer notification for a status-only change.
// Moving back to pending, or re-approving, is silent.
func statusNotice(prev, next model.Status) (notify.Kind, bool) {
	switch {
	case prev != model.StatusApproved && next == model.StatusApproved:
		return notify.KindConfirmed, true
	case next == model.StatusCancelled:
		return notify.KindCancelled, true
	default:
		return "", false
	}
}

// creationNotices lists the notifications for a new appointment.
func creationNotices(status model.Status) []creationNotice {
	switch status {
	case model.StatusPending:
		return []creationNotice{
			{kind: notify.KindAdminNotified, toAdmin: true},
			{kind: notify.KindCreated},
		}
	case model.StatusApproved:
		return []creationNotice{{kind: notify.KindConfirmed}}
	default:
		return nil
	}
}

type creationNotice struct {
	kind notify.Kind
	// toAdmin routes the notice to the salon inbox instead of the customer.
	toAdmin bool
}
