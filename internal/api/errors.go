package api

import (
	"errors"
	"net/http"

	"koubyte-be/internal/appointment"
	"koubyte-be/internal/blog"
	"koubyte-be/internal/cart"
	"koubyte-be/internal/catalog"
	"koubyte-be/internal/chat"
	"koubyte-be/internal/contact"
	"koubyte-be/internal/discount"
	"koubyte-be/internal/logger"
	"koubyte-be/internal/notification"
	"koubyte-be/internal/order"
	"koubyte-be/internal/payment"
	"koubyte-be/internal/quote"
	"koubyte-be/internal/review"
	"koubyte-be/internal/user"
	"koubyte-be/internal/utils"

	"go.uber.org/zap"
)

var statusErrors = []struct {
	code int
	errs []error
}{
	{http.StatusNotFound, []error{
		catalog.ErrServiceNotFound, cart.ErrCartItemNotFound, cart.ErrServiceNotFound,
		order.ErrOrderNotFound, payment.ErrPaymentNotFound, payment.ErrOrderNotFound,
		discount.ErrCodeNotFound, quote.ErrQuoteNotFound, appointment.ErrAppointmentNotFound,
		appointment.ErrServiceNotFound, review.ErrReviewNotFound, contact.ErrMessageNotFound,
		chat.ErrConversationNotFound, notification.ErrNotificationNotFound, blog.ErrPostNotFound,
		user.ErrUserNotFound,
	}},
	{http.StatusUnauthorized, []error{user.ErrInvalidCredentials}},
	{http.StatusForbidden, []error{
		order.ErrForbidden, payment.ErrForbidden, appointment.ErrForbidden, chat.ErrForbidden,
	}},
	{http.StatusConflict, []error{
		user.ErrEmailExists, appointment.ErrSlotTaken, discount.ErrCodeExists, blog.ErrSlugConflict,
		payment.ErrOrderAlreadyPaid, chat.ErrConversationClosed,
	}},
	{http.StatusUnprocessableEntity, []error{
		cart.ErrCartEmpty, order.ErrCartEmpty, order.ErrServiceUnavailable,
		order.ErrInvalidTransition, order.ErrInvalidPayment,
		discount.ErrCodeInactive, discount.ErrCodeNotYetValid, discount.ErrCodeExpired,
		discount.ErrCodeExhausted, discount.ErrBelowMinimum,
		appointment.ErrInvalidTransition, appointment.ErrDateInPast, appointment.ErrSlotInPast,
		payment.ErrNotRefundable, payment.ErrMissingIntent, payment.ErrAmountMismatch,
		payment.ErrUnsupportedMethod, quote.ErrUnknownService,
		user.ErrCannotDeleteSelf, user.ErrLastAdmin,
	}},
	{http.StatusBadGateway, []error{payment.ErrProviderFailure}},
	{http.StatusBadRequest, []error{
		utils.ErrInvalidBody, errInvalidID,
		cart.ErrInvalidQuantity, cart.ErrInvalidCartInput,
		catalog.ErrNameRequired, catalog.ErrInvalidPrice, catalog.ErrEmptyUpdate,
		chat.ErrEmptyMessage, chat.ErrMessageTooLong, chat.ErrGuestDetails, chat.ErrInvalidStatus,
		discount.ErrCodeRequired, discount.ErrInvalidType, discount.ErrInvalidValue,
		discount.ErrInvalidWindow, discount.ErrInvalidAmount,
		order.ErrInvalidMethod, order.ErrInvalidStatus, order.ErrEmptyUpdate, order.ErrCustomerRequired,
		payment.ErrInvalidMethod, payment.ErrInvalidUpdate,
		quote.ErrContactRequired, quote.ErrNothingRequested, quote.ErrInvalidStatus,
		quote.ErrInvalidPrice, quote.ErrEmptyUpdate,
		appointment.ErrInvalidDate, appointment.ErrInvalidSlot, appointment.ErrInvalidStatus,
		review.ErrInvalidRating, review.ErrCommentTooLong,
		contact.ErrInvalidInput, contact.ErrMessageTooLong,
		blog.ErrTitleRequired, blog.ErrEmptyUpdate,
		user.ErrInvalidEmail, user.ErrWeakPassword, user.ErrNameRequired, user.ErrInvalidRole,
	}},
}

// StatusFor maps a service error onto an HTTP status. Unknown errors are 500.
func StatusFor(err error) int {
	for _, group := range statusErrors {
		for _, target := range group.errs {
			if errors.Is(err, target) {
				return group.code
			}
		}
	}
	return http.StatusInternalServerError
}

// writeError answers {"error": ...}. Internal failures never leak their text.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := StatusFor(err)
	msg := err.Error()
	switch {
	case errors.Is(err, utils.ErrInvalidBody):
		msg = utils.ErrInvalidBody.Error()
	case code == http.StatusBadGateway:
		msg = "payment provider unavailable, please retry"
	case code == http.StatusInternalServerError:
		logger.FromCtx(r.Context()).Error("request failed",
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		msg = "internal server error"
	}
	utils.WriteJSONError(w, msg, code)
}
