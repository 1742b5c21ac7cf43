package notification

import (
	"fmt"
	"net/url"
	"strings"

	"venuebook/models"
)

// VerificationLink builds the email-confirmation URL for token.
func VerificationLink(baseURL, token string) string {
	return strings.TrimRight(baseURL, "/") + "/api/listings/verify?token=" + url.QueryEscape(token)
}

func VerificationEmail(to string, l *models.Listing, link string) Email {
	return Email{
		To:      to,
		Subject: "Confirm your listing: " + l.Name,
		TextBody: fmt.Sprintf(
			"Hi,\n\nPlease confirm your %s listing \"%s\" by opening the link below. "+
				"The link works once and expires in 24 hours.\n\n%s\n\nIf you did not create this listing, ignore this email.\n",
			listingKind(l.Type), l.Name, link),
	}
}

func ListingApprovedEmail(to string, l *models.Listing) Email {
	return Email{
		To:      to,
		Subject: "Your listing is live: " + l.Name,
		TextBody: fmt.Sprintf(
			"Good news! \"%s\" passed review. You can now activate it from your dashboard so clients can book it.\n",
			l.Name),
	}
}

func ListingRejectedEmail(to string, l *models.Listing) Email {
	return Email{
		To:      to,
		Subject: "Your listing needs changes: " + l.Name,
		TextBody: fmt.Sprintf(
			"\"%s\" was not approved.\n\nReviewer notes:\n%s\n\nYou can resubmit the listing after making changes.\n",
			l.Name, l.AdminNotes),
	}
}

func RefundIssuedEmail(to string, b *models.Booking) Email {
	return Email{
		To:      to,
		Subject: "Refund issued for booking " + b.ID,
		TextBody: fmt.Sprintf(
			"Your booking for %s was cancelled. KES %s is on its way back to you. "+
				"The transaction fee is not refundable.\n",
			b.EventDate.Format("2 Jan 2006"), b.RefundAmount.String()),
	}
}

func listingKind(t models.ListingType) string {
	if t == models.ListingVenue {
		return "venue"
	}
	return "service provider"
}
