package models

// EmailPayload is the queued form of an outgoing email.
type EmailPayload struct {
	To       string `json:"to"`
	Subject  string `json:"subject"`
	TextBody string `json:"textBody"`
	HTMLBody string `json:"htmlBody,omitempty"`
}
