package model

import "time"

// ContactMessage is a general enquiry sent through the public contact form.
type ContactMessage struct {
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Phone      string    `json:"phone,omitempty"`
	Subject    string    `json:"subject,omitempty"`
	Message    string    `json:"message"`
	ReceivedAt time.Time `json:"receivedAt"`
}
