package notify

import (
	"bytes"
	"fmt"
	"text/template"
)

// Message is a rendered notification.
type Message struct {
	Subject string
	Body    string
	// SMS is a one-line variant for text delivery. Empty means email only.
	SMS string
}

type templateSet struct {
	subject string
	body    *template.Template
	sms     string
}

const appointmentDetails = `
Service: {{.Appointment.Service}}
Date: {{.Appointment.Date}}
Time: {{.Appointment.Time}}
`

var templates = map[Kind]templateSet{
	KindCreated: {
		subject: "We Received Your Appointment Request",
		body: template.Must(template.New("created").Parse(`Dear {{.Recipient.Name}},

We have received your appointment request:
` + appointmentDetails + `
We will review it and write again once it is confirmed.

Best regards,
The Salon Team
`)),
	},
	KindAdminNotified: {
		subject: "New Booking Request",
		body: template.Must(template.New("admin").Parse(`New booking request:

Name: {{.Appointment.CustomerName}}
Email: {{.Appointment.CustomerEmail}}
Phone: {{.Appointment.CustomerPhone}}` + appointmentDetails + `
Log in to the admin dashboard to review it.
`)),
	},
	KindConfirmed: {
		subject: "Your Appointment is Confirmed",
		body: template.Must(template.New("confirmed").Parse(`Dear {{.Recipient.Name}},

Your appointment is confirmed:
` + appointmentDetails + `
We look forward to seeing you.

Best regards,
The Salon Team
`)),
		sms: "Your {{.Appointment.Service}} appointment on {{.Appointment.Date}} at {{.Appointment.Time}} is confirmed.",
	},
	KindUpdated: {
		subject: "Your Appointment Details Were Updated",
		body: template.Must(template.New("updated").Parse(`Dear {{.Recipient.Name}},

Your appointment details were updated. The current details are:
` + appointmentDetails + `Status: {{.Appointment.Status}}

If this does not look right, please contact us.

Best regards,
The Salon Team
`)),
	},
	KindCancelled: {
		subject: "Your Appointment Has Been Cancelled",
		body: template.Must(template.New("cancelled").Parse(`Dear {{.Recipient.Name}},

The following appointment has been cancelled:
` + appointmentDetails + `
You are welcome to book another time.

Best regards,
The Salon Team
`)),
		sms: "Your {{.Appointment.Service}} appointment on {{.Appointment.Date}} at {{.Appointment.Time}} has been cancelled.",
	},
	KindContact: {
		subject: "New Contact Form Message from {{.Contact.Name}}",
		body: template.Must(template.New("contact").Parse(`New message from the website:

Name: {{.Contact.Name}}
Email: {{.Contact.Email}}
Phone: {{.Contact.Phone}}
Subject: {{.Contact.Subject}}

{{.Contact.Message}}
`)),
	},
	KindContactAck: {
		subject: "We received your message",
		body: template.Must(template.New("contact_ack").Parse(`Dear {{.Contact.Name}},

Thank you for getting in touch. We will reply as soon as we can.

Best regards,
The Salon Team
`)),
	},
}

var smsTemplates = func() map[Kind]*template.Template {
	out := map[Kind]*template.Template{}
	for k, t := range templates {
		if t.sms != "" {
			out[k] = template.Must(template.New(string(k) + "_sms").Parse(t.sms))
		}
	}
	return out
}()

var subjectTemplates = func() map[Kind]*template.Template {
	out := map[Kind]*template.Template{}
	for k, t := range templates {
		out[k] = template.Must(template.New(string(k) + "_subject").Parse(t.subject))
	}
	return out
}()

// Render builds the message for evt.
func Render(evt Event) (Message, error) {
	set, ok := templates[evt.Kind]
	if !ok {
		return Message{}, fmt.Errorf("no template for %q", evt.Kind)
	}
	if evt.Appointment == nil && evt.Contact == nil {
		return Message{}, fmt.Errorf("event %s has no payload", evt.ID)
	}

	var msg Message
	var buf bytes.Buffer
	if err := subjectTemplates[evt.Kind].Execute(&buf, evt); err != nil {
		return Message{}, fmt.Errorf("render %s subject: %w", evt.Kind, err)
	}
	msg.Subject = buf.String()

	buf.Reset()
	if err := set.body.Execute(&buf, evt); err != nil {
		return Message{}, fmt.Errorf("render %s body: %w", evt.Kind, err)
	}
	msg.Body = buf.String()

	if t, ok := smsTemplates[evt.Kind]; ok {
		buf.Reset()
		if err := t.Execute(&buf, evt); err != nil {
			return Message{}, fmt.Errorf("render %s sms: %w", evt.Kind, err)
		}
		msg.SMS = buf.String()
	}
	return msg, nil
}
