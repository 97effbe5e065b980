package main

import (
	"log/slog"

	"github.com/salonmonarch/booking/services/booking-service/internal/notify"
)

func newSenders(s settings, logger *slog.Logger) (notify.EmailSender, notify.SMSSender) {
	var email notify.EmailSender = notify.LogEmailSender{Logger: logger}
	if s.SMTPHost != "" {
		email = notify.NewSMTPSender(notify.SMTPConfig{
			Host:     s.SMTPHost,
			Port:     s.SMTPPort,
			Username: s.SMTPUser,
			Password: s.SMTPPassword,
			From:     s.SMTPFrom,
		})
	} else {
		logger.Warn("SMTP_HOST not set; emails are logged, not sent")
	}

	var sms notify.SMSSender = notify.NoopSMSSender{}
	if s.SMSWebhookURL != "" {
		sms = notify.NewWebhookSender(s.SMSWebhookURL, s.SMSWebhookAuth)
	}
	return email, sms
}

func newDispatcher(s settings, logger *slog.Logger) *notify.Dispatcher {
	email, sms := newSenders(s, logger)
	return notify.NewDispatcher(email, sms, logger, notify.DispatcherConfig{
		Workers:   s.NotifyWorkers,
		QueueSize: s.NotifyQueue,
	})
}
