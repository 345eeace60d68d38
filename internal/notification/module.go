// Package notification consumes domain events published by the campaign and
// phone modules. It keeps an operations audit trail in the logs and escalates
// reconciliation warnings by email, so the publishing modules never depend on
// alerting concerns.
package notification

import (
	"context"
	"fmt"
	"time"

	"callops_backend/internal/events"
	"callops_backend/platform/config"
	"callops_backend/platform/logger"
)

// Sender delivers one plain-text email.
type Sender interface {
	Send(ctx context.Context, toEmail, subject, body string) error
}

// Module handles domain events for operational visibility.
type Module struct {
	sender   Sender
	opsEmail string
	log      *logger.Logger
}

// NewModule creates the notification module. sender may be nil when SMTP is
// not configured; reconciliation warnings are then logged only.
func NewModule(sender Sender, cfg config.NotificationConfig, log *logger.Logger) *Module {
	return &Module{
		sender:   sender,
		opsEmail: cfg.GetOpsAlertEmail(),
		log:      log,
	}
}

// RegisterHandlers subscribes the module to the domain events it consumes.
func (m *Module) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.CampaignDispatched{}.EventName(), m)
	bus.Subscribe(events.CampaignStatusRefreshed{}.EventName(), m)
	bus.Subscribe(events.PhoneNumberPurchased{}.EventName(), m)
	bus.Subscribe(events.PhoneNumberDeleted{}.EventName(), m)
	bus.Subscribe(events.ReconciliationWarning{}.EventName(), m)
}

// Handle implements events.Handler.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.CampaignDispatched:
		m.log.Info("campaign dispatched",
			"campaign_id", e.CampaignID.String(),
			"name", e.Name,
			"total_leads", e.TotalLeads,
			"called", e.Called,
			"failed", e.Failed,
			"status", e.Status,
		)
	case events.CampaignStatusRefreshed:
		m.log.Info("campaign status refreshed",
			"campaign_id", e.CampaignID.String(),
			"old_status", e.OldStatus,
			"new_status", e.NewStatus,
		)
	case events.PhoneNumberPurchased:
		m.log.Info("phone number purchased",
			"phone_id", e.PhoneID,
			"number", e.Number,
			"provider_sid", e.ProviderSID,
		)
	case events.PhoneNumberDeleted:
		if e.VapiDeleted {
			m.log.Info("phone number deleted", "phone_id", e.PhoneID)
		} else {
			m.log.Warn("phone number deleted locally but still registered upstream", "phone_id", e.PhoneID)
		}
	case events.ReconciliationWarning:
		m.log.ReconciliationWarning(e.Number, e.Step, e.Detail)
		return m.alert(ctx, e)
	}
	return nil
}

// alert emails the reconciliation warning to the configured ops address. The
// log entry above already recorded it, so a missing sender is not an error.
func (m *Module) alert(ctx context.Context, e events.ReconciliationWarning) error {
	if m.sender == nil || m.opsEmail == "" {
		return nil
	}

	subject := fmt.Sprintf("Reconciliation warning: %s (%s)", e.Number, e.Step)
	body := fmt.Sprintf(
		"A phone operation partially completed and needs follow-up.\n\n"+
			"Number: %s\nStep: %s\nProvider SID: %s\nDetail: %s\nOccurred: %s\n",
		e.Number, e.Step, e.ProviderSID, e.Detail, e.OccurredOn.Format(time.RFC3339),
	)

	if err := m.sender.Send(ctx, m.opsEmail, subject, body); err != nil {
		m.log.Error("failed to send reconciliation alert", "number", e.Number, "error", err.Error())
		return err
	}
	return nil
}
