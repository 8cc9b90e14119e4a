package notify

import (
	"context"
	"log/slog"

	"carebook/backend/internal/domain"
)

// TemplateKind names the notification content for a lifecycle transition.
// Rendering and delivery belong to the downstream dispatcher.
type TemplateKind string

const (
	TemplateAppointmentCreated   TemplateKind = "appointment_created"
	TemplateAppointmentUpdated   TemplateKind = "appointment_updated"
	TemplateAppointmentCompleted TemplateKind = "appointment_completed"
	TemplateAppointmentCancelled TemplateKind = "appointment_cancelled"
	TemplateAppointmentNoShow    TemplateKind = "appointment_no_show"
)

// TemplateForStatus maps a terminal status to its notification template.
func TemplateForStatus(s domain.Status) (TemplateKind, bool) {
	switch s {
	case domain.StatusCompleted:
		return TemplateAppointmentCompleted, true
	case domain.StatusCancelled:
		return TemplateAppointmentCancelled, true
	case domain.StatusNoShow:
		return TemplateAppointmentNoShow, true
	}
	return "", false
}

// Intent describes one notification to be sent to one party. It carries
// everything a delivery channel needs; the engine never delivers anything
// itself.
type Intent struct {
	TargetPartyID string            `json:"target_party_id"`
	Template      TemplateKind      `json:"template"`
	Context       map[string]string `json:"context"`
}

// Dispatcher hands an intent to the delivery system. Implementations are
// fire-and-forget from the engine's perspective.
type Dispatcher interface {
	Dispatch(ctx context.Context, intent Intent) error
}

// Fanout translates one lifecycle transition into the intents for both
// parties. A party that could not be resolved is omitted rather than failing
// the event.
func Fanout(template TemplateKind, appt domain.Appointment, requester, provider *domain.Party) []Intent {
	contextData := map[string]string{
		"appointment_id": appt.ID.String(),
		"start_time":     appt.StartTime.UTC().Format("2006-01-02T15:04:05Z07:00"),
		"end_time":       appt.EndTime.UTC().Format("2006-01-02T15:04:05Z07:00"),
		"status":         string(appt.Status),
	}
	if requester != nil {
		contextData["requester_name"] = requester.Name
	}
	if provider != nil {
		contextData["provider_name"] = provider.Name
	}

	out := make([]Intent, 0, 2)
	if requester != nil {
		out = append(out, Intent{TargetPartyID: requester.ID, Template: template, Context: contextData})
	}
	if provider != nil {
		out = append(out, Intent{TargetPartyID: provider.ID, Template: template, Context: contextData})
	}
	return out
}

// Send dispatches each intent, logging failures. Delivery problems never
// surface to the caller: a booking that committed stays successful.
func Send(ctx context.Context, d Dispatcher, log *slog.Logger, intents []Intent) {
	if d == nil {
		return
	}
	for _, intent := range intents {
		if err := d.Dispatch(ctx, intent); err != nil {
			log.Warn(
				"notification dispatch failed",
				slog.Any("err", err),
				slog.String("target_party_id", intent.TargetPartyID),
				slog.String("template", string(intent.Template)),
			)
		}
	}
}
