package incidents

import (
	"fmt"
	"strings"

	"github.com/invtrail/inventory-trail-go/mailer"
)

const (
	headerSystem = "X-System"
	headerIncID  = "X-Inc-ID"
	headerEvent  = "X-Event"

	systemName = "Incidents"

	mailFooter = "Este es un aviso automático del sistema de incidencias."
)

// dedupRecipients drops empty addresses, the excluded one (case-insensitive)
// and duplicates, preserving first-seen order.
func dedupRecipients(emails []string, exclude string) []string {
	seen := make(map[string]struct{})
	excluded := strings.ToLower(strings.TrimSpace(exclude))
	out := make([]string, 0, len(emails))

	for _, email := range emails {
		e := strings.TrimSpace(email)
		if e == "" || strings.ToLower(e) == excluded {
			continue
		}

		if _, dup := seen[e]; dup {
			continue
		}

		seen[e] = struct{}{}
		out = append(out, e)
	}

	return out
}

func orDash(s string) string {
	if s == "" {
		return "—"
	}

	return s
}

func newIncidentMail(incID int64, title, description, actor, replyTo, equipmentCode, areaName string, admins []string) mailer.Message {
	lines := []string{
		fmt.Sprintf("Incidencia #%d", incID),
		"Título: " + title,
		"Descripción:\n" + description,
		"",
		"Reportado por: " + actor,
		"Email: " + orProvided(replyTo),
	}

	if equipmentCode != "" {
		lines = append(lines, "Equipo: "+equipmentCode)
	}

	if areaName != "" {
		lines = append(lines, "Área: "+areaName)
	}

	return mailer.Message{
		Subject:      fmt.Sprintf("[INCIDENCIA #%d] %s", incID, title),
		Body:         strings.Join(lines, "\n"),
		To:           dedupRecipients(admins, ""),
		ReplyTo:      replyTo,
		SubjectActor: actor,
		ExtraHeaders: eventHeaders(incID, "NEW_INC"),
	}
}

func messageMail(hdr incidentHeaderRow, actor, body string, staffOnly bool, senderEmail string, recipients []string) mailer.Message {
	event := "NEW_MSG"
	if staffOnly {
		event = "NEW_MSG_STAFF"
	}

	lines := []string{
		fmt.Sprintf("Incidencia #%d · %s", hdr.id, hdr.title),
		fmt.Sprintf("Área: %s · Equipo: %s", orDash(hdr.areaName), orDash(hdr.equipmentCode)),
		"Estado actual: " + hdr.status,
		"",
		actor + " escribió:",
		body,
		"",
		"—",
		mailFooter,
	}

	return mailer.Message{
		Subject:      fmt.Sprintf("[INCIDENCIA #%d] Nueva respuesta: %s", hdr.id, hdr.title),
		Body:         strings.Join(lines, "\n"),
		To:           recipients,
		ReplyTo:      senderEmail,
		SubjectActor: actor,
		ExtraHeaders: eventHeaders(hdr.id, event),
	}
}

func assignedMail(hdr incidentHeaderRow, actor string, recipients []string) mailer.Message {
	lines := []string{
		fmt.Sprintf("Te asignaron la incidencia #%d: %s", hdr.id, hdr.title),
		"Reportado por: " + hdr.reportedBy,
		fmt.Sprintf("Área: %s · Equipo: %s", orDash(hdr.areaName), orDash(hdr.equipmentCode)),
		"",
		"—",
		mailFooter,
	}

	return mailer.Message{
		Subject:      fmt.Sprintf("[INCIDENCIA #%d] Asignada: %s", hdr.id, hdr.title),
		Body:         strings.Join(lines, "\n"),
		To:           recipients,
		SubjectActor: actor,
		ExtraHeaders: eventHeaders(hdr.id, "ASSIGNED"),
	}
}

func closedMail(hdr incidentHeaderRow, actor, replyTo string, recipients []string) mailer.Message {
	lines := []string{
		fmt.Sprintf("La incidencia #%d ha sido CERRADA.", hdr.id),
		"Título: " + hdr.title,
		fmt.Sprintf("Área: %s · Equipo: %s", orDash(hdr.areaName), orDash(hdr.equipmentCode)),
		"",
		"Cerrado por: " + actor,
		"",
		"—",
		mailFooter,
	}

	return mailer.Message{
		Subject:      fmt.Sprintf("[INCIDENCIA #%d] Cerrada: %s", hdr.id, hdr.title),
		Body:         strings.Join(lines, "\n"),
		To:           recipients,
		ReplyTo:      replyTo,
		SubjectActor: actor,
		ExtraHeaders: eventHeaders(hdr.id, "CLOSED"),
	}
}

func eventHeaders(incID int64, event string) map[string]string {
	return map[string]string{
		headerSystem: systemName,
		headerIncID:  fmt.Sprintf("%d", incID),
		headerEvent:  event,
	}
}

func orProvided(email string) string {
	if email == "" {
		return "no provisto"
	}

	return email
}
