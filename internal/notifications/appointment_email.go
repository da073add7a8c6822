package notifications

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"

	"barberbook-backend/internal/booking"
)

const appointmentEmailTemplate = `<!DOCTYPE html>
<html>
<body>
  <p>Hi {{.Name}},</p>
  <p>{{.Lead}}</p>
  <ul>
    <li>Service: {{.ServiceName}}</li>
    <li>Date: {{.Date}}</li>
    <li>Time: {{.Time}}</li>
    {{- if .DurationMinutes}}
    <li>Duration: {{.DurationMinutes}} minutes</li>
    {{- end}}
    <li>Payment: {{.PaymentLabel}}</li>
    <li>Price: {{.Price}}</li>
    <li>Booking reference: {{.AppointmentID}}</li>
  </ul>
  <p>{{.Footer}}</p>
</body>
</html>`

var appointmentEmailTmpl = template.Must(template.New("appointment_email").Parse(appointmentEmailTemplate))

type appointmentEmailData struct {
	Name            string
	Lead            string
	ServiceName     string
	Date            string
	Time            string
	DurationMinutes int
	PaymentLabel    string
	Price           string
	AppointmentID   string
	Footer          string
}

// SendBookingReceived tells the client the request was registered and is
// waiting for confirmation.
func (c *BrevoClient) SendBookingReceived(ctx context.Context, appointment booking.Appointment) (string, error) {
	if c == nil {
		return "", errors.New("brevo client is nil")
	}
	subject := fmt.Sprintf("Booking received - %s", appointment.Service.Name)
	body, err := buildAppointmentHTML(appointment,
		"We received your booking request. We will confirm it shortly.",
		"You will get another email once your appointment is confirmed.",
	)
	if err != nil {
		return "", err
	}
	return c.sendHTML(ctx, appointment.Email, appointment.ClientName, subject, body)
}

func (c *BrevoClient) SendBookingConfirmed(ctx context.Context, appointment booking.Appointment) (string, error) {
	if c == nil {
		return "", errors.New("brevo client is nil")
	}
	subject := fmt.Sprintf("Booking confirmed - %s", appointment.Service.Name)
	body, err := buildAppointmentHTML(appointment,
		"Your appointment is confirmed. Here are the details:",
		"See you at the shop. If you need to reschedule, reply to this email.",
	)
	if err != nil {
		return "", err
	}
	return c.sendHTML(ctx, appointment.Email, appointment.ClientName, subject, body)
}

func (c *BrevoClient) SendBookingCancelled(ctx context.Context, appointment booking.Appointment) (string, error) {
	if c == nil {
		return "", errors.New("brevo client is nil")
	}
	subject := fmt.Sprintf("Booking cancelled - %s", appointment.Service.Name)
	body, err := buildAppointmentHTML(appointment,
		"Your appointment was cancelled. The slot has been released.",
		"You can book a new time whenever it suits you.",
	)
	if err != nil {
		return "", err
	}
	return c.sendHTML(ctx, appointment.Email, appointment.ClientName, subject, body)
}

func (c *BrevoClient) SendBookingReminder(ctx context.Context, appointment booking.Appointment) (string, error) {
	if c == nil {
		return "", errors.New("brevo client is nil")
	}
	subject := fmt.Sprintf("Reminder - %s tomorrow", appointment.Service.Name)
	body, err := buildAppointmentHTML(appointment,
		"A quick reminder about your upcoming appointment:",
		"See you soon.",
	)
	if err != nil {
		return "", err
	}
	return c.sendHTML(ctx, appointment.Email, appointment.ClientName, subject, body)
}

func buildAppointmentHTML(appointment booking.Appointment, lead, footer string) (string, error) {
	data := appointmentEmailData{
		Name:            appointment.ClientName,
		Lead:            lead,
		ServiceName:     appointment.Service.Name,
		Date:            appointment.Date,
		Time:            appointment.Time,
		DurationMinutes: appointment.Service.DurationMinutes,
		PaymentLabel:    paymentMethodLabel(appointment.PaymentMethod),
		Price:           formatPrice(appointment.Service.Price),
		AppointmentID:   appointment.ID,
		Footer:          footer,
	}
	var buf bytes.Buffer
	if err := appointmentEmailTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func paymentMethodLabel(value string) string {
	switch value {
	case booking.PaymentCash:
		return "Cash at the shop"
	case booking.PaymentCard:
		return "Card at the shop"
	case booking.PaymentPix:
		return "Pix"
	default:
		return value
	}
}

// formatPrice renders integer cents as a currency string.
func formatPrice(cents int) string {
	return fmt.Sprintf("R$ %d.%02d", cents/100, cents%100)
}
