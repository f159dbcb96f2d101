package mailer

import (
	"context"
	"fmt"
	"time"

	"jailroster/pkg/domain"
	"jailroster/pkg/export"
)

// Dispatcher renders the roster to PDF and mails it.
type Dispatcher struct {
	client  *Client
	orgName string
}

// NewDispatcher wires a mail client. A nil client marks delivery as
// unconfigured; SendReport then fails with ErrNotConfigured.
func NewDispatcher(client *Client, orgName string) *Dispatcher {
	return &Dispatcher{client: client, orgName: orgName}
}

// SendReport generates the PDF roster report and delivers it to the
// recipient as an attachment.
func (d *Dispatcher) SendReport(ctx context.Context, recipient string, records []domain.Record) error {
	if d.client == nil {
		return ErrNotConfigured
	}
	pdf, err := export.ExportPDF(records, d.orgName)
	if err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	date := time.Now().Format("2006-01-02")
	msg := Message{
		To:      recipient,
		Subject: "Jail Roster Report - " + date,
		Body: fmt.Sprintf("Attached is the jail roster report generated on %s.\n\n"+
			"This report contains %d record(s).\n\nThis is an automated message.", date, len(records)),
		AttachmentName: fmt.Sprintf("jail_roster_%s.pdf", date),
		AttachmentType: "application/pdf",
		Attachment:     pdf,
	}
	return d.client.Send(ctx, msg)
}
