// Package notify sends operator alerts for decisions that need attention.
package notify

import (
	"fmt"
	"net/smtp"
	"time"

	"github.com/jordan-wright/email"
	"github.com/sirupsen/logrus"

	"github.com/tglc-labs/liquidity-service/internal/config"
	"github.com/tglc-labs/liquidity-service/internal/models"
)

// Sender emails the operator when a decision ends partially failed or
// indeterminate. Both states require manual follow-up: missing collateral
// protection in the first case, ledger reconciliation in the second.
type Sender struct {
	cfg *config.Config
	log *logrus.Logger
}

// NewSender creates an operator alert sender.
func NewSender(cfg *config.Config, log *logrus.Logger) *Sender {
	return &Sender{cfg: cfg, log: log}
}

// AlertDecision sends an alert email describing the decision.
func (s *Sender) AlertDecision(d *models.CreditDecision) error {
	e := email.NewEmail()
	e.From = s.cfg.SenderEmail
	e.To = []string{s.cfg.OperatorEmail}

	var body string
	switch d.Status {
	case models.DecisionPartialFailure:
		e.Subject = fmt.Sprintf("Partial settlement failure: decision %s", d.ID)
		body = fmt.Sprintf(
			"Decision %s for %s settled WITHOUT collateral protection.\n\n"+
				"Escrow transaction: %s\n"+
				"Bank: %s (%s)\n"+
				"Amount: %s XRP\n"+
				"Detail: %s\n\n"+
				"The escrow exists on the ledger and cannot be rolled back. "+
				"The clawback right must be registered manually.\n",
			d.ID, d.BusinessID, d.TxHash, d.BankName, d.BankID, d.ApprovedAmount, d.Reason,
		)
	case models.DecisionIndeterminate:
		e.Subject = fmt.Sprintf("Indeterminate ledger submission: decision %s", d.ID)
		body = fmt.Sprintf(
			"Decision %s for %s could not be confirmed against the ledger.\n\n"+
				"Bank: %s (%s)\n"+
				"Detail: %s\n\n"+
				"Reconcile against the ledger transaction history before retrying. "+
				"Exposure capacity remains reserved until then.\n",
			d.ID, d.BusinessID, d.BankName, d.BankID, d.Reason,
		)
	default:
		return nil
	}
	body += fmt.Sprintf("\nGenerated at %s\n", time.Now().UTC().Format(time.RFC3339))
	e.Text = []byte(body)

	addr := fmt.Sprintf("%s:%s", s.cfg.SMTPHost, s.cfg.SMTPPort)
	auth := smtp.PlainAuth("", s.cfg.SMTPUsername, s.cfg.SMTPPassword, s.cfg.SMTPHost)
	if err := e.Send(addr, auth); err != nil {
		s.log.Errorf("Failed to send alert for decision %s: %v", d.ID, err)
		return fmt.Errorf("failed to send alert: %w", err)
	}

	s.log.Infof("Operator alert sent for decision %s: %s", d.ID, e.Subject)
	return nil
}
