package mailer

import (
	"chainacademy_backend/internal/config"
	"chainacademy_backend/pkg/logger"
	"fmt"
	"net/smtp"
	"strings"

	"go.uber.org/zap"
)

// Mailer sends fire-and-forget notification emails. Delivery is best effort;
// failures are logged and never surface to the request path.
type Mailer struct {
	cfg *config.SMTPConfig
}

func New(cfg *config.SMTPConfig) *Mailer {
	return &Mailer{cfg: cfg}
}

func (m *Mailer) send(to []string, subject, htmlBody string) error {
	from := m.cfg.Sender

	msg := "MIME-version: 1.0;\nContent-Type: text/html; charset=\"UTF-8\";\n"
	msg += fmt.Sprintf("From: ChainAcademy <%s>\r\n", from)
	msg += fmt.Sprintf("To: %s\r\n", strings.Join(to, ","))
	msg += fmt.Sprintf("Subject: %s\r\n\r\n", subject)
	msg += htmlBody

	auth := smtp.PlainAuth("", from, m.cfg.Password, m.cfg.Host)

	return smtp.SendMail(m.cfg.Host+":"+m.cfg.Port, auth, from, to, []byte(msg))
}

func (m *Mailer) dispatch(to, subject, title, body string) {
	if !m.cfg.Enabled {
		return
	}
	go func() {
		if err := m.send([]string{to}, subject, template(title, body)); err != nil {
			logger.Log.Error("Failed to send email",
				zap.String("subject", subject), zap.Error(err))
		}
	}()
}

func template(title, bodyContent string) string {
	return fmt.Sprintf(`
	<!DOCTYPE html>
	<html>
	<head>
		<style>
			body { font-family: 'Helvetica Neue', Helvetica, Arial, sans-serif; background-color: #0D1117; margin: 0; padding: 0; }
			.container { max-width: 600px; margin: 40px auto; background: #161B22; border-radius: 8px; overflow: hidden; }
			.header { background-color: #1F6FEB; padding: 30px; text-align: center; }
			.header h1 { color: #FFFFFF; margin: 0; font-size: 24px; letter-spacing: 1px; }
			.content { padding: 40px 30px; color: #C9D1D9; line-height: 1.6; }
			.content h2 { color: #FFFFFF; margin-top: 0; }
			.footer { padding: 20px; text-align: center; font-size: 12px; color: #8B949E; border-top: 1px solid #30363D; }
			.info-box { background: #0D419D22; padding: 15px; border-radius: 4px; border-left: 4px solid #1F6FEB; margin: 20px 0; }
		</style>
	</head>
	<body>
		<div class="container">
			<div class="header"><h1>CHAINACADEMY</h1></div>
			<div class="content">
				<h2>%s</h2>
				%s
			</div>
			<div class="footer">
				&copy; 2026 ChainAcademy. Refund release is governed by the staking contract, not this email.
			</div>
		</div>
	</body>
	</html>
	`, title, bodyContent)
}

func (m *Mailer) SendEnrollmentEmail(email, name, courseTitle string, staked float64) {
	subject := "Enrolled: " + courseTitle
	body := fmt.Sprintf(`
		<p>Hi %s,</p>
		<p>You are enrolled in <strong>%s</strong>.</p>`, name, courseTitle)
	if staked > 0 {
		body += fmt.Sprintf(`
		<div class="info-box">
			Your stake of <strong>%.4f ETH</strong> is held by the staking contract.
			Meet any one completion requirement before the course end date to unlock your refund.
		</div>`, staked)
	}
	m.dispatch(email, subject, "Welcome Aboard", body)
}

func (m *Mailer) SendRefundEligibleEmail(email, name, courseTitle string) {
	subject := "Stake refund unlocked: " + courseTitle
	body := fmt.Sprintf(`
		<p>Hi %s,</p>
		<p>You have met a completion requirement for <strong>%s</strong>.</p>
		<p>Your stake refund can now be claimed from the contract with your connected wallet.</p>`,
		name, courseTitle)
	m.dispatch(email, subject, "Refund Eligible", body)
}

func (m *Mailer) SendCourseCompletedEmail(email, name, courseTitle string) {
	subject := "Course completed: " + courseTitle
	body := fmt.Sprintf(`
		<p>Hi %s,</p>
		<p>Congratulations, you completed every section of <strong>%s</strong>.</p>`,
		name, courseTitle)
	m.dispatch(email, subject, "Course Completed", body)
}
