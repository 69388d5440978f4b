package email

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/oenmin/affect-analyzer/internal/domain/entity"
	"go.uber.org/zap"
)

type SMTPNotifier struct {
	host   string
	port   int
	from   string
	send   func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
	logger *zap.Logger
}

func NewSMTPNotifier(host string, port int, from string, logger *zap.Logger) *SMTPNotifier {
	return &SMTPNotifier{host: host, port: port, from: from, send: smtp.SendMail, logger: logger}
}

func (n *SMTPNotifier) NotifyFailure(_ context.Context, userEmail string, job *entity.Job) error {
	addr := fmt.Sprintf("%s:%d", n.host, n.port)
	msg := failureMessage(n.from, userEmail, job)

	if err := n.send(addr, nil, n.from, []string{userEmail}, msg); err != nil {
		n.logger.Error("failed to send failure notification email",
			zap.String("to", userEmail),
			zap.String("job_id", job.ID.String()),
			zap.Error(err),
		)
		return fmt.Errorf("send email: %w", err)
	}

	n.logger.Info("failure notification email sent",
		zap.String("to", userEmail),
		zap.String("job_id", job.ID.String()),
	)
	return nil
}

func failureMessage(from, to string, job *entity.Job) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: Affect analysis failed [Job %s]\r\n", job.ID)
	b.WriteString("\r\n")
	b.WriteString("Hello,\r\n\r\n")
	fmt.Fprintf(&b, "We could not analyze your video after %d attempt(s).\r\n\r\n", job.Attempt)
	fmt.Fprintf(&b, "Job ID: %s\r\n", job.ID)
	fmt.Fprintf(&b, "Video: %s\r\n", job.VideoKey)
	fmt.Fprintf(&b, "Error: %s\r\n\r\n", job.ErrorMessage)
	b.WriteString("Please upload the video again or contact support.\r\n")
	return []byte(b.String())
}
