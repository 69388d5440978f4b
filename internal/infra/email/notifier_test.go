package email

import (
	"context"
	"errors"
	"net/smtp"
	"testing"

	"github.com/oenmin/affect-analyzer/internal/domain/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNotifyFailure(t *testing.T) {
	job := entity.NewJob("user-1", "user-1/clip.mp4", 10, 3)
	job.MarkProcessing()
	job.MarkFailed("extract: frame extraction failed")

	var gotAddr string
	var gotTo []string
	var gotMsg string
	n := NewSMTPNotifier("mail.local", 2525, "noreply@affect.local", zap.NewNop())
	n.send = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotTo, gotMsg = addr, to, string(msg)
		return nil
	}

	require.NoError(t, n.NotifyFailure(context.Background(), "someone@example.com", job))

	assert.Equal(t, "mail.local:2525", gotAddr)
	assert.Equal(t, []string{"someone@example.com"}, gotTo)
	assert.Contains(t, gotMsg, "Subject: Affect analysis failed [Job "+job.ID.String()+"]")
	assert.Contains(t, gotMsg, "Video: user-1/clip.mp4")
	assert.Contains(t, gotMsg, "Error: extract: frame extraction failed")
	assert.Contains(t, gotMsg, "after 1 attempt(s)")
}

func TestNotifyFailureSendError(t *testing.T) {
	n := NewSMTPNotifier("mail.local", 2525, "noreply@affect.local", zap.NewNop())
	n.send = func(string, smtp.Auth, string, []string, []byte) error {
		return errors.New("connection refused")
	}

	err := n.NotifyFailure(context.Background(), "someone@example.com", entity.NewJob("u", "k", 1, 1))
	assert.ErrorContains(t, err, "connection refused")
}
