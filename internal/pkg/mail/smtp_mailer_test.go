package mail

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/PaddleSync/internal/pkg/config"
)

func TestSMTPMailer_Send(t *testing.T) {
	m := NewSMTPMailer(config.Mail{Host: "smtp.local", Port: "2525", Sender: "alerts@example.com"})

	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg string
	m.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, string(msg)
		return nil
	}

	err := m.Send(context.Background(), []string{"ops@example.com", "dev@example.com"}, "Retry exhausted", "evt_1 failed")
	require.NoError(t, err)
	assert.Equal(t, "smtp.local:2525", gotAddr)
	assert.Equal(t, "alerts@example.com", gotFrom)
	assert.Equal(t, []string{"ops@example.com", "dev@example.com"}, gotTo)
	assert.True(t, strings.Contains(gotMsg, "Subject: Retry exhausted\r\n"))
	assert.True(t, strings.HasSuffix(gotMsg, "evt_1 failed"))
}

func TestSMTPMailer_NotConfigured(t *testing.T) {
	m := NewSMTPMailer(config.Mail{})
	assert.False(t, m.Configured())
	assert.ErrorIs(t, m.Send(context.Background(), []string{"ops@example.com"}, "s", "b"), ErrNotConfigured)
}

func TestSMTPMailer_SendError(t *testing.T) {
	m := NewSMTPMailer(config.Mail{Host: "smtp.local", Port: "25", Sender: "a@example.com"})
	m.send = func(string, smtp.Auth, string, []string, []byte) error {
		return errors.New("connection refused")
	}
	assert.EqualError(t, m.Send(context.Background(), []string{"ops@example.com"}, "s", "b"), "connection refused")
}
