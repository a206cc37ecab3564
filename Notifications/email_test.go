package Notifications

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Aerofield/Config"
)

func TestEmail_MailsBillingNotices(t *testing.T) {
	e := NewEmail(Config.SMTPConfig{
		Host:     "smtp.example.com",
		Port:     587,
		From:     "ledger@example.com",
		FromName: "Aerofield",
		To:       []string{"office@example.com", "owner@example.com"},
	})
	var sent [][]byte
	var to []string
	e.send = func(_ context.Context, recipients []string, msg []byte) error {
		to = recipients
		sent = append(sent, msg)
		return nil
	}

	require.NoError(t, e.Send(context.Background(), Notice{Kind: TaskAssigned, Title: "ignored"}))
	assert.Empty(t, sent)

	require.NoError(t, e.Send(context.Background(), Notice{Kind: PaymentApplied, Title: "Payment received", Body: "Vale paid 100.00"}))
	require.Len(t, sent, 1)
	assert.Equal(t, []string{"office@example.com", "owner@example.com"}, to)

	msg := string(sent[0])
	assert.Contains(t, msg, "From: Aerofield <ledger@example.com>\r\n")
	assert.Contains(t, msg, "To: office@example.com, owner@example.com\r\n")
	assert.Contains(t, msg, "Subject: Payment received\r\n")
	assert.Contains(t, msg, "\r\n\r\nVale paid 100.00\r\n")
}
