package Notifications

import (
	"context"
	"fmt"

	"github.com/slack-go/slack"
)

type slackPoster interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
}

// Slack posts team-wide notices to one channel.
type Slack struct {
	client  slackPoster
	channel string
}

func NewSlack(token, channel string) *Slack {
	return &Slack{client: slack.New(token), channel: channel}
}

func (s *Slack) Send(ctx context.Context, n Notice) error {
	switch n.Kind {
	case DebtCreated, PaymentApplied, TaskCompleted:
	default:
		return nil
	}
	text := fmt.Sprintf("*%s*\n%s", n.Title, n.Body)
	if _, _, err := s.client.PostMessageContext(ctx, s.channel, slack.MsgOptionText(text, false)); err != nil {
		return fmt.Errorf("slack post: %w", err)
	}
	return nil
}
