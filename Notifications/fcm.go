package Notifications

import (
	"context"
	"errors"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

type messenger interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// TokenSource returns the device tokens registered for a worker.
type TokenSource func(ctx context.Context, worker string) ([]string, error)

// FCM pushes personal notices to the recipient's devices.
type FCM struct {
	client messenger
	tokens TokenSource
}

// NewFCM initializes Firebase Cloud Messaging from a service account key.
func NewFCM(ctx context.Context, credentialsFile string, tokens TokenSource) (*FCM, error) {
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("initialize firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("get messaging client: %w", err)
	}
	return &FCM{client: client, tokens: tokens}, nil
}

func (f *FCM) Send(ctx context.Context, n Notice) error {
	if n.Recipient == "" {
		return nil
	}
	tokens, err := f.tokens(ctx, n.Recipient)
	if err != nil {
		return err
	}

	data := map[string]string{"kind": string(n.Kind)}
	for k, v := range n.Data {
		data[k] = v
	}

	var errs []error
	for _, token := range tokens {
		_, err := f.client.Send(ctx, &messaging.Message{
			Token:        token,
			Data:         data,
			Notification: &messaging.Notification{Title: n.Title, Body: n.Body},
			Android:      &messaging.AndroidConfig{Priority: "high"},
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("push to %s: %w", n.Recipient, err))
		}
	}
	return errors.Join(errs...)
}
