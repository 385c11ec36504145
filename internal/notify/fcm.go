package notify

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/RohitSadavarti/vanita.lunch.home/internal/enum"
	"google.golang.org/api/option"
)

// Messenger is satisfied by *messaging.Client.
type Messenger interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// FCMSink publishes events to a Firebase Cloud Messaging topic that the
// admin mobile app subscribes to.
type FCMSink struct {
	client Messenger
	topic  string
}

func NewFCMSink(client Messenger, topic string) *FCMSink {
	return &FCMSink{client: client, topic: topic}
}

// NewFCMClient builds a messaging client from a service account file or its
// inline JSON. Inline JSON wins when both are set.
func NewFCMClient(ctx context.Context, credentialsFile, credentialsJSON string) (*messaging.Client, error) {
	var opt option.ClientOption
	switch {
	case credentialsJSON != "":
		opt = option.WithCredentialsJSON([]byte(credentialsJSON))
	case credentialsFile != "":
		opt = option.WithCredentialsFile(credentialsFile)
	default:
		return nil, errors.New("no firebase credentials configured")
	}

	app, err := firebase.NewApp(ctx, nil, opt)
	if err != nil {
		return nil, fmt.Errorf("init firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("init firebase messaging: %w", err)
	}
	return client, nil
}

func (s *FCMSink) Name() string { return "fcm" }

func (s *FCMSink) Send(ctx context.Context, e Event) error {
	_, err := s.client.Send(ctx, s.message(e))
	return err
}

func (s *FCMSink) message(e Event) *messaging.Message {
	var title, body string
	switch e.Type {
	case enum.EventOrderCreated:
		title = "New Order Received!"
		body = fmt.Sprintf("Order #%s from %s for ₹%s has been placed.", e.OrderID, e.CustomerName, e.Total)
	default:
		title = "Order Updated"
		body = fmt.Sprintf("Order #%s is now %s.", e.OrderID, e.OrderStatus)
	}

	return &messaging.Message{
		Topic: s.topic,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: map[string]string{
			"type":          e.Type,
			"id":            strconv.FormatInt(e.ID, 10),
			"order_id":      e.OrderID,
			"customer_name": e.CustomerName,
			"total":         e.Total,
			"status":        e.Status,
			"order_status":  e.OrderStatus,
			"source":        e.Source,
			"item_count":    strconv.Itoa(len(e.Items)),
		},
		Android: &messaging.AndroidConfig{Priority: "high"},
	}
}
