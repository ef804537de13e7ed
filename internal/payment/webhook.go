package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/MikeMC777/tienda-ecom/internal/order"
)

var (
	ErrInvalidSignature = errors.New("invalid webhook signature")
)

// signatureTolerance bounds how stale a signed timestamp may be.
const signatureTolerance = 5 * time.Minute

// VerifySignature checks the gateway's "t=<unix>,v1=<hex>" header: HMAC-SHA256
// over "<t>.<payload>" with the shared secret, constant-time compare, bounded
// clock skew.
func VerifySignature(payload []byte, header, secret string, now time.Time) error {
	var ts int64
	var sig string
	for _, part := range strings.Split(header, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch k {
		case "t":
			ts, _ = strconv.ParseInt(v, 10, 64)
		case "v1":
			sig = v
		}
	}
	if ts == 0 || sig == "" {
		return ErrInvalidSignature
	}

	at := time.Unix(ts, 0)
	if at.Before(now.Add(-signatureTolerance)) || at.After(now.Add(signatureTolerance)) {
		return ErrInvalidSignature
	}

	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.", ts)
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(sig)) {
		return ErrInvalidSignature
	}
	return nil
}

// Event is the gateway's webhook envelope.
type Event struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

type intentObject struct {
	ID       string `json:"id"`
	Metadata struct {
		OrderID string `json:"order_id"`
	} `json:"metadata"`
}

type disputeObject struct {
	ID            string `json:"id"`
	PaymentIntent string `json:"payment_intent"`
}

// OrderStore is the slice of the order repository the webhook needs.
type OrderStore interface {
	SetPaymentStatus(ctx context.Context, id string, ps order.PaymentStatus, st order.Status) error
	SetPaymentStatusByRef(ctx context.Context, paymentRef string, ps order.PaymentStatus, st order.Status) error
}

// EventStore records handled event ids so replays under at-least-once
// delivery apply at most once.
type EventStore interface {
	// Processed reports whether the event id was already recorded.
	Processed(ctx context.Context, eventID string) (bool, error)
	// MarkProcessed records the event id once its effect has been applied.
	MarkProcessed(ctx context.Context, eventID string) error
}

type WebhookProcessor struct {
	orders OrderStore
	events EventStore
}

func NewWebhookProcessor(orders OrderStore, events EventStore) *WebhookProcessor {
	return &WebhookProcessor{orders: orders, events: events}
}

// Process applies one gateway event. Unrecognized types are acknowledged and
// ignored. Replays of an already-handled event are no-ops.
func (p *WebhookProcessor) Process(ctx context.Context, ev Event) error {
	seen, err := p.events.Processed(ctx, ev.ID)
	if err != nil {
		return fmt.Errorf("events.Processed: %w", err)
	}
	if seen {
		log.Printf("[webhook] replayed event %s (%s), skipping", ev.ID, ev.Type)
		return nil
	}

	if err := p.apply(ctx, ev); err != nil {
		return err
	}

	// Recorded only after the effect lands: a transient failure above leaves
	// the event unrecorded so the gateway's redelivery retries it. The status
	// overwrites are idempotent, so applying and then failing to record is
	// harmless on replay.
	if err := p.events.MarkProcessed(ctx, ev.ID); err != nil {
		return fmt.Errorf("events.MarkProcessed: %w", err)
	}
	return nil
}

func (p *WebhookProcessor) apply(ctx context.Context, ev Event) error {
	switch ev.Type {
	case "payment_intent.succeeded":
		return p.applyIntentStatus(ctx, ev, order.PaymentPaid, order.StatusConfirmed)

	case "payment_intent.payment_failed":
		return p.applyIntentStatus(ctx, ev, order.PaymentFailed, order.StatusCancelled)

	case "charge.dispute.created":
		var d disputeObject
		if err := json.Unmarshal(ev.Data.Object, &d); err != nil {
			return fmt.Errorf("decode dispute object: %w", err)
		}
		err := p.orders.SetPaymentStatusByRef(ctx, d.PaymentIntent, order.PaymentRefunded, order.StatusRefunded)
		if errors.Is(err, order.ErrNotFound) {
			log.Printf("[webhook] dispute %s references unknown payment %s", d.ID, d.PaymentIntent)
			return nil
		}
		return err

	default:
		log.Printf("[webhook] ignoring event type %s", ev.Type)
		return nil
	}
}

func (p *WebhookProcessor) applyIntentStatus(ctx context.Context, ev Event, ps order.PaymentStatus, st order.Status) error {
	var in intentObject
	if err := json.Unmarshal(ev.Data.Object, &in); err != nil {
		return fmt.Errorf("decode intent object: %w", err)
	}
	if in.Metadata.OrderID == "" {
		log.Printf("[webhook] event %s has no order_id metadata", ev.ID)
		return nil
	}
	err := p.orders.SetPaymentStatus(ctx, in.Metadata.OrderID, ps, st)
	if errors.Is(err, order.ErrNotFound) {
		log.Printf("[webhook] event %s references unknown order %s", ev.ID, in.Metadata.OrderID)
		return nil
	}
	return err
}
