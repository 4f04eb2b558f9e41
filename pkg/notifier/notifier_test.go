package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/angelmondragon/inventory-service/pkg/config"
	pkgerrors "github.com/angelmondragon/inventory-service/pkg/errors"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func sampleAlert() LowStockAlert {
	return LowStockAlert{
		ProductID:         uuid.MustParse("6f1c1b8e-4a7a-4f43-9a7e-0c3f9e2f1a11"),
		SKU:               "SKU-1",
		ProductName:       "Widget",
		AvailableQuantity: 3,
		ReorderPoint:      5,
		Warehouse:         "main",
	}
}

func TestHTTPNotifierPostsPayload(t *testing.T) {
	var capturedURL string
	var body map[string]any
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		capturedURL = req.URL.String()
		raw, _ := io.ReadAll(req.Body)
		if err := json.Unmarshal(raw, &body); err != nil {
			t.Fatalf("unmarshal request: %v", err)
		}
		return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader(`{}`)), Header: http.Header{}}, nil
	})

	n, err := NewHTTPNotifier("http://notify.test/", WithHTTPClient(&http.Client{Transport: rt}))
	if err != nil {
		t.Fatalf("new notifier: %v", err)
	}
	if err := n.NotifyLowStock(context.Background(), sampleAlert()); err != nil {
		t.Fatalf("notify: %v", err)
	}

	if capturedURL != "http://notify.test/api/notifications/send" {
		t.Fatalf("unexpected URL %q", capturedURL)
	}
	if body["type"] != EventLowStock {
		t.Fatalf("unexpected type %v", body["type"])
	}
	if body["productId"] != "6f1c1b8e-4a7a-4f43-9a7e-0c3f9e2f1a11" {
		t.Fatalf("unexpected product id %v", body["productId"])
	}
	data := body["data"].(map[string]any)
	if data["sku"] != "SKU-1" || data["availableQuantity"] != float64(3) || data["reorderPoint"] != float64(5) {
		t.Fatalf("unexpected data %v", data)
	}
}

func TestHTTPNotifierNon2xx(t *testing.T) {
	rt := roundTripFunc(func(*http.Request) (*http.Response, error) {
		return &http.Response{StatusCode: http.StatusInternalServerError, Body: io.NopCloser(strings.NewReader("down")), Header: http.Header{}}, nil
	})
	n, _ := NewHTTPNotifier("http://notify.test", WithHTTPClient(&http.Client{Transport: rt}))
	err := n.NotifyLowStock(context.Background(), sampleAlert())
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

type fakePublisher struct {
	topic string
	data  []byte
	attrs map[string]string
	err   error
}

func (f *fakePublisher) Publish(_ context.Context, topic string, data []byte, attrs map[string]string) (string, error) {
	f.topic = topic
	f.data = data
	f.attrs = attrs
	return "msg-1", f.err
}

func TestPubSubNotifierPublishes(t *testing.T) {
	pub := &fakePublisher{}
	n, err := NewPubSubNotifier(pub, "inventory-low-stock")
	if err != nil {
		t.Fatalf("new notifier: %v", err)
	}
	if err := n.NotifyLowStock(context.Background(), sampleAlert()); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if pub.topic != "inventory-low-stock" {
		t.Fatalf("unexpected topic %q", pub.topic)
	}
	if pub.attrs["event_type"] != EventLowStock {
		t.Fatalf("missing event_type attribute: %v", pub.attrs)
	}
	var decoded payload
	if err := json.Unmarshal(pub.data, &decoded); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if decoded.Data.ProductName != "Widget" {
		t.Fatalf("unexpected payload %+v", decoded)
	}
}

func TestPubSubNotifierWrapsPublishError(t *testing.T) {
	pub := &fakePublisher{err: errors.New("unavailable")}
	n, _ := NewPubSubNotifier(pub, "topic")
	if err := n.NotifyLowStock(context.Background(), sampleAlert()); err == nil {
		t.Fatal("expected publish error")
	}
}

func TestNewSelectsByKind(t *testing.T) {
	cfg := &config.Config{}
	cfg.Notifier.Kind = "none"
	n, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("none: %v", err)
	}
	if _, ok := n.(Noop); !ok {
		t.Fatalf("expected Noop, got %T", n)
	}

	cfg.Notifier.Kind = "http"
	cfg.Collaborators.NotificationServiceURL = "http://notify.test"
	n, err = New(cfg, nil)
	if err != nil {
		t.Fatalf("http: %v", err)
	}
	if _, ok := n.(*HTTPNotifier); !ok {
		t.Fatalf("expected HTTPNotifier, got %T", n)
	}

	cfg.Notifier.Kind = "pubsub"
	cfg.PubSub.LowStockTopic = "topic"
	if _, err := New(cfg, nil); err == nil {
		t.Fatal("pubsub without publisher should fail")
	}
	n, err = New(cfg, &fakePublisher{})
	if err != nil {
		t.Fatalf("pubsub: %v", err)
	}
	if _, ok := n.(*PubSubNotifier); !ok {
		t.Fatalf("expected PubSubNotifier, got %T", n)
	}
}
