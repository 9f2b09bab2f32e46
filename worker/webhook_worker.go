package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/sirupsen/logrus"
	"github.com/valyala/fasthttp"
	"gorm.io/gorm"

	"momentum/events"
	"momentum/models"
	"momentum/utils"
)

const webhookUserAgent = "Momentum-Webhook/1.0"

// WebhookPayload is the wire envelope POSTed to the configured URL. The
// workspace id travels as a string to keep the envelope stable for
// consumers even if the id type ever changes.
type WebhookPayload struct {
	Event       string         `json:"event"`
	Timestamp   string         `json:"timestamp"`
	WorkspaceID string         `json:"workspaceId"`
	Data        events.Payload `json:"data"`
}

// WebhookWorker consumes lifecycle events from the bus and delivers them
// to workspace webhook endpoints. Delivery is fire-and-forget: no
// retries, no dead-letter, failures are logged only.
type WebhookWorker struct {
	DB      *gorm.DB
	Logger  *logrus.Entry
	Client  *fasthttp.Client
	Timeout time.Duration
}

func NewWebhookWorker(db *gorm.DB, timeout time.Duration) *WebhookWorker {
	return &WebhookWorker{
		DB:      db,
		Logger:  logrus.WithField("component", "webhook"),
		Client:  &fasthttp.Client{Name: webhookUserAgent},
		Timeout: timeout,
	}
}

// Start consumes the bus until ctx is cancelled.
func (ww *WebhookWorker) Start(ctx context.Context, bus *events.Bus) {
	ch, cancel := bus.Subscribe()
	defer cancel()

	ww.Logger.Info("Webhook worker started")

	for {
		select {
		case <-ctx.Done():
			ww.Logger.Info("Webhook worker shutting down...")
			return
		case event, ok := <-ch:
			if !ok {
				return
			}
			ww.Notify(event)
		}
	}
}

// Notify delivers a single event if the workspace has an enabled,
// subscribed webhook. Errors never propagate to the caller.
func (ww *WebhookWorker) Notify(event events.Event) {
	webhook, ok := ww.lookupConfig(event.WorkspaceID, event.Name)
	if !ok {
		return
	}

	status, err := ww.deliver(webhook, event.Name, event.WorkspaceID, event.Data)
	if err != nil {
		ww.Logger.WithFields(logrus.Fields{
			"workspace_id": event.WorkspaceID,
			"event":        event.Name,
			"url":          webhook.URL,
		}).Warnf("Webhook delivery failed: %v", err)
		sentry.CaptureException(fmt.Errorf("webhook delivery to workspace %d failed: %w", event.WorkspaceID, err))
		return
	}
	if status < 200 || status > 299 {
		ww.Logger.WithFields(logrus.Fields{
			"workspace_id": event.WorkspaceID,
			"event":        event.Name,
			"url":          webhook.URL,
			"status":       status,
		}).Warn("Webhook endpoint returned non-2xx status")
	}
}

// SendTest performs the one synchronous delivery in the system: a fixed
// "test" event for UI diagnostics. Returns the HTTP status on success.
func (ww *WebhookWorker) SendTest(workspaceID uint) (int, error) {
	var webhook models.Webhook
	if err := ww.DB.Where("workspace_id = ?", workspaceID).First(&webhook).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return 0, fmt.Errorf("no webhook configured")
		}
		return 0, err
	}

	status, err := ww.deliver(&webhook, "test", workspaceID, events.Payload{
		Action:   "test",
		Resource: map[string]string{"message": "This is a test webhook from Momentum"},
	})
	if err != nil {
		return 0, err
	}
	if status < 200 || status > 299 {
		return status, fmt.Errorf("endpoint returned HTTP %d", status)
	}
	return status, nil
}

func (ww *WebhookWorker) lookupConfig(workspaceID uint, event string) (*models.Webhook, bool) {
	var webhook models.Webhook
	err := ww.DB.Where("workspace_id = ? AND enabled = ?", workspaceID, true).First(&webhook).Error
	if err != nil {
		if err != gorm.ErrRecordNotFound {
			ww.Logger.Warnf("Webhook config lookup failed for workspace %d: %v", workspaceID, err)
		}
		return nil, false
	}
	if !webhook.Subscribed(event) {
		return nil, false
	}
	return &webhook, true
}

func (ww *WebhookWorker) deliver(webhook *models.Webhook, event string, workspaceID uint, data events.Payload) (int, error) {
	payload := WebhookPayload{
		Event:       event,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
		WorkspaceID: strconv.FormatUint(uint64(workspaceID), 10),
		Data:        data,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal payload: %w", err)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(webhook.URL)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.Header.SetUserAgent(webhookUserAgent)
	if webhook.Secret != "" {
		req.Header.Set("X-Webhook-Signature", "sha256="+utils.SignPayload(webhook.Secret, body))
	}
	req.SetBody(body)

	if err := ww.Client.DoTimeout(req, resp, ww.Timeout); err != nil {
		return 0, err
	}
	return resp.StatusCode(), nil
}
