package notify

import (
	"encoding/json"
	"net/http"

	"trackflow/common"

	"github.com/fundwit/go-commons/types"
	"github.com/sirupsen/logrus"
)

type Notification struct {
	EntityType  string     `json:"entityType"`
	EntityID    types.ID   `json:"entityId"`
	EntityTitle string     `json:"entityTitle"`
	StateName   string     `json:"stateName,omitempty"`
	Recipients  []types.ID `json:"recipients"`
	Message     string     `json:"message"`
}

// Dispatcher delivers a notification to its recipients. The default implementation
// only writes a structured log line.
type Dispatcher interface {
	Dispatch(n Notification) error
}

var ActiveDispatcher Dispatcher = &LogDispatcher{}

// Send is best effort: a delivery failure is logged, it never fails the caller.
func Send(n Notification) {
	if err := ActiveDispatcher.Dispatch(n); err != nil {
		logrus.Warnln("notification dispatch failed:", err)
	}
}

type LogDispatcher struct {
}

func (d *LogDispatcher) Dispatch(n Notification) error {
	logrus.WithFields(logrus.Fields{
		"entityType": n.EntityType,
		"entityId":   n.EntityID,
		"stateName":  n.StateName,
		"recipients": n.Recipients,
	}).Infoln("notify:", n.Message)
	return nil
}

type WebhookPayload struct {
	RuleName    string   `json:"ruleName"`
	EntityType  string   `json:"entityType"`
	EntityID    types.ID `json:"entityId"`
	EntityTitle string   `json:"entityTitle"`
	StateSlug   string   `json:"stateSlug"`
}

var PostWebhookFunc = postWebhook

// PostWebhook posts the payload as JSON to the configured endpoint.
func PostWebhook(url string, payload WebhookPayload) error {
	return PostWebhookFunc(url, payload)
}

func postWebhook(url string, payload WebhookPayload) error {
	body, err := json.Marshal(&payload)
	if err != nil {
		return err
	}
	_, err = common.HttpInvokeJson(http.MethodPost, url, nil, string(body))
	return err
}
