/*
Copyright 2024 JB Products Info Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package jbproducts

import (
	"bytes"
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/Volodya262/jb-products-info/config"
	"github.com/Volodya262/jb-products-info/model"
)

// NewWebhook represents the structure of a webhook notification.
// It includes an event type and associated payload data.
type NewWebhook struct {
	Event   string      `json:"event"` // The event type that triggered the webhook.
	Payload interface{} `json:"data"`  // The data associated with the event.
}

// getEventFromStatus maps a build status to a corresponding event string.
func getEventFromStatus(status model.BuildStatus) string {
	switch status {
	case model.StatusQueued:
		return "build.queued"
	case model.StatusProcessing:
		return "build.processing"
	case model.StatusProcessed:
		return "build.processed"
	case model.StatusFailedToProcess:
		return "build.failed"
	case model.StatusExpired:
		return "build.expired"
	default:
		return "build." + strings.ToLower(string(status))
	}
}

// SendWebhook posts a build status notification to the configured webhook
// endpoint. A missing webhook URL disables notifications; delivery failures
// are logged but never fail the calling operation.
func SendWebhook(build *model.BuildInProcess) {
	conf, err := config.Fetch()
	if err != nil {
		log.Println("Error fetching config:", err)
		return
	}
	if conf.Notification.Webhook.Url == "" {
		return
	}

	data := NewWebhook{
		Event: getEventFromStatus(build.Status()),
		Payload: map[string]interface{}{
			"product_code":      build.ProductCode,
			"build_full_number": build.BuildFullNumber,
			"status":            build.Status(),
			"failure_reason":    build.FailedToProcessReason(),
		},
	}

	jsonData, err := json.Marshal(data)
	if err != nil {
		log.Println("Error marshaling data:", err)
		return
	}

	req, err := http.NewRequest(http.MethodPost, conf.Notification.Webhook.Url, bytes.NewBuffer(jsonData))
	if err != nil {
		log.Println("Error creating request:", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	for key, value := range conf.Notification.Webhook.Headers {
		req.Header.Set(key, value)
	}

	client := &http.Client{}
	resp, err := client.Do(req)
	if err != nil {
		log.Println("Error sending request:", err)
		return
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logrus.Error(err)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Printf("Webhook request failed with status code: %d\n", resp.StatusCode)
	}
}
