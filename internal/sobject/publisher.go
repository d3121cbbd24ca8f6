// Package sobject publishes platform events as records through the REST sObject API.
package sobject

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"platform-event-publisher/internal/auth"
	"platform-event-publisher/internal/eventerr"
)

const (
	opPublish   = "publish event"
	eventPrefix = "/event/"
)

// SaveError is one entry of a save result's errors array.
type SaveError struct {
	StatusCode string   `json:"statusCode"`
	Message    string   `json:"message"`
	Fields     []string `json:"fields"`
}

// SaveResult is the REST API's record creation response.
type SaveResult struct {
	ID      string      `json:"id"`
	Success bool        `json:"success"`
	Errors  []SaveError `json:"errors"`
	// InstanceURL is the org host the record was created on.
	InstanceURL string `json:"-"`
}

// Publisher posts events to {instanceUrl}/services/data/{apiVersion}/sobjects/{topic}/.
type Publisher struct {
	auth       auth.Authenticator
	apiVersion string
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewPublisher returns a REST publisher. httpClient nil uses http.DefaultClient.
func NewPublisher(authenticator auth.Authenticator, apiVersion string, httpClient *http.Client, logger zerolog.Logger) *Publisher {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Publisher{auth: authenticator, apiVersion: apiVersion, httpClient: httpClient, logger: logger}
}

// PublishEvent authenticates, then creates one event record of type topicName from fields.
// topicName may carry the Pub/Sub /event/ prefix. Each call creates a new record; it is not
// idempotent.
func (p *Publisher) PublishEvent(ctx context.Context, topicName string, fields map[string]any) (*SaveResult, error) {
	topicName = strings.TrimPrefix(topicName, eventPrefix)
	if topicName == "" {
		return nil, eventerr.Publish(opPublish, 0, "", errors.New("topic name is empty"))
	}
	creds, err := p.auth.Authenticate(ctx)
	if err != nil {
		return nil, err
	}

	raw, err := json.Marshal(fields)
	if err != nil {
		return nil, eventerr.Publish(opPublish, 0, "", fmt.Errorf("encode fields: %w", err))
	}
	url := EndpointURL(creds.InstanceURL, p.apiVersion, topicName)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		return nil, eventerr.Publish(opPublish, 0, "", err)
	}
	req.Header.Set("Authorization", "Bearer "+creds.AccessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, eventerr.Publish(opPublish, 0, "", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, eventerr.Publish(opPublish, resp.StatusCode, eventerr.StatusText(resp), fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var cause error
		if len(body) > 0 {
			cause = errors.New(string(body))
		}
		return nil, eventerr.Publish(opPublish, resp.StatusCode, eventerr.StatusText(resp), cause)
	}

	result := &SaveResult{Success: true, InstanceURL: creds.InstanceURL}
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, result); err != nil {
			p.logger.Warn().Err(err).Int("status", resp.StatusCode).Msg("unreadable save result")
		}
	}
	p.logger.Info().Str("id", result.ID).Str("topic", topicName).Msg("event published")
	return result, nil
}

// EndpointURL builds the sObject creation URL for topicName.
func EndpointURL(instanceURL, apiVersion, topicName string) string {
	return fmt.Sprintf("%s/services/data/%s/sobjects/%s/", strings.TrimRight(instanceURL, "/"), apiVersion, topicName)
}
