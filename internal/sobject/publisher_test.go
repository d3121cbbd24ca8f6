package sobject

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"platform-event-publisher/internal/auth"
	"platform-event-publisher/internal/eventerr"
)

type stubAuth struct {
	result *auth.Result
	err    error
	calls  int
}

func (s *stubAuth) Authenticate(context.Context) (*auth.Result, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func TestEndpointURL(t *testing.T) {
	assert.Equal(t,
		"https://x.my.salesforce.com/services/data/v59.0/sobjects/Product_Configuration__e/",
		EndpointURL("https://x.my.salesforce.com/", "v59.0", "Product_Configuration__e"))
}

func TestPublishEvent_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/services/data/v59.0/sobjects/Product_Configuration__e/", r.URL.Path)
		assert.Equal(t, "Bearer tok1", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"Product__c":"ABC123"}`, string(body))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"e00xx0000000001AAA","success":true,"errors":[]}`))
	}))
	defer server.Close()

	a := &stubAuth{result: &auth.Result{AccessToken: "tok1", InstanceURL: server.URL}}
	p := NewPublisher(a, "v59.0", server.Client(), zerolog.Nop())
	res, err := p.PublishEvent(context.Background(), "Product_Configuration__e", map[string]any{"Product__c": "ABC123"})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "e00xx0000000001AAA", res.ID)

	_, err = p.PublishEvent(context.Background(), "Product_Configuration__e", map[string]any{"Product__c": "ABC123"})
	require.NoError(t, err)
	assert.Equal(t, 2, a.calls, "each publish authenticates anew")
}

func TestPublishEvent_EmptyBodyTolerated(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	p := NewPublisher(&stubAuth{result: &auth.Result{AccessToken: "t", InstanceURL: server.URL}}, "v59.0", server.Client(), zerolog.Nop())
	res, err := p.PublishEvent(context.Background(), "Order__e", map[string]any{})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Empty(t, res.ID)
}

func TestPublishEvent_NonSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode([]map[string]string{{"errorCode": "INVALID_FIELD", "message": "No such column 'Bogus__c'"}})
	}))
	defer server.Close()

	p := NewPublisher(&stubAuth{result: &auth.Result{AccessToken: "t", InstanceURL: server.URL}}, "v59.0", server.Client(), zerolog.Nop())
	res, err := p.PublishEvent(context.Background(), "Product_Configuration__e", map[string]any{"Bogus__c": 1})
	require.Error(t, err)
	assert.Nil(t, res)
	assert.True(t, eventerr.IsPublish(err))
	assert.Contains(t, err.Error(), "400")
	assert.Contains(t, err.Error(), "Bad Request")
	assert.Contains(t, err.Error(), "INVALID_FIELD")
}

func TestPublishEvent_AuthFailureStopsBeforeRequest(t *testing.T) {
	var hits int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { hits++ }))
	defer server.Close()

	authErr := eventerr.Authentication("authentication", http.StatusUnauthorized, "", nil)
	p := NewPublisher(&stubAuth{err: authErr}, "v59.0", server.Client(), zerolog.Nop())
	_, err := p.PublishEvent(context.Background(), "Product_Configuration__e", map[string]any{"Product__c": "ABC123"})
	require.Error(t, err)
	assert.True(t, eventerr.IsAuthentication(err))
	assert.Zero(t, hits)
}

func TestPublishEvent_EmptyTopic(t *testing.T) {
	a := &stubAuth{result: &auth.Result{AccessToken: "t", InstanceURL: "http://unused"}}
	p := NewPublisher(a, "v59.0", nil, zerolog.Nop())
	_, err := p.PublishEvent(context.Background(), "", nil)
	require.Error(t, err)
	assert.True(t, eventerr.IsPublish(err))
	assert.Zero(t, a.calls)
}

func TestPublishEvent_StripsEventPrefix(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/services/data/v59.0/sobjects/Order__e/", r.URL.Path)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"e01","success":true}`))
	}))
	defer server.Close()

	a := &stubAuth{result: &auth.Result{AccessToken: "t", InstanceURL: server.URL}}
	p := NewPublisher(a, "v59.0", server.Client(), zerolog.Nop())
	res, err := p.PublishEvent(context.Background(), "/event/Order__e", map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, "e01", res.ID)

	_, err = p.PublishEvent(context.Background(), "/event/", map[string]any{})
	require.Error(t, err)
	assert.True(t, eventerr.IsPublish(err))
	assert.Equal(t, 1, a.calls, "bare prefix is rejected before authenticating")
}

func TestPublishEvent_TruncatedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "100")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"e0`))
	}))
	defer server.Close()

	p := NewPublisher(&stubAuth{result: &auth.Result{AccessToken: "t", InstanceURL: server.URL}}, "v59.0", server.Client(), zerolog.Nop())
	res, err := p.PublishEvent(context.Background(), "Order__e", map[string]any{})
	require.Error(t, err)
	assert.Nil(t, res)
	assert.True(t, eventerr.IsPublish(err))
	assert.Contains(t, err.Error(), "read response")
}
