package emulator

import (
	"crypto"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"platform-event-publisher/internal/auth"
	"platform-event-publisher/internal/security"
)

// Identity is the single integration user the emulator accepts.
type Identity struct {
	ClientID     string
	ClientSecret string
	Username     string
	// Secret is the password grant secret: password followed by security token.
	Secret string
	// JWTPublicKey verifies bearer assertions. Nil disables the JWT bearer grant.
	JWTPublicKey crypto.PublicKey
	// Audience is the aud a bearer assertion must carry.
	Audience string
	TenantID string
}

// RESTEvent is an event record created through the sObject endpoint.
type RESTEvent struct {
	ID         string
	APIVersion string
	Object     string
	Fields     map[string]any
}

type apiError struct {
	Message   string `json:"message"`
	ErrorCode string `json:"errorCode"`
}

// HTTPHandler serves the OAuth2 token endpoint and sObject event creation.
type HTTPHandler struct {
	identity    Identity
	tokens      *TokenStore
	registry    *Registry
	instanceURL string
	logger      zerolog.Logger
	mux         *http.ServeMux

	mu     sync.Mutex
	events []RESTEvent
}

// NewHTTPHandler returns the handler. instanceURL is reported in token responses; when empty
// it is derived from the request host.
func NewHTTPHandler(identity Identity, tokens *TokenStore, registry *Registry, instanceURL string, logger zerolog.Logger) *HTTPHandler {
	h := &HTTPHandler{
		identity:    identity,
		tokens:      tokens,
		registry:    registry,
		instanceURL: strings.TrimRight(instanceURL, "/"),
		logger:      logger,
		mux:         http.NewServeMux(),
	}
	h.mux.HandleFunc("POST /services/oauth2/token", h.handleToken)
	h.mux.HandleFunc("POST /services/data/{version}/sobjects/{object}/{$}", h.handleCreate)
	h.mux.HandleFunc("POST /services/data/{version}/sobjects/{object}", h.handleCreate)
	return h
}

func (h *HTTPHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// Events returns the records created so far, in order.
func (h *HTTPHandler) Events() []RESTEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]RESTEvent(nil), h.events...)
}

func (h *HTTPHandler) handleToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		oauthError(w, "invalid_request", "malformed form body")
		return
	}
	switch grant := r.PostForm.Get("grant_type"); grant {
	case "password":
		if r.PostForm.Get("client_id") != h.identity.ClientID || r.PostForm.Get("client_secret") != h.identity.ClientSecret {
			oauthError(w, "invalid_client_id", "client identifier invalid")
			return
		}
		if r.PostForm.Get("username") != h.identity.Username || r.PostForm.Get("password") != h.identity.Secret {
			oauthError(w, "invalid_grant", "authentication failure")
			return
		}
	case auth.GrantTypeJWTBearer:
		if h.identity.JWTPublicKey == nil {
			oauthError(w, "unsupported_grant_type", "grant type not supported")
			return
		}
		claims, err := security.VerifyAssertion(r.PostForm.Get("assertion"), h.identity.JWTPublicKey, h.identity.Audience)
		if err != nil || claims.Issuer != h.identity.ClientID || claims.Subject != h.identity.Username {
			oauthError(w, "invalid_grant", "invalid assertion")
			return
		}
	default:
		oauthError(w, "unsupported_grant_type", "grant type not supported")
		return
	}

	token, issuedAt, err := h.tokens.Issue()
	if err != nil {
		http.Error(w, "token issue failed", http.StatusInternalServerError)
		return
	}
	instanceURL := h.instanceURL
	if instanceURL == "" {
		instanceURL = "http://" + r.Host
	}
	id := fmt.Sprintf("%s/id/%s/005000000000001AAA", instanceURL, h.identity.TenantID)
	issued := strconv.FormatInt(issuedAt.UnixMilli(), 10)
	mac := hmac.New(sha256.New, []byte(h.identity.ClientSecret))
	mac.Write([]byte(id + issued))

	h.logger.Info().Str("grant_type", r.PostForm.Get("grant_type")).Msg("token issued")
	writeJSON(w, http.StatusOK, map[string]string{
		"access_token": token,
		"instance_url": instanceURL,
		"id":           id,
		"token_type":   "Bearer",
		"issued_at":    issued,
		"signature":    base64.StdEncoding.EncodeToString(mac.Sum(nil)),
	})
}

func (h *HTTPHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || !h.tokens.ValidToken(token) {
		writeJSON(w, http.StatusUnauthorized, []apiError{{Message: "Session expired or invalid", ErrorCode: "INVALID_SESSION_ID"}})
		return
	}
	object := r.PathValue("object")
	schema, known := h.registry.objectSchema(object)
	if !known {
		writeJSON(w, http.StatusNotFound, []apiError{{Message: "The requested resource does not exist", ErrorCode: "NOT_FOUND"}})
		return
	}

	var fields map[string]any
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		writeJSON(w, http.StatusBadRequest, []apiError{{Message: "malformed JSON body", ErrorCode: "JSON_PARSER_ERROR"}})
		return
	}
	names := fieldNames(schema)
	for name := range fields {
		if !slices.Contains(names, name) {
			writeJSON(w, http.StatusBadRequest, []apiError{{
				Message:   fmt.Sprintf("No such column '%s' on sobject of type %s", name, object),
				ErrorCode: "INVALID_FIELD",
			}})
			return
		}
	}

	h.mu.Lock()
	id := fmt.Sprintf("e00xx%010dAAA", len(h.events)+1)
	h.events = append(h.events, RESTEvent{ID: id, APIVersion: r.PathValue("version"), Object: object, Fields: fields})
	h.mu.Unlock()

	h.logger.Info().Str("object", object).Str("id", id).Msg("event record created")
	writeJSON(w, http.StatusCreated, map[string]any{"id": id, "success": true, "errors": []apiError{}})
}

func oauthError(w http.ResponseWriter, code, description string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{"error": code, "error_description": description})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
