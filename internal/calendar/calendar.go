// package calendar bridges scheduling to Google Calendar.
//
// The flow is: Connect opens an OAuth2 authorization code flow against a
// local callback handler, the resulting token is parked in a
// [SessionRegistry] under an opaque session id, and subsequent calendar reads
// present the session id instead of the token.
package calendar

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tunesmith-hq/tunesmith/internal/shared"
	"golang.org/x/oauth2"
)

const calendarBaseURL = "https://www.googleapis.com/calendar/v3"

var googleEndpoint = oauth2.Endpoint{
	AuthURL:  "https://accounts.google.com/o/oauth2/auth",
	TokenURL: "https://oauth2.googleapis.com/token",
}

// Scopes requested from Google. Read-only: sessions are surfaced alongside
// the user's calendar, never written into it.
var calendarScopes = []string{"https://www.googleapis.com/auth/calendar.readonly"}

// CalendarEntry is one calendar from the user's calendar list.
type CalendarEntry struct {
	ID          string `json:"id"`
	Summary     string `json:"summary"`
	Description string `json:"description,omitempty"`
	TimeZone    string `json:"timeZone,omitempty"`
	Primary     bool   `json:"primary,omitempty"`
}

type calendarList struct {
	Items []CalendarEntry `json:"items"`
}

// CalendarEvent is one event from a calendar.
type CalendarEvent struct {
	ID      string `json:"id"`
	Summary string `json:"summary"`
	Status  string `json:"status,omitempty"`
	Start   struct {
		DateTime string `json:"dateTime,omitempty"`
		Date     string `json:"date,omitempty"`
	} `json:"start"`
	End struct {
		DateTime string `json:"dateTime,omitempty"`
		Date     string `json:"date,omitempty"`
	} `json:"end"`
}

type eventList struct {
	Items []CalendarEvent `json:"items"`
}

// Bridge owns the OAuth configuration, the session registry, and the HTTP
// client used against the Calendar API.
type Bridge struct {
	oauth    *oauth2.Config
	registry *SessionRegistry
	client   *resty.Client
}

// NewBridge creates a calendar bridge from the Google OAuth credentials.
func NewBridge(cfg shared.GoogleConfig) (*Bridge, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("%w: google client_id and client_secret", shared.ErrMissingCredentials)
	}

	return &Bridge{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       calendarScopes,
			Endpoint:     googleEndpoint,
		},
		registry: NewSessionRegistry(),
		client: resty.New().
			SetBaseURL(calendarBaseURL).
			SetTimeout(30 * time.Second),
	}, nil
}

// AuthURL returns the consent page URL for a state token.
func (b *Bridge) AuthURL(state string) string {
	return b.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// NewCallbackHandler returns the local redirect handler for one flow.
func (b *Bridge) NewCallbackHandler(state string) *CallbackHandler {
	return NewCallbackHandler(b.oauth, state)
}

// Connect completes the flow: it waits for the callback result and registers
// the token, returning the opaque session id.
func (b *Bridge) Connect(ctx context.Context, handler *CallbackHandler) (string, error) {
	select {
	case result := <-handler.Result():
		if err := result.Error(); err != nil {
			return "", fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
		}
		return b.registry.Put(result.Token), nil
	case <-ctx.Done():
		return "", fmt.Errorf("authorization timed out: %w", ctx.Err())
	}
}

// Disconnect removes a calendar session.
func (b *Bridge) Disconnect(sessionID string) {
	b.registry.Remove(sessionID)
}

// Calendars lists the calendars visible to the session's account.
func (b *Bridge) Calendars(ctx context.Context, sessionID string) ([]CalendarEntry, error) {
	var list calendarList
	if err := b.get(ctx, sessionID, "/users/me/calendarList", nil, &list); err != nil {
		return nil, err
	}
	return list.Items, nil
}

// Events lists events on one calendar between from and to.
func (b *Bridge) Events(ctx context.Context, sessionID, calendarID string, from, to time.Time) ([]CalendarEvent, error) {
	params := map[string]string{
		"timeMin":      from.Format(time.RFC3339),
		"timeMax":      to.Format(time.RFC3339),
		"singleEvents": "true",
		"orderBy":      "startTime",
	}

	var list eventList
	endpoint := fmt.Sprintf("/calendars/%s/events", calendarID)
	if err := b.get(ctx, sessionID, endpoint, params, &list); err != nil {
		return nil, err
	}
	return list.Items, nil
}

func (b *Bridge) get(ctx context.Context, sessionID, endpoint string, params map[string]string, result any) error {
	token, err := b.registry.Get(sessionID)
	if err != nil {
		return err
	}

	resp, err := b.client.R().
		SetContext(ctx).
		SetAuthToken(token.AccessToken).
		SetQueryParams(params).
		SetResult(result).
		Get(endpoint)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	switch {
	case resp.StatusCode() == http.StatusUnauthorized || resp.StatusCode() == http.StatusForbidden:
		// Google rejected the token; the session is dead either way.
		b.registry.Remove(sessionID)
		return fmt.Errorf("%w: status %d", shared.ErrSessionExpired, resp.StatusCode())
	case resp.StatusCode() == http.StatusNotFound:
		return fmt.Errorf("%w: %s", shared.ErrUpstreamNotFound, endpoint)
	case resp.IsError():
		return fmt.Errorf("%w: status %d", shared.ErrAPIRequest, resp.StatusCode())
	}

	return nil
}
