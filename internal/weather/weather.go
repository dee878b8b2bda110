package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	owm "github.com/briandowns/openweathermap"
)

// Defaults for the OpenWeatherMap current-weather API.
const (
	DefaultBaseURL = "https://api.openweathermap.org"
	DefaultUnits   = "imperial"
	DefaultTimeout = 10 * time.Second
)

// ErrNotConfigured is returned when no API key is set.
var ErrNotConfigured = errors.New("weather API key not configured")

// Error is a failed weather lookup.
type Error struct {
	Location   string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("weather lookup for %q returned %d: %v", e.Location, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("weather lookup for %q: %v", e.Location, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Conditions are the current conditions at a location.
type Conditions struct {
	Location    string
	Temperature float64
	Description string
	Units       string
}

// String renders the conditions as "54°F, light rain".
func (c Conditions) String() string {
	return fmt.Sprintf("%d%s, %s", int(math.Round(c.Temperature)), unitSymbol(c.Units), c.Description)
}

func unitSymbol(units string) string {
	switch units {
	case "metric":
		return "°C"
	case "standard":
		return "K"
	default:
		return "°F"
	}
}

// owmUnit maps API unit names onto the letters the owm package expects.
func owmUnit(units string) string {
	switch units {
	case "metric":
		return "C"
	case "standard":
		return "K"
	default:
		return "F"
	}
}

// Client reads current conditions from OpenWeatherMap.
type Client struct {
	apiKey  string
	base    *url.URL
	units   string
	timeout time.Duration
	rt      http.RoundTripper
}

// New creates a client. Empty baseURL and units select the defaults.
func New(apiKey, baseURL, units string, timeout time.Duration) *Client {
	if units == "" {
		units = DefaultUnits
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := &Client{
		apiKey:  apiKey,
		units:   units,
		timeout: timeout,
		rt:      http.DefaultTransport,
	}
	if baseURL != "" && strings.TrimRight(baseURL, "/") != DefaultBaseURL {
		if u, err := url.Parse(baseURL); err == nil && u.Host != "" {
			c.base = u
		}
	}
	return c
}

// Configured reports whether the client has an API key.
func (c *Client) Configured() bool {
	return c != nil && c.apiKey != ""
}

// Current returns the current conditions for a free-form location such as
// "Denver,CO,US".
func (c *Client) Current(ctx context.Context, location string) (*Conditions, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}
	if strings.TrimSpace(location) == "" {
		return nil, &Error{Location: location, Err: errors.New("location is required")}
	}

	hc := &http.Client{
		Timeout:   c.timeout,
		Transport: &transport{ctx: ctx, base: c.base, next: c.rt},
	}
	w, err := owm.NewCurrent(owmUnit(c.units), "EN", c.apiKey, owm.WithHttpClient(hc))
	if err != nil {
		return nil, &Error{Location: location, Err: err}
	}

	if err := w.CurrentByName(location); err != nil {
		var se *statusError
		if errors.As(err, &se) {
			return nil, &Error{Location: location, StatusCode: se.code, Err: errors.New(se.message)}
		}
		return nil, &Error{Location: location, Err: err}
	}

	desc := "unknown"
	if len(w.Weather) > 0 && w.Weather[0].Description != "" {
		desc = w.Weather[0].Description
	}
	name := w.Name
	if name == "" {
		name = location
	}

	return &Conditions{
		Location:    name,
		Temperature: w.Main.Temp,
		Description: desc,
		Units:       c.units,
	}, nil
}

// statusError is a non-200 answer from the API.
type statusError struct {
	code    int
	message string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.code, e.message)
}

// transport binds the owm package's requests to the caller's context,
// optionally points them at another host, and turns error answers into
// statusError instead of letting them decode into empty data.
type transport struct {
	ctx  context.Context
	base *url.URL
	next http.RoundTripper
}

func (t *transport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(t.ctx)
	if t.base != nil {
		req.URL.Scheme = t.base.Scheme
		req.URL.Host = t.base.Host
		req.Host = t.base.Host
	}

	resp, err := t.next.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusOK {
		return resp, nil
	}
	defer resp.Body.Close()

	msg := http.StatusText(resp.StatusCode)
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if m := apiMessage(body); m != "" {
		msg = m
	}
	return nil, &statusError{code: resp.StatusCode, message: msg}
}

// apiMessage pulls "message" out of an OpenWeatherMap error body.
func apiMessage(body []byte) string {
	var apiErr struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &apiErr); err != nil {
		return ""
	}
	return apiErr.Message
}
