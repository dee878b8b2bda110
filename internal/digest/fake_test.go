package digest

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/teemow/calbot/internal/calendar"
	"github.com/teemow/calbot/internal/config"
	"github.com/teemow/calbot/internal/slack"
	"github.com/teemow/calbot/internal/weather"
)

type fakeSource struct {
	mu      sync.Mutex
	events  map[string][]calendar.Event
	failing map[string]error
	windows map[string]calendar.Window
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		events:  map[string][]calendar.Event{},
		failing: map[string]error{},
		windows: map[string]calendar.Window{},
	}
}

func (f *fakeSource) ListEvents(_ context.Context, calendarID string, w calendar.Window) ([]calendar.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.windows[calendarID] = w
	if err := f.failing[calendarID]; err != nil {
		return nil, err
	}
	return f.events[calendarID], nil
}

type fakeWeather struct {
	cond *weather.Conditions
	err  error
	seen []string
}

func (f *fakeWeather) Current(_ context.Context, location string) (*weather.Conditions, error) {
	f.seen = append(f.seen, location)
	return f.cond, f.err
}

type fakeChannel struct {
	mu         sync.Mutex
	posts      map[string][]string
	history    map[string][]slack.Message
	postErr    map[string]error
	historyErr error
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{
		posts:   map[string][]string{},
		history: map[string][]slack.Message{},
		postErr: map[string]error{},
	}
}

func (f *fakeChannel) Post(_ context.Context, channel, text string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.postErr[channel]; err != nil {
		return "", err
	}
	f.posts[channel] = append(f.posts[channel], text)
	return "1700000000.000100", nil
}

func (f *fakeChannel) History(_ context.Context, channel string, limit int) ([]slack.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.historyErr != nil {
		return nil, f.historyErr
	}
	msgs := f.history[channel]
	if len(msgs) > limit {
		msgs = msgs[:limit]
	}
	return msgs, nil
}

func factoryFor(src EventSource) CalendarFactory {
	return func(context.Context, *config.UserProfile) (EventSource, error) {
		return src, nil
	}
}

func failingFactory(err error) CalendarFactory {
	return func(context.Context, *config.UserProfile) (EventSource, error) {
		return nil, err
	}
}

var errBoom = errors.New("boom")

func at(loc *time.Location, y int, m time.Month, d, hh, mm int) time.Time {
	return time.Date(y, m, d, hh, mm, 0, 0, loc)
}
