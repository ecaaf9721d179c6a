// Package applink is the client-side half of the push pipeline: deep-link
// construction and parsing, and resolution of notification taps into in-app
// navigation. The screens themselves are rendered by external collaborators.
package applink

import (
	"fmt"
	"net/url"
	"strings"
)

// Screen is a deep-linkable in-app destination.
type Screen string

const (
	ScreenChat     Screen = "chat"
	ScreenPrayer   Screen = "prayer"
	ScreenPastoral Screen = "pastoral"
)

func (s Screen) String() string { return string(s) }

func (s Screen) IsValid() bool {
	switch s {
	case ScreenChat, ScreenPrayer, ScreenPastoral:
		return true
	}
	return false
}

// DeepLink is the structured form of app:///{screen}/{id}?{params}.
type DeepLink struct {
	Screen Screen
	ID     string
	Params map[string]string
}

func (l DeepLink) String() string {
	u := url.URL{
		Scheme: "app",
		Path:   fmt.Sprintf("/%s/%s", l.Screen, l.ID),
	}

	if len(l.Params) > 0 {
		query := url.Values{}
		for key, value := range l.Params {
			query.Set(key, value)
		}
		u.RawQuery = query.Encode()
	}

	// url.URL drops the empty authority, but the app scheme requires the
	// triple-slash form.
	return "app://" + u.Path + queryString(u.RawQuery)
}

func queryString(rawQuery string) string {
	if rawQuery == "" {
		return ""
	}
	return "?" + rawQuery
}

// ParseDeepLink parses and validates a deep link string.
func ParseDeepLink(raw string) (DeepLink, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return DeepLink{}, fmt.Errorf("invalid deep link %q: %w", raw, err)
	}
	if u.Scheme != "app" {
		return DeepLink{}, fmt.Errorf("invalid deep link scheme %q", u.Scheme)
	}
	if u.Host != "" {
		return DeepLink{}, fmt.Errorf("deep link must not carry a host: %q", raw)
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return DeepLink{}, fmt.Errorf("deep link path must be /screen/id: %q", raw)
	}

	screen := Screen(parts[0])
	if !screen.IsValid() {
		return DeepLink{}, fmt.Errorf("unknown deep link screen %q", parts[0])
	}

	link := DeepLink{Screen: screen, ID: parts[1]}
	query := u.Query()
	if len(query) > 0 {
		link.Params = make(map[string]string, len(query))
		for key := range query {
			link.Params[key] = query.Get(key)
		}
	}

	return link, nil
}
