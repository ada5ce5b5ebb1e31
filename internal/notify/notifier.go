// Package notify pushes an optional end-of-run message through Shoutrrr
// (Slack, Discord, email, ...). Configured entirely by environment; a
// run with no URLs configured sends nothing.
package notify

import (
	"os"
	"strings"

	"github.com/containrrr/shoutrrr/pkg/router"
	"github.com/containrrr/shoutrrr/pkg/types"
	"github.com/sirupsen/logrus"
)

// Notifier handles sending notifications via Shoutrrr.
type Notifier struct {
	sr *router.ServiceRouter
}

// FromEnv builds a Notifier from the comma-separated PESCAN_NOTIFY_URLS
// variable. Returns (nil, nil) when no URLs are configured.
func FromEnv() (*Notifier, error) {
	raw := strings.TrimSpace(os.Getenv("PESCAN_NOTIFY_URLS"))
	if raw == "" {
		return nil, nil
	}

	var urls []string
	for _, u := range strings.Split(raw, ",") {
		if u = strings.TrimSpace(u); u != "" {
			urls = append(urls, u)
		}
	}

	sr, err := router.New(nil, urls...)
	if err != nil {
		return nil, err
	}
	return &Notifier{sr: sr}, nil
}

// Send delivers a message to all configured services. Delivery failures
// are logged, never propagated: a notification is a courtesy, not part
// of the run's result.
func (n *Notifier) Send(title, message string) {
	if n == nil {
		return
	}
	params := types.Params{"title": title}
	for _, err := range n.sr.Send(message, &params) {
		if err != nil {
			logrus.WithError(err).Error("Failed to send notification")
		}
	}
}
