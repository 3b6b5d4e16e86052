// Package feedback pushes notable findings to side channels: the log and any
// websocket clients watching the API.
package feedback

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jacobarthurs/pgguard/internal/advisor"
	"github.com/jacobarthurs/pgguard/internal/rules"
)

const TypeRedFlag = "red_flag"

type Message struct {
	Type     string `json:"type"`
	Priority string `json:"priority"`
	Text     string `json:"text"`
	Issue    string `json:"issue,omitempty"`
	Query    string `json:"query,omitempty"`
	FixDDL   string `json:"fix_ddl,omitempty"`
}

type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// RedFlags builds one message per flag at or above threshold.
func RedFlags(a advisor.Advisory, query string, threshold rules.Priority) []Message {
	var out []Message
	for _, f := range a.Advice {
		if f.Priority < threshold {
			continue
		}
		out = append(out, Message{
			Type:     TypeRedFlag,
			Priority: f.Priority.String(),
			Text:     f.Recommendation,
			Issue:    f.Issue,
			Query:    query,
			FixDDL:   f.FixDDL,
		})
	}
	return out
}

// LogNotifier writes each message as a warning. A nil Logger uses slog.Default.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n LogNotifier) Send(_ context.Context, msg Message) error {
	logger := n.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Warn("feedback",
		"type", msg.Type,
		"priority", msg.Priority,
		"issue", msg.Issue,
		"text", msg.Text)
	return nil
}

// Multi sends to every notifier, even after one fails, and joins the errors.
type Multi []Notifier

func (m Multi) Send(ctx context.Context, msg Message) error {
	var errs []error
	for _, n := range m {
		if err := n.Send(ctx, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// SendAll sends every message through n and returns the joined errors.
func SendAll(ctx context.Context, n Notifier, msgs []Message) error {
	var errs []error
	for _, m := range msgs {
		if err := n.Send(ctx, m); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
