package tools

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"jarvis/internal/domain"
	"jarvis/internal/ports"
)

// Dispatcher performs the single side effect of each catalog tool and
// renders the result sent back to the engine.
type Dispatcher struct {
	opener ports.URLOpener
	logger *slog.Logger
}

func NewDispatcher(opener ports.URLOpener, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{opener: opener, logger: logger}
}

// Dispatch never fails: unknown tools and malformed arguments yield
// FallbackResult without a side effect.
func (d *Dispatcher) Dispatch(ctx context.Context, invocation domain.ToolInvocation) domain.ToolResult {
	result := domain.ToolResult{ID: invocation.ID, Name: invocation.Name, Result: FallbackResult}

	target, text, err := resolve(invocation)
	if err != nil {
		d.logger.Warn("tool invocation rejected", "tool", invocation.Name, "id", invocation.ID, "error", err)
		return result
	}
	result.Result = text

	if d.opener == nil {
		return result
	}
	if err := d.opener.OpenURL(ctx, target); err != nil {
		d.logger.Warn("tool side effect failed", "tool", invocation.Name, "url", target, "error", err)
	}
	return result
}

// resolve validates arguments against the catalog and returns the URL to open
// and the result text.
func resolve(invocation domain.ToolInvocation) (string, string, error) {
	decl, ok := lookup(invocation.Name)
	if !ok {
		return "", "", fmt.Errorf("%w: unknown tool %q", domain.ErrDispatch, invocation.Name)
	}
	args := invocation.Arguments
	for _, key := range decl.Parameters.Required {
		if stringArg(args, key) == "" {
			return "", "", fmt.Errorf("%w: %s requires %q", domain.ErrDispatch, invocation.Name, key)
		}
	}

	switch invocation.Name {
	case SearchWeb:
		query := stringArg(args, "query")
		return "https://www.google.com/search?" + url.Values{"q": {query}}.Encode(),
			fmt.Sprintf("Results for \"%s\" have been retrieved on your primary display.", query), nil

	case SendWhatsAppMessage:
		phone := stringArg(args, "phoneNumber")
		digits := digitsOnly(phone)
		if digits == "" {
			return "", "", fmt.Errorf("%w: phone number %q has no digits", domain.ErrDispatch, phone)
		}
		return "https://wa.me/" + digits + "?" + url.Values{"text": {stringArg(args, "message")}}.Encode(),
			fmt.Sprintf("WhatsApp interface opened for %s. Message drafted.", phone), nil

	case ManageProductivity:
		task, action, when := stringArg(args, "task"), stringArg(args, "action"), stringArg(args, "time")
		text := fmt.Sprintf("Protocol %s initiated for: %s.", action, task)
		details := "Protocol: " + action
		if when != "" {
			text += fmt.Sprintf(" Scheduled for %s.", when)
			details += "\nTime: " + when
		}
		query := url.Values{"action": {"TEMPLATE"}, "text": {task}, "details": {details}}
		return "https://calendar.google.com/calendar/render?" + query.Encode(), text, nil

	case DraftOutreach:
		platform := strings.ToLower(stringArg(args, "platform"))
		target, err := outreachURL(platform, stringArg(args, "recipient"), stringArg(args, "context"))
		if err != nil {
			return "", "", err
		}
		tone := stringArg(args, "tone")
		if tone == "" {
			tone = "professional"
		}
		recipient := stringArg(args, "recipient")
		if recipient == "" {
			recipient = "your contact"
		}
		return target, fmt.Sprintf("I have prepared a %s %s draft for %s. Shall I read it back to you?", tone, platform, recipient), nil

	case OpenApplication:
		app := stringArg(args, "appName")
		target, ok := appURLs[strings.ToLower(app)]
		if !ok {
			target = defaultAppURL
		}
		return target, fmt.Sprintf("Accessing %s now, Sir.", app), nil
	}
	return "", "", fmt.Errorf("%w: no handler for %q", domain.ErrDispatch, invocation.Name)
}

func outreachURL(platform, recipient, subject string) (string, error) {
	switch platform {
	case "gmail":
		query := url.Values{"view": {"cm"}, "fs": {"1"}, "su": {subject}}
		if strings.Contains(recipient, "@") {
			query.Set("to", recipient)
		}
		return "https://mail.google.com/mail/?" + query.Encode(), nil
	case "linkedin":
		return "https://www.linkedin.com/messaging/compose/", nil
	}
	return "", fmt.Errorf("%w: unsupported outreach platform %q", domain.ErrDispatch, platform)
}

func stringArg(args map[string]any, key string) string {
	value, ok := args[key].(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(value)
}

func digitsOnly(input string) string {
	var b strings.Builder
	for _, r := range input {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
