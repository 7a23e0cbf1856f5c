package chat

import (
	"errors"
	"strings"

	"github.com/cbroglie/mustache"
	"github.com/neilberkman/agentchat/internal/core/config"
)

// DefaultTexts returns the built-in reply texts
func DefaultTexts() config.Texts {
	return config.Texts{
		NoReply:        config.DefaultNoReplyText,
		HTTPError:      config.DefaultHTTPErrorText,
		TransportError: config.DefaultTransportErrorText,
	}
}

// ReplyText turns the outcome of an agent call into transcript text
func ReplyText(texts config.Texts, reply string, err error) string {
	if err == nil {
		if strings.TrimSpace(reply) == "" {
			return render(texts.NoReply, config.DefaultNoReplyText, nil)
		}
		return reply
	}

	var cerr *Error
	if errors.As(err, &cerr) && cerr.Kind == KindRemote {
		return render(texts.HTTPError, config.DefaultHTTPErrorText, map[string]interface{}{
			"status": cerr.Status,
		})
	}

	detail := err.Error()
	if cerr != nil && cerr.Detail != "" {
		detail = cerr.Detail
	}
	return render(texts.TransportError, config.DefaultTransportErrorText, map[string]interface{}{
		"detail": detail,
	})
}

// render falls back to the built-in template if the configured one fails
// or renders to nothing
func render(tmpl, fallback string, data map[string]interface{}) string {
	if tmpl != "" {
		out, err := mustache.Render(tmpl, data)
		if err == nil && strings.TrimSpace(out) != "" {
			return out
		}
	}
	out, err := mustache.Render(fallback, data)
	if err != nil {
		return fallback
	}
	return out
}
