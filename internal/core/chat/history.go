package chat

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/neilberkman/agentchat/internal/core/models"
)

// senderRoles maps the history service's sent_by values onto roles.
// Anything not listed is shown as the assistant.
var senderRoles = map[string]models.Role{
	"user":      models.RoleUser,
	"bot":       models.RoleAssistant,
	"assistant": models.RoleAssistant,
	"system":    models.RoleAssistant,
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02 15:04:05.999999",
	"2006-01-02 15:04:05",
}

func roleForSender(sender string) models.Role {
	if role, ok := senderRoles[sender]; ok {
		return role
	}
	return models.RoleAssistant
}

// ParseHistory normalizes a history endpoint body into messages.
//
// The body is {"history": [...]}, {"messages": [...]} or a bare array.
// Only the last limit records are considered (limit <= 0 keeps all), and of
// those, records without string content are dropped.
func ParseHistory(data []byte, limit int) ([]models.Message, error) {
	records, err := historyRecords(data)
	if err != nil {
		return nil, err
	}

	if limit > 0 && len(records) > limit {
		records = records[len(records)-limit:]
	}

	messages := make([]models.Message, 0, len(records))
	for _, raw := range records {
		if msg, ok := normalizeRecord(raw); ok {
			messages = append(messages, msg)
		}
	}
	return messages, nil
}

func historyRecords(data []byte) ([]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, errors.New("empty body")
	}

	var records []json.RawMessage
	switch trimmed[0] {
	case '[':
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return nil, err
		}
		return records, nil

	case '{':
		var envelope map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &envelope); err != nil {
			return nil, err
		}
		// "history" wins over "messages" when both hold a list
		for _, key := range []string{"history", "messages"} {
			raw, ok := envelope[key]
			if !ok {
				continue
			}
			if err := json.Unmarshal(raw, &records); err == nil && records != nil {
				return records, nil
			}
		}
		return []json.RawMessage{}, nil
	}

	return nil, fmt.Errorf("unexpected JSON value starting with %q", trimmed[0])
}

// normalizeRecord accepts {role, content} or {sent_by, message, created_at}
func normalizeRecord(raw json.RawMessage) (models.Message, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return models.Message{}, false
	}

	var msg models.Message
	_, hasRole := fields["role"]
	_, hasContent := fields["content"]

	if hasRole || hasContent {
		content, ok := stringField(fields, "content")
		if !ok {
			return models.Message{}, false
		}
		role, _ := stringField(fields, "role")
		msg.Role = models.Role(role)
		if !msg.Role.Valid() {
			msg.Role = roleForSender(role)
		}
		msg.Content = content
	} else {
		content, ok := stringField(fields, "message")
		if !ok {
			return models.Message{}, false
		}
		sender, _ := stringField(fields, "sent_by")
		msg.Role = roleForSender(sender)
		msg.Content = content
	}

	if ts, ok := stringField(fields, "created_at"); ok {
		msg.CreatedAt = parseTimestamp(ts)
	}
	return msg, true
}

func stringField(fields map[string]json.RawMessage, key string) (string, bool) {
	raw, ok := fields[key]
	if !ok {
		return "", false
	}
	// null would otherwise decode to ""
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '"' {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

func parseTimestamp(s string) time.Time {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
