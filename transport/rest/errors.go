package rest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/pquerna/ffjson/ffjson"
)

// The backend reports errors in one of these shapes, depending on the endpoint:
//
//	"plain text"                              (raw body or a JSON string)
//	{"detail": "message"}
//	{"detail": [{"loc": [...], "msg": "..."}]} (validation errors)
//	{"message": "message"}
//	{"error": "message"}
type errorBody struct {
	Detail  json.RawMessage `json:"detail"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
}

type validationItem struct {
	Loc []interface{} `json:"loc"`
	Msg string        `json:"msg"`
}

// NormalizeError maps any backend error body to one display string. Validation
// lists are joined as "field: message; field: message". fallback is used when
// the body carries nothing readable.
func NormalizeError(body []byte, fallback string) string {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return fallback
	}

	switch body[0] {
	case '"':
		var s string
		if err := ffjson.Unmarshal(body, &s); err == nil && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
		return fallback
	case '[':
		if msg := detailList(body); msg != "" {
			return msg
		}
		return fallback
	case '{':
		var eb errorBody
		if err := ffjson.Unmarshal(body, &eb); err != nil {
			return fallback
		}
		if msg := detail(eb.Detail); msg != "" {
			return msg
		}
		if eb.Message != "" {
			return eb.Message
		}
		if eb.Error != "" {
			return eb.Error
		}
		return fallback
	case '<':
		// an HTML error page from a proxy
		return fallback
	}
	return string(body)
}

func detail(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	switch raw[0] {
	case '"':
		var s string
		if err := ffjson.Unmarshal(raw, &s); err == nil {
			return strings.TrimSpace(s)
		}
	case '[':
		return detailList(raw)
	case '{':
		var item validationItem
		if err := ffjson.Unmarshal(raw, &item); err == nil {
			return item.String()
		}
	}
	return ""
}

func detailList(raw []byte) string {
	var items []json.RawMessage
	if err := ffjson.Unmarshal(raw, &items); err != nil {
		return ""
	}
	parts := make([]string, 0, len(items))
	for _, it := range items {
		var s string
		if err := ffjson.Unmarshal(it, &s); err == nil {
			if s != "" {
				parts = append(parts, s)
			}
			continue
		}
		var item validationItem
		if err := ffjson.Unmarshal(it, &item); err == nil {
			if msg := item.String(); msg != "" {
				parts = append(parts, msg)
			}
		}
	}
	return strings.Join(parts, "; ")
}

// String renders "field: msg", the field being the innermost string in loc.
func (v validationItem) String() string {
	field := ""
	for i := len(v.Loc) - 1; i >= 0; i-- {
		if s, ok := v.Loc[i].(string); ok && s != "body" && s != "query" && s != "path" {
			field = s
			break
		}
	}
	if field == "" {
		return v.Msg
	}
	if v.Msg == "" {
		return field
	}
	return field + ": " + v.Msg
}

// StatusFallback is the message for an error reply with an unreadable body.
func StatusFallback(code int) string {
	if text := http.StatusText(code); text != "" {
		return fmt.Sprintf("request failed with status %d (%s)", code, text)
	}
	return fmt.Sprintf("request failed with status %d", code)
}
