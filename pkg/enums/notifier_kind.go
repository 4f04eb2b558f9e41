package enums

import (
	"fmt"
	"strings"
)

// NotifierKind selects how low-stock alerts leave the service.
type NotifierKind string

const (
	NotifierKindHTTP   NotifierKind = "http"
	NotifierKindPubSub NotifierKind = "pubsub"
	NotifierKindNone   NotifierKind = "none"
)

func (k NotifierKind) IsValid() bool {
	switch k {
	case NotifierKindHTTP, NotifierKindPubSub, NotifierKindNone:
		return true
	}
	return false
}

// ParseNotifierKind is case-insensitive and treats blank input as http.
func ParseNotifierKind(value string) (NotifierKind, error) {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" {
		return NotifierKindHTTP, nil
	}
	k := NotifierKind(v)
	if !k.IsValid() {
		return "", fmt.Errorf("invalid notifier kind %q", value)
	}
	return k, nil
}
