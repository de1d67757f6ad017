package mq

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// MQTT size limits. A topic's 2-byte length prefix caps it at 65535 bytes;
// a payload is capped by the largest Remaining Length, 268435455 bytes.
// These are the only limits this package enforces.
const (
	MaxTopicLength   = 65535
	MaxPayloadLength = 268435455
)

// MatchTopic reports whether topic matches filter under MQTT wildcard
// rules: '+' matches exactly one level, '#' matches zero or more trailing
// levels and must be the final level of filter. Per MQTT-4.7.2-1, a filter
// beginning with a wildcard never matches a topic beginning with '$'.
func MatchTopic(filter, topic string) bool {
	if len(topic) > 0 && topic[0] == '$' {
		if len(filter) > 0 && (filter[0] == '+' || filter[0] == '#') {
			return false
		}
	}

	fIdx, tIdx := 0, 0
	fLen, tLen := len(filter), len(topic)

	for fIdx <= fLen {
		var fLevel string
		var fNext int
		if idx := strings.IndexByte(filter[fIdx:], '/'); idx >= 0 {
			fNext = fIdx + idx
			fLevel = filter[fIdx:fNext]
		} else {
			fNext = fLen
			fLevel = filter[fIdx:]
		}

		if fLevel == "#" {
			return true
		}

		if tIdx > tLen {
			return false
		}

		var tLevel string
		var tNext int
		if idx := strings.IndexByte(topic[tIdx:], '/'); idx >= 0 {
			tNext = tIdx + idx
			tLevel = topic[tIdx:tNext]
		} else {
			tNext = tLen
			tLevel = topic[tIdx:]
		}

		if fLevel != "+" && fLevel != tLevel {
			return false
		}

		if fNext == fLen {
			fIdx = fLen + 1
		} else {
			fIdx = fNext + 1
		}
		if tNext == tLen {
			tIdx = tLen + 1
		} else {
			tIdx = tNext + 1
		}
	}

	return tIdx > tLen
}

// validatePublishTopic rejects empty topics, wildcards, null bytes and
// invalid UTF-8 — a PUBLISH topic must be a concrete topic name, never a
// filter.
func validatePublishTopic(topic string) error {
	if topic == "" {
		return fmt.Errorf("mqisdp: topic cannot be empty")
	}
	if len(topic) > MaxTopicLength {
		return fmt.Errorf("mqisdp: topic length %d exceeds maximum %d", len(topic), MaxTopicLength)
	}
	if strings.ContainsAny(topic, "+#") {
		return fmt.Errorf("mqisdp: topic %q must not contain wildcards", topic)
	}
	if strings.Contains(topic, "\x00") {
		return fmt.Errorf("mqisdp: topic contains a null byte")
	}
	if !utf8.ValidString(topic) {
		return fmt.Errorf("mqisdp: topic is not valid UTF-8")
	}
	return nil
}

// validateSubscribeTopic rejects empty filters, null bytes, invalid UTF-8,
// and malformed wildcard placement ('+' or '#' sharing a level with other
// characters, or '#' anywhere but the last level).
func validateSubscribeTopic(filter string) error {
	if filter == "" {
		return fmt.Errorf("mqisdp: topic filter cannot be empty")
	}
	if len(filter) > MaxTopicLength {
		return fmt.Errorf("mqisdp: topic filter length %d exceeds maximum %d", len(filter), MaxTopicLength)
	}
	if strings.Contains(filter, "\x00") {
		return fmt.Errorf("mqisdp: topic filter contains a null byte")
	}
	if !utf8.ValidString(filter) {
		return fmt.Errorf("mqisdp: topic filter is not valid UTF-8")
	}

	levels := strings.Split(filter, "/")
	for i, level := range levels {
		if strings.Contains(level, "+") && level != "+" {
			return fmt.Errorf("mqisdp: single-level wildcard '+' must occupy its entire topic level")
		}
		if strings.Contains(level, "#") {
			if level != "#" {
				return fmt.Errorf("mqisdp: multi-level wildcard '#' must occupy its entire topic level")
			}
			if i != len(levels)-1 {
				return fmt.Errorf("mqisdp: multi-level wildcard '#' must be the last topic level")
			}
		}
	}
	return nil
}

func validatePayload(payload []byte) error {
	if len(payload) > MaxPayloadLength {
		return fmt.Errorf("mqisdp: payload size %d exceeds maximum %d", len(payload), MaxPayloadLength)
	}
	return nil
}
