// Package atom implements the element runtime: a messaging and RPC fabric
// built entirely on Redis streams. An Element is identified by a name,
// publishes to named streams under its own namespace, and exposes commands
// other elements can invoke over a request/ACK/response protocol.
package atom

import "strings"

const maxNameLen = 128

// CommandStreamKey returns the Redis key of element's command stream, the
// channel over which other elements send it requests.
func CommandStreamKey(element string) string {
	return "command:" + element
}

// ResponseStreamKey returns the Redis key of element's response stream, the
// channel over which it is sent ACKs and responses to commands it issued.
func ResponseStreamKey(element string) string {
	return "response:" + element
}

// UserStreamKey returns the Redis key of one of element's published
// streams, under the stream:<element>:<name> namespace.
func UserStreamKey(element, name string) string {
	return "stream:" + element + ":" + name
}

// LogStreamKey is the fixed key of the shared log stream (section 4.8).
const LogStreamKey = "log"

// ValidateName reports whether name is usable as an element name: non-empty,
// no more than 128 bytes, and free of the ':' namespace separator. It
// returns an *InvalidName error otherwise.
func ValidateName(name string) error {
	if name == "" {
		return newKindError(KindInvalidName, "element name must not be empty")
	}
	if len(name) > maxNameLen {
		return newKindError(KindInvalidName, "element name exceeds 128 bytes")
	}
	if strings.Contains(name, ":") {
		return newKindError(KindInvalidName, "element name must not contain ':'")
	}
	return nil
}

// ElementFromCommandKey strips the command: prefix from a Redis key,
// returning the element name and whether key was in fact a command stream
// key. Used by discovery (section 4.8) to enumerate elements.
func ElementFromCommandKey(key string) (string, bool) {
	const prefix = "command:"
	if !strings.HasPrefix(key, prefix) {
		return "", false
	}
	return strings.TrimPrefix(key, prefix), true
}

// ElementAndStreamFromStreamKey splits a stream:<element>:<name> key into
// its element and stream name parts.
func ElementAndStreamFromStreamKey(key string) (element, name string, ok bool) {
	const prefix = "stream:"
	if !strings.HasPrefix(key, prefix) {
		return "", "", false
	}
	rest := strings.TrimPrefix(key, prefix)
	i := strings.Index(rest, ":")
	if i < 0 {
		return "", "", false
	}
	return rest[:i], rest[i+1:], true
}
