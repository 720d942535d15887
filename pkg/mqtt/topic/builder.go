// Package topic maps dispatch event topics onto the MQTT topic tree.
package topic

import (
	"strings"
)

// Wildcards.
const (
	// Wildcard matches exactly one level.
	Wildcard = "+"
	// MultiWildcard matches the remaining levels. It must be last.
	MultiWildcard = "#"
)

// Event families. The first segment of every event topic is one of these.
const (
	FamilyAmbulance = "ambulance"
	FamilyRequest   = "request"
)

// Builder constructs topics of the form {root}/{event path}/{key}, where the
// event path is the dotted event topic with dots replaced by slashes.
// "ambulance.status.changed" keyed "7" becomes {root}/ambulance/status/changed/7.
type Builder struct {
	root string
}

// NewBuilder returns a Builder rooted at root, e.g. "rapidaid/v1".
func NewBuilder(root string) *Builder {
	return &Builder{root: strings.Trim(root, "/")}
}

// Root returns the namespace all topics share.
func (b *Builder) Root() string { return b.root }

// Event returns the MQTT topic for an event.
func (b *Builder) Event(eventTopic, key string) string {
	if key == "" {
		key = "_"
	}
	return b.join(strings.ReplaceAll(eventTopic, ".", "/"), key)
}

// All matches every event under the root.
func (b *Builder) All() string {
	return b.join(MultiWildcard)
}

// Family matches every event of one family, e.g. FamilyAmbulance.
func (b *Builder) Family(family string) string {
	return b.join(family, MultiWildcard)
}

// Parse is the inverse of Event. ok is false when topic is outside the root
// or has no event path.
func (b *Builder) Parse(topic string) (eventTopic, key string, ok bool) {
	rest, found := strings.CutPrefix(topic, b.root+"/")
	if !found {
		return "", "", false
	}
	i := strings.LastIndexByte(rest, '/')
	if i <= 0 || i == len(rest)-1 {
		return "", "", false
	}
	key = rest[i+1:]
	if key == "_" {
		key = ""
	}
	return strings.ReplaceAll(rest[:i], "/", "."), key, true
}

func (b *Builder) join(parts ...string) string {
	if b.root == "" {
		return strings.Join(parts, "/")
	}
	return b.root + "/" + strings.Join(parts, "/")
}
