package topic

import "testing"

func TestBuilderEvent(t *testing.T) {
	b := NewBuilder("/rapidaid/v1/")

	tests := []struct {
		event, key, want string
	}{
		{"ambulance.location.updated", "7", "rapidaid/v1/ambulance/location/updated/7"},
		{"request.created", "12", "rapidaid/v1/request/created/12"},
		{"request.status", "", "rapidaid/v1/request/status/_"},
	}
	for _, tt := range tests {
		got := b.Event(tt.event, tt.key)
		if got != tt.want {
			t.Errorf("Event(%q, %q) = %q, want %q", tt.event, tt.key, got, tt.want)
		}

		event, key, ok := b.Parse(got)
		if !ok || event != tt.event || key != tt.key {
			t.Errorf("Parse(%q) = %q, %q, %v", got, event, key, ok)
		}
	}
}

func TestBuilderParseRejects(t *testing.T) {
	b := NewBuilder("rapidaid/v1")
	for _, topic := range []string{
		"other/v1/request/created/1",
		"rapidaid/v1/",
		"rapidaid/v1/request",
		"rapidaid/v1/request/",
	} {
		if _, _, ok := b.Parse(topic); ok {
			t.Errorf("Parse(%q) accepted", topic)
		}
	}
}

func TestBuilderWildcards(t *testing.T) {
	b := NewBuilder("rapidaid/v1")
	if got := b.All(); got != "rapidaid/v1/#" {
		t.Errorf("All() = %q", got)
	}
	if got := b.Family(FamilyRequest); got != "rapidaid/v1/request/#" {
		t.Errorf("Family() = %q", got)
	}
}
