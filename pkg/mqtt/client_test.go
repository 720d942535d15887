package mqtt

import "testing"

func TestTopicMatches(t *testing.T) {
	tests := []struct {
		filter, topic string
		want          bool
	}{
		{"rapidaid/v1/#", "rapidaid/v1/request/created/1", true},
		{"rapidaid/v1/+/status/+", "rapidaid/v1/ambulance/status/7", true},
		{"rapidaid/v1/+/status/+", "rapidaid/v1/ambulance/status/changed/7", false},
		{"rapidaid/v1/request/#", "rapidaid/v1/ambulance/status/7", false},
		{"rapidaid/v1/request", "rapidaid/v1/request", true},
		{"rapidaid/v1/+", "rapidaid/v1", false},
	}
	for _, tt := range tests {
		if got := TopicMatches(tt.filter, tt.topic); got != tt.want {
			t.Errorf("TopicMatches(%q, %q) = %v, want %v", tt.filter, tt.topic, got, tt.want)
		}
	}
}

func TestTopicFilterStripsSharePrefix(t *testing.T) {
	if got := topicFilter("$share/dispatch/rapidaid/v1/#"); got != "rapidaid/v1/#" {
		t.Errorf("topicFilter = %q", got)
	}
	if got := topicFilter("rapidaid/v1/#"); got != "rapidaid/v1/#" {
		t.Errorf("topicFilter = %q", got)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     ClientConfig
		wantErr bool
	}{
		{"tcp", ClientConfig{BrokerURL: "tcp://localhost:1883"}, false},
		{"wss", ClientConfig{BrokerURL: "wss://broker.example/mqtt"}, false},
		{"empty", ClientConfig{}, true},
		{"http scheme", ClientConfig{BrokerURL: "http://localhost"}, true},
		{"bad will qos", ClientConfig{BrokerURL: "tcp://localhost:1883", WillQoS: 3}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
