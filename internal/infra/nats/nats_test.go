package natsclient

import (
	"testing"

	"github.com/sifan077/linkqr/config"
	"github.com/stretchr/testify/assert"
)

func TestURL(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.NATSConfig
		want string
	}{
		{name: "defaults", cfg: config.NATSConfig{}, want: "nats://localhost:4222"},
		{name: "explicit", cfg: config.NATSConfig{Host: "bus", Port: 4333}, want: "nats://bus:4333"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, URL(tt.cfg))
		})
	}
}
