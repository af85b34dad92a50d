package utils

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestExtractFromDBURL(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"postgresql://user:pw@dbhost:6543/laps", "dbhost:6543"},
		{"postgresql://user:pw@dbhost/laps", "dbhost:5432"},
		{"postgres://dbhost/laps?sslmode=disable", "dbhost:5432"},
		{"mysql://dbhost/laps", ""},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractFromDBURL(tt.url))
		})
	}
}

func TestExtractFromNatsURL(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"nats://localhost:4223", "localhost:4223"},
		{"nats://localhost", "localhost:4222"},
		{"nats://user:pw@broker:4222", "broker:4222"},
		{"http://broker", ""},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractFromNatsURL(tt.url))
		})
	}
}

func TestWaitForAll(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	assert.NoError(t, err)
	defer l.Close()

	assert.NoError(t, WaitForAll(time.Second, l.Addr().String(), ""))
	assert.Error(t, WaitForAll(300*time.Millisecond, "127.0.0.1:1"))
}

func TestParseWaitDuration(t *testing.T) {
	assert.Equal(t, 5*time.Second, ParseWaitDuration("5s"))
	assert.Equal(t, 60*time.Second, ParseWaitDuration("soon"))
}
