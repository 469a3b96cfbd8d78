package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHealthAddr(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{raw: "", want: "127.0.0.1:8765"},
		{raw: "9000", want: "127.0.0.1:9000"},
		{raw: "nope", want: "127.0.0.1:8765"},
		{raw: "70000", want: "127.0.0.1:8765"},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, healthAddr(tt.raw))
		})
	}
}
