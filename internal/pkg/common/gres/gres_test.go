package gres

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSumGPUs(t *testing.T) {
	tests := []struct {
		spec string
		want int
	}{
		{"gpu:4", 4},
		{"gpu:a100:2", 2},
		{"gpu:a100:2,gpu:4", 6},
		{"gpu:h100:8,gpu:a100:2,cpu:16", 10},
		{"(null)", 0},
		{"", 0},
		{"N/A", 0},
		{"gres/gpu=3", 0},
		{"gpu:a100", 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SumGPUs(tt.spec), "spec %q", tt.spec)
	}
}

func TestMentionsGPU(t *testing.T) {
	assert.True(t, MentionsGPU("gpu:4"))
	assert.True(t, MentionsGPU("GPU:A100:2"))
	assert.False(t, MentionsGPU("(null)"))
	assert.False(t, MentionsGPU(""))
}
