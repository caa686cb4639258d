package metadatacollector

import (
	"testing"

	"collector-stack/internal/models"
	"collector-stack/shared/config"
)

func TestCollectorAgentName(t *testing.T) {
	agent := NewCollectorAgent(&config.Config{}, nil)
	expected := "Metadata Collector"
	if name := agent.Name(); name != expected {
		t.Errorf("Agent.Name() = %s, want %s", name, expected)
	}
}

func TestRunMetricsGetSummary(t *testing.T) {
	tests := []struct {
		name     string
		metrics  RunMetrics
		expected string
	}{
		{
			name:     "All zeros",
			metrics:  RunMetrics{},
			expected: "0 queued, 0 dead-lettered, 0 flushed, 0 processed lifetime (~0 units saved)",
		},
		{
			name: "Active queue",
			metrics: RunMetrics{
				QueueLength: 12,
				DeadLetters: 1,
				Flushed:     50,
				Stats: models.BatchStats{
					TotalProcessed:  150,
					TotalQuotaSaved: 1182,
				},
			},
			expected: "12 queued, 1 dead-lettered, 50 flushed, 150 processed lifetime (~1182 units saved)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.metrics.GetSummary()
			if result != tt.expected {
				t.Errorf("GetSummary() = %s, want %s", result, tt.expected)
			}
		})
	}
}
