package core

import (
	"encoding/json"
	"testing"
	"time"
)

func TestComponentTypes(t *testing.T) {
	if ComponentTypeTool != "tool" {
		t.Errorf("ComponentTypeTool = %v, want 'tool'", ComponentTypeTool)
	}

	if ComponentTypeAgent != "agent" {
		t.Errorf("ComponentTypeAgent = %v, want 'agent'", ComponentTypeAgent)
	}

	if ComponentTypeTool == ComponentTypeAgent {
		t.Fatal("ComponentTypeTool and ComponentTypeAgent must be distinct")
	}
}

func TestServiceInfo(t *testing.T) {
	now := time.Now()

	info := &ServiceInfo{
		ID:          "test-123",
		Name:        "test-service",
		Type:        ComponentTypeAgent,
		Description: "Test service",
		Address:     "localhost",
		Port:        8080,
		Capabilities: []Capability{
			{Name: "cap1", Description: "Capability 1"},
			{Name: "cap2", Description: "Capability 2"},
		},
		Metadata: map[string]interface{}{
			"version": "1.0.0",
			"region":  "us-west",
		},
		Health:   HealthHealthy,
		LastSeen: now,
	}

	data, err := json.Marshal(info)
	if err != nil {
		t.Fatalf("Failed to marshal ServiceInfo: %v", err)
	}

	var decoded ServiceInfo
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Failed to unmarshal ServiceInfo: %v", err)
	}

	if decoded.ID != info.ID {
		t.Errorf("ID = %v, want %v", decoded.ID, info.ID)
	}

	if decoded.Type != info.Type {
		t.Errorf("Type = %v, want %v", decoded.Type, info.Type)
	}

	if len(decoded.Capabilities) != len(info.Capabilities) {
		t.Errorf("Capabilities count = %v, want %v",
			len(decoded.Capabilities), len(info.Capabilities))
	}

	if decoded.Health != info.Health {
		t.Errorf("Health = %v, want %v", decoded.Health, info.Health)
	}
}

func TestDiscoveryFilter(t *testing.T) {
	tests := []struct {
		name        string
		filter      DiscoveryFilter
		service     ServiceInfo
		shouldMatch bool
	}{
		{
			name:        "filter by type - agent",
			filter:      DiscoveryFilter{Type: ComponentTypeAgent},
			service:     ServiceInfo{Type: ComponentTypeAgent},
			shouldMatch: true,
		},
		{
			name:        "filter by type - mismatch",
			filter:      DiscoveryFilter{Type: ComponentTypeTool},
			service:     ServiceInfo{Type: ComponentTypeAgent},
			shouldMatch: false,
		},
		{
			name:        "filter by name",
			filter:      DiscoveryFilter{Name: "session-7"},
			service:     ServiceInfo{Name: "session-7"},
			shouldMatch: true,
		},
		{
			name:        "filter by name - mismatch",
			filter:      DiscoveryFilter{Name: "session-8"},
			service:     ServiceInfo{Name: "session-7"},
			shouldMatch: false,
		},
		{
			name:   "filter by capability",
			filter: DiscoveryFilter{Capabilities: []string{"evaluate", "complete"}},
			service: ServiceInfo{
				Capabilities: []Capability{{Name: "evaluate"}, {Name: "complete"}, {Name: "inspect"}},
			},
			shouldMatch: true,
		},
		{
			name:   "filter by capability - no match",
			filter: DiscoveryFilter{Capabilities: []string{"missing"}},
			service: ServiceInfo{
				Capabilities: []Capability{{Name: "evaluate"}, {Name: "complete"}},
			},
			shouldMatch: false,
		},
		{
			name:   "filter by metadata",
			filter: DiscoveryFilter{Metadata: map[string]interface{}{"region": "us-west"}},
			service: ServiceInfo{
				Metadata: map[string]interface{}{"region": "us-west", "version": "1.0.0"},
			},
			shouldMatch: true,
		},
		{
			name:   "filter by metadata - mismatch",
			filter: DiscoveryFilter{Metadata: map[string]interface{}{"region": "us-east"}},
			service: ServiceInfo{
				Metadata: map[string]interface{}{"region": "us-west"},
			},
			shouldMatch: false,
		},
		{
			name: "complex filter - all match",
			filter: DiscoveryFilter{
				Type:         ComponentTypeAgent,
				Name:         "calculator",
				Capabilities: []string{"add", "subtract"},
			},
			service: ServiceInfo{
				Type:         ComponentTypeAgent,
				Name:         "calculator",
				Capabilities: []Capability{{Name: "add"}, {Name: "subtract"}, {Name: "multiply"}},
			},
			shouldMatch: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if match := validateFilter(tt.filter, tt.service); match != tt.shouldMatch {
				t.Errorf("Filter match = %v, want %v", match, tt.shouldMatch)
			}
		})
	}
}

// validateFilter mirrors the matching logic discovery.RedisRegistry applies:
// every listed capability is required. (MockDiscovery accepts a service
// that has any one of the listed capabilities.)
func validateFilter(filter DiscoveryFilter, service ServiceInfo) bool {
	if filter.Type != "" && filter.Type != service.Type {
		return false
	}

	if filter.Name != "" && filter.Name != service.Name {
		return false
	}

	for _, requiredCap := range filter.Capabilities {
		found := false
		for _, serviceCap := range service.Capabilities {
			if serviceCap.Name == requiredCap {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	for key, value := range filter.Metadata {
		if serviceValue, exists := service.Metadata[key]; !exists || serviceValue != value {
			return false
		}
	}

	return true
}

func TestServiceInfoDefaults(t *testing.T) {
	info := &ServiceInfo{}

	if info.ID != "" {
		t.Error("Default ID should be empty")
	}
	if info.Type != "" {
		t.Error("Default Type should be empty")
	}
	if info.Health != "" {
		t.Error("Default Health should be empty")
	}
	if info.Port != 0 {
		t.Error("Default Port should be 0")
	}

	info.Health = HealthHealthy
	if info.Health != "healthy" {
		t.Errorf("Health = %v, want 'healthy'", info.Health)
	}
}

func TestCapabilityStructure(t *testing.T) {
	cap := Capability{
		Name:        "evaluate",
		Description: "runs code in the worker and streams output",
		InputTypes:  []string{"string"},
		OutputTypes: []string{"object"},
	}

	data, err := json.Marshal(cap)
	if err != nil {
		t.Fatalf("Failed to marshal Capability: %v", err)
	}

	var decoded Capability
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Failed to unmarshal Capability: %v", err)
	}

	if decoded.Name != cap.Name {
		t.Errorf("Name = %v, want %v", decoded.Name, cap.Name)
	}
	if decoded.Description != cap.Description {
		t.Errorf("Description = %v, want %v", decoded.Description, cap.Description)
	}
}

func TestHealthStatus(t *testing.T) {
	if HealthHealthy != "healthy" {
		t.Errorf("HealthHealthy = %v, want 'healthy'", HealthHealthy)
	}
	if HealthUnhealthy != "unhealthy" {
		t.Errorf("HealthUnhealthy = %v, want 'unhealthy'", HealthUnhealthy)
	}
	if HealthUnknown != "unknown" {
		t.Errorf("HealthUnknown = %v, want 'unknown'", HealthUnknown)
	}

	if HealthHealthy == HealthUnhealthy || HealthHealthy == HealthUnknown || HealthUnhealthy == HealthUnknown {
		t.Error("Health status constants must be distinct")
	}
}

func BenchmarkServiceInfoSerialization(b *testing.B) {
	info := &ServiceInfo{
		ID:          "bench-123",
		Name:        "bench-service",
		Type:        ComponentTypeAgent,
		Description: "Benchmark service",
		Address:     "localhost",
		Port:        8080,
		Capabilities: []Capability{
			{Name: "cap1"},
			{Name: "cap2"},
			{Name: "cap3"},
		},
		Metadata: map[string]interface{}{
			"key1": "value1",
			"key2": "value2",
		},
		Health:   HealthHealthy,
		LastSeen: time.Now(),
	}

	b.Run("Marshal", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			_, _ = json.Marshal(info)
		}
	})

	b.Run("Unmarshal", func(b *testing.B) {
		data, _ := json.Marshal(info)
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			var decoded ServiceInfo
			_ = json.Unmarshal(data, &decoded)
		}
	})
}
