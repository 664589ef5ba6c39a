package main

import (
	"testing"

	"flux_backend/core"
	"flux_backend/fluxruntime"
)

func TestBuildBackend(t *testing.T) {
	stub, err := buildBackend(&core.Config{BackendKind: "stub"})
	if err != nil {
		t.Fatalf("buildBackend(stub) error = %v", err)
	}
	if _, ok := stub.(*fluxruntime.StubBackend); !ok {
		t.Errorf("backend type = %T, want *StubBackend", stub)
	}

	remote, err := buildBackend(&core.Config{
		BackendKind:   "openai",
		RemoteBaseURL: "https://api.example.com/v1",
		RemoteAPIKey:  "key",
		ModelName:     "flux.1-kontext-dev",
	})
	if err != nil {
		t.Fatalf("buildBackend(openai) error = %v", err)
	}
	if _, ok := remote.(*fluxruntime.OpenAIBackend); !ok {
		t.Errorf("backend type = %T, want *OpenAIBackend", remote)
	}
}

func TestPublicBaseURL(t *testing.T) {
	tests := []struct {
		name string
		cfg  core.Config
		want string
	}{
		{
			name: "explicit base url wins",
			cfg:  core.Config{BaseURL: "https://images.example.com", Host: "0.0.0.0", Port: 8000},
			want: "https://images.example.com",
		},
		{
			name: "wildcard host becomes localhost",
			cfg:  core.Config{Host: "0.0.0.0", Port: 8000},
			want: "http://localhost:8000",
		},
		{
			name: "concrete host preserved",
			cfg:  core.Config{Host: "10.1.2.3", Port: 9000},
			want: "http://10.1.2.3:9000",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := publicBaseURL(&tt.cfg); got != tt.want {
				t.Errorf("publicBaseURL() = %q, want %q", got, tt.want)
			}
		})
	}
}
