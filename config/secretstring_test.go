package config

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	yaml "gopkg.in/yaml.v3"
)

func TestSecretString_Marshal(t *testing.T) {
	tests := []struct {
		name     string
		input    SecretString
		wantJSON string
		wantYAML any
		wantStr  string
	}{
		{"empty", "", "null", nil, ""},
		{"bearer", "Bearer abc.def", `"` + SecretStringValue + `"`, SecretStringValue, SecretStringValue},
		{"single char", "x", `"` + SecretStringValue + `"`, SecretStringValue, SecretStringValue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotJSON, err := tt.input.MarshalJSON()
			if err != nil {
				t.Fatalf("MarshalJSON() error = %v", err)
			}
			if string(gotJSON) != tt.wantJSON {
				t.Errorf("MarshalJSON() = %s, want %s", gotJSON, tt.wantJSON)
			}
			gotYAML, err := tt.input.MarshalYAML()
			if err != nil {
				t.Fatalf("MarshalYAML() error = %v", err)
			}
			if gotYAML != tt.wantYAML {
				t.Errorf("MarshalYAML() = %v, want %v", gotYAML, tt.wantYAML)
			}
			if got := fmt.Sprint(tt.input); got != tt.wantStr {
				t.Errorf("String() = %q, want %q", got, tt.wantStr)
			}
		})
	}
}

func TestSecretString_NoLeakage(t *testing.T) {
	const secret = "Bearer super-secret-token"

	fc := FetchConfig{AllowRemote: true, AuthHeader: secret}
	data, err := json.Marshal(fc)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "super-secret") {
		t.Errorf("secret leaked in JSON: %s", data)
	}

	data, err = yaml.Marshal(fc)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "super-secret") || !strings.Contains(string(data), SecretStringValue) {
		t.Errorf("unexpected YAML: %s", data)
	}

	if string(fc.AuthHeader) != secret {
		t.Error("conversion must return actual value")
	}
}

func TestSecretString_Unmarshal(t *testing.T) {
	var fc FetchConfig
	if err := yaml.Unmarshal([]byte("auth_header: Basic dXNlcg==\n"), &fc); err != nil {
		t.Fatal(err)
	}
	if string(fc.AuthHeader) != "Basic dXNlcg==" {
		t.Errorf("AuthHeader = %q", string(fc.AuthHeader))
	}
}
