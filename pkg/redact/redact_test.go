package redact

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestSensitive(t *testing.T) {
	tests := []struct {
		key  string
		want bool
	}{
		{"password", true},
		{"Password", true},
		{"accessToken", true},
		{"access_token", true},
		{"refresh-token", true},
		{"Authorization", true},
		{"x-api-key", true},
		{"X-Api-Key", true},
		{"apiKey", true},
		{"cardNumber", true},
		{"cvv", true},
		{"ssn", true},
		{"bank_account", true},
		{"privateKey", true},
		{"cookie", true},
		{"email", false},
		{"username", false},
		{"tokens", false},
		{"amount", false},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			if got := Sensitive(tt.key); got != tt.want {
				t.Errorf("Sensitive(%q) = %v, want %v", tt.key, got, tt.want)
			}
		})
	}
}

func TestSanitize_NestedObjects(t *testing.T) {
	in := map[string]any{
		"email": "buyer@example.com",
		"password": "hunter2",
		"payment": map[string]any{
			"cardNumber": "4111111111111111",
			"cvv":        "123",
			"amount":     49.90,
		},
	}

	got := SanitizeMap(in)

	if got["password"] != Marker {
		t.Errorf("password = %v, want marker", got["password"])
	}
	if got["email"] != "buyer@example.com" {
		t.Errorf("email should pass through, got %v", got["email"])
	}
	payment := got["payment"].(map[string]any)
	if payment["cardNumber"] != Marker || payment["cvv"] != Marker {
		t.Errorf("nested card fields not masked: %v", payment)
	}
	if payment["amount"] != 49.90 {
		t.Errorf("amount should pass through, got %v", payment["amount"])
	}

	// Input must not be mutated.
	if in["password"] != "hunter2" {
		t.Error("Sanitize mutated its input")
	}
}

func TestSanitize_ArraysOfObjects(t *testing.T) {
	raw := `{"items":[{"name":"a","token":"t1"},{"name":"b","secret":"s1"}]}`
	var in map[string]any
	if err := json.Unmarshal([]byte(raw), &in); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	got := SanitizeMap(in)

	items := got["items"].([]any)
	first := items[0].(map[string]any)
	second := items[1].(map[string]any)
	if first["token"] != Marker {
		t.Errorf("items[0].token = %v, want marker", first["token"])
	}
	if second["secret"] != Marker {
		t.Errorf("items[1].secret = %v, want marker", second["secret"])
	}
	if first["name"] != "a" || second["name"] != "b" {
		t.Error("non-sensitive fields inside arrays should pass through")
	}
}

func TestSanitize_HeaderMaps(t *testing.T) {
	in := map[string][]string{
		"Authorization": {"Bearer abc"},
		"X-Api-Key":     {"key-123"},
		"Cookie":        {"session=xyz"},
		"Accept":        {"application/json"},
	}

	got := Sanitize(in).(map[string][]string)

	for _, h := range []string{"Authorization", "X-Api-Key", "Cookie"} {
		if !reflect.DeepEqual(got[h], []string{Marker}) {
			t.Errorf("%s = %v, want [%s]", h, got[h], Marker)
		}
	}
	if !reflect.DeepEqual(got["Accept"], []string{"application/json"}) {
		t.Errorf("Accept = %v, want passthrough", got["Accept"])
	}
}

func TestSanitize_Scalars(t *testing.T) {
	if got := Sanitize("plain"); got != "plain" {
		t.Errorf("scalar string changed: %v", got)
	}
	if got := Sanitize(42); got != 42 {
		t.Errorf("scalar int changed: %v", got)
	}
	if got := Sanitize(nil); got != nil {
		t.Errorf("nil changed: %v", got)
	}
}
