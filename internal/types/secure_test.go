package types

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"
)

const testSecret = "postgres://surf:hunter2@db:5432/surfcast"

func TestSecretStringNeverPrints(t *testing.T) {
	s := SecretString(testSecret)

	for _, out := range []string{s.String(), fmt.Sprintf("%s", s), fmt.Sprintf("%v", s)} {
		if strings.Contains(out, "hunter2") {
			t.Errorf("secret leaked: %q", out)
		}
	}
}

func TestSecretStringMarshalJSON(t *testing.T) {
	payload := struct {
		DSN SecretString `json:"dsn"`
	}{DSN: SecretString(testSecret)}

	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if strings.Contains(string(data), "hunter2") {
		t.Errorf("secret leaked in JSON: %s", data)
	}
	if string(data) != `{"dsn":"[redacted]"}` {
		t.Errorf("json = %s", data)
	}
}

func TestSecretStringUnmask(t *testing.T) {
	if SecretString(testSecret).Unmask() != testSecret {
		t.Error("Unmask did not return the raw value")
	}
}
