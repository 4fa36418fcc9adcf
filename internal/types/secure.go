package types

const redacted = "[redacted]"

// SecretString holds a credential (database DSN, API token) and refuses to
// print or marshal its value. Call Unmask where the raw value is needed.
type SecretString string

// String returns a placeholder, never the value.
func (s SecretString) String() string {
	return redacted
}

// MarshalJSON encodes the placeholder.
func (s SecretString) MarshalJSON() ([]byte, error) {
	return []byte(`"` + redacted + `"`), nil
}

// Unmask returns the raw value.
func (s SecretString) Unmask() string {
	return string(s)
}
