package config

// SecretStringValue replaces secret values in dumps and logs.
const SecretStringValue = "<secret>"

// SecretString holds credentials (authorization headers) which must not be
// visible in configuration dumps, debug reports and logs. Use string
// conversion to get the actual value.
type SecretString string

// String masks value for fmt and zap.Stringer.
func (s SecretString) String() string {
	if len(s) == 0 {
		return ""
	}
	return SecretStringValue
}

func (s SecretString) MarshalJSON() ([]byte, error) {
	if len(s) == 0 {
		return []byte("null"), nil
	}
	return []byte("\"" + SecretStringValue + "\""), nil
}

func (s SecretString) MarshalYAML() (any, error) {
	if len(s) == 0 {
		return nil, nil
	}
	return SecretStringValue, nil
}
