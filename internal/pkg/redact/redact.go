// Package redact strips Kubernetes Secret values before objects leave this
// process on any channel — watch events, log lines, or API responses.
package redact

const redactedValue = "***REDACTED***"

// SecretData redacts a Secret's .data and .stringData values in obj (in
// place, as produced by an unstructured.Unstructured's Object field). Key
// names are kept so callers still know which keys exist.
func SecretData(obj map[string]interface{}) {
	if obj == nil {
		return
	}
	if data, ok := obj["data"].(map[string]interface{}); ok {
		for k := range data {
			data[k] = redactedValue
		}
	}
	if stringData, ok := obj["stringData"].(map[string]interface{}); ok {
		for k := range stringData {
			stringData[k] = redactedValue
		}
	}
}

// IsSecretKind reports whether kind names a Kubernetes Secret, accepting
// "Secret" and "secret" and their plurals only.
func IsSecretKind(kind string) bool {
	switch kind {
	case "Secret", "secret", "Secrets", "secrets":
		return true
	}
	return false
}
