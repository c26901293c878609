package redact

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSecretData_RedactsValuesKeepsKeys(t *testing.T) {
	obj := map[string]interface{}{
		"data": map[string]interface{}{
			"password": "c2VjcmV0",
		},
	}
	SecretData(obj)
	data := obj["data"].(map[string]interface{})
	assert.Equal(t, redactedValue, data["password"])
	assert.Contains(t, data, "password")
}

func TestSecretData_NilIsNoOp(t *testing.T) {
	assert.NotPanics(t, func() { SecretData(nil) })
}

func TestIsSecretKind(t *testing.T) {
	assert.True(t, IsSecretKind("Secret"))
	assert.True(t, IsSecretKind("secrets"))
	assert.False(t, IsSecretKind("Pod"))
}
