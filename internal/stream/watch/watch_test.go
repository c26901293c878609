package watch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

func TestSummarize_ProjectsUIFacingShape(t *testing.T) {
	obj := &unstructured.Unstructured{}
	obj.SetAPIVersion("v1")
	obj.SetKind("Pod")
	obj.SetName("my-pod")
	obj.SetNamespace("default")
	obj.SetUID("abc-123")
	obj.SetLabels(map[string]string{"app": "demo"})
	obj.SetCreationTimestamp(metav1.NewTime(time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)))

	s := summarize(obj)
	assert.Equal(t, "v1", s.APIVersion)
	assert.Equal(t, "Pod", s.Kind)
	assert.Equal(t, "my-pod", s.Name)
	assert.Equal(t, "default", s.Namespace)
	assert.Equal(t, "abc-123", s.UID)
	assert.Equal(t, "demo", s.Labels["app"])
	require.Contains(t, s.Created, "2024-01-15")
}
