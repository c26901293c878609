package classify

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime/schema"
)

func TestClassify_StatusCodes(t *testing.T) {
	cases := []struct {
		code int
		want Kind
	}{
		{401, Unauthorized},
		{403, Forbidden},
		{404, NotFound},
		{409, Conflict},
		{429, RateLimited},
		{500, ServerError},
		{503, ServerError},
		{418, Unknown},
	}
	for _, tc := range cases {
		err := &apierrors.StatusError{ErrStatus: metav1.Status{Code: int32(tc.code), Reason: metav1.StatusReason("x")}}
		got := Classify(err)
		assert.Equal(t, tc.want, got.Kind, "code %d", tc.code)
		assert.Equal(t, retryableKinds[tc.want], got.Retryable)
	}
}

func TestClassify_NotFoundHasResource(t *testing.T) {
	err := apierrors.NewNotFound(schema.GroupResource{Resource: "pods"}, "my-pod")
	got := Classify(err)
	assert.Equal(t, NotFound, got.Kind)
	assert.Equal(t, "pods/my-pod", got.Resource)
	assert.False(t, got.Retryable)
}

func TestClassify_TransportErrors(t *testing.T) {
	assert.Equal(t, Timeout, Classify(errors.New("context deadline exceeded")).Kind)
	assert.Equal(t, Network, Classify(errors.New("dial tcp: connection refused")).Kind)
	assert.Equal(t, Unknown, Classify(errors.New("something weird")).Kind)
}

func TestClassify_Nil(t *testing.T) {
	assert.Nil(t, Classify(nil))
}

func TestClassify_RetryableInvariant(t *testing.T) {
	retryable := map[Kind]bool{
		Conflict: true, RateLimited: true, ServerError: true,
		Network: true, Timeout: true, Unknown: true,
		Forbidden: false, Unauthorized: false, NotFound: false,
	}
	for kind, want := range retryable {
		assert.Equal(t, want, retryableKinds[kind], "kind %s", kind)
	}
}
