package portforward

import (
	"testing"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/util/intstr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveServicePort_SinglePortNoRequest(t *testing.T) {
	svc := &corev1.Service{Spec: corev1.ServiceSpec{
		Ports: []corev1.ServicePort{{Port: 80, TargetPort: intstr.FromInt(8080)}},
	}}
	tp, err := resolveServicePort(svc, "")
	require.NoError(t, err)
	assert.Equal(t, int32(8080), tp.IntVal)
}

func TestResolveServicePort_MultiplePortsRequiresTarget(t *testing.T) {
	svc := &corev1.Service{Spec: corev1.ServiceSpec{
		Ports: []corev1.ServicePort{{Port: 80}, {Port: 443}},
	}}
	_, err := resolveServicePort(svc, "")
	assert.Error(t, err)
}

func TestResolveServicePort_ByNumericPort(t *testing.T) {
	svc := &corev1.Service{Spec: corev1.ServiceSpec{
		Ports: []corev1.ServicePort{{Port: 80, TargetPort: intstr.FromInt(8080)}, {Port: 443, TargetPort: intstr.FromInt(8443)}},
	}}
	tp, err := resolveServicePort(svc, "443")
	require.NoError(t, err)
	assert.Equal(t, int32(8443), tp.IntVal)
}

func TestResolveServicePort_ByName(t *testing.T) {
	svc := &corev1.Service{Spec: corev1.ServiceSpec{
		Ports: []corev1.ServicePort{{Name: "https", Port: 443, TargetPort: intstr.FromString("https-port")}},
	}}
	tp, err := resolveServicePort(svc, "https")
	require.NoError(t, err)
	assert.Equal(t, "https-port", tp.StrVal)
}

func TestDefaultedTargetPort_OmittedDefaultsToPort(t *testing.T) {
	tp := defaultedTargetPort(corev1.ServicePort{Port: 9090})
	assert.Equal(t, int32(9090), tp.IntVal)
}

func TestResolveContainerPort_NamedPort(t *testing.T) {
	pod := &corev1.Pod{Spec: corev1.PodSpec{Containers: []corev1.Container{
		{Ports: []corev1.ContainerPort{{Name: "http", ContainerPort: 8080}}},
	}}}
	port, err := resolveContainerPort(pod, intstr.FromString("http"))
	require.NoError(t, err)
	assert.Equal(t, 8080, port)
}

func TestResolveContainerPort_NumericPassthrough(t *testing.T) {
	pod := &corev1.Pod{}
	port, err := resolveContainerPort(pod, intstr.FromInt(1234))
	require.NoError(t, err)
	assert.Equal(t, 1234, port)
}

func TestPortCandidates_PreferredIsOnlyCandidate(t *testing.T) {
	assert.Equal(t, []int{8080}, portCandidates(8080))
}

func TestPortCandidates_DefaultRangeCoversFullBand(t *testing.T) {
	candidates := portCandidates(0)
	assert.Len(t, candidates, localPortRangeEnd-localPortRangeStart)
}
