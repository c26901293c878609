package permission

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify_Critical(t *testing.T) {
	assert.Equal(t, SeverityCritical, Classify("kubectl drain node/worker-1"))
	assert.Equal(t, SeverityCritical, Classify("kubectl cordon node/worker-1"))
	assert.Equal(t, SeverityCritical, Classify("kubectl delete clusterrole admin"))
	assert.Equal(t, SeverityCritical, Classify("kubectl delete namespace staging"))
}

func TestClassify_High(t *testing.T) {
	assert.Equal(t, SeverityHigh, Classify("kubectl delete pod my-pod"))
	assert.Equal(t, SeverityHigh, Classify("rm -rf /data"))
}

func TestClassify_Medium(t *testing.T) {
	assert.Equal(t, SeverityMedium, Classify("kubectl apply -f deploy.yaml"))
	assert.Equal(t, SeverityMedium, Classify("kubectl scale deployment/api --replicas=3"))
}

func TestClassify_Low(t *testing.T) {
	assert.Equal(t, SeverityLow, Classify("kubectl exec -it pod/my-pod -- sh"))
}

func TestClassify_None(t *testing.T) {
	assert.Equal(t, SeverityNone, Classify("kubectl get pods"))
	assert.Equal(t, SeverityNone, Classify("kubectl describe pod my-pod"))
	assert.Equal(t, SeverityNone, Classify("kubectl logs my-pod"))
}

func TestSeverity_AtLeast(t *testing.T) {
	assert.True(t, SeverityHigh.AtLeast(SeverityMedium))
	assert.True(t, SeverityMedium.AtLeast(SeverityMedium))
	assert.False(t, SeverityLow.AtLeast(SeverityMedium))
}

func TestIsRestricted(t *testing.T) {
	assert.True(t, IsRestricted("kube-system", DefaultRestrictedNamespaces))
	assert.False(t, IsRestricted("default", DefaultRestrictedNamespaces))
}
