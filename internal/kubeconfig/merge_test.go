package kubeconfig

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMerge_CrossFileReferences(t *testing.T) {
	onlyContext := &ParsedConfig{
		Contexts: []Context{{Name: "ctx", Cluster: "cluster-a", User: "user-a", SourceFile: "a.yaml"}},
	}
	onlyCluster := &ParsedConfig{
		Clusters: []Cluster{{Name: "cluster-a", Server: "https://a", SourceFile: "b.yaml"}},
	}
	onlyUser := &ParsedConfig{
		Users: []User{{Name: "user-a", Auth: AuthToken, SourceFile: "c.yaml"}},
	}

	merged := merge([]*ParsedConfig{onlyContext, onlyCluster, onlyUser}, true)
	require.Len(t, merged.Contexts, 1)
	assert.Len(t, merged.Clusters, 1)
	assert.Len(t, merged.Users, 1)

	mergedOff := merge([]*ParsedConfig{onlyContext, onlyCluster, onlyUser}, false)
	assert.Len(t, mergedOff.Contexts, 0, "cross-file context references must be dropped in non-merge mode")
}

func TestMerge_DuplicateContextFirstWins(t *testing.T) {
	sourceA := &ParsedConfig{
		Contexts: []Context{{Name: "ctx", Cluster: "cluster-A", User: "user-A", SourceFile: "a.yaml"}},
		Clusters: []Cluster{{Name: "cluster-A", Server: "https://a", SourceFile: "a.yaml"}},
		Users:    []User{{Name: "user-A", Auth: AuthToken, SourceFile: "a.yaml"}},
	}
	sourceB := &ParsedConfig{
		Contexts: []Context{{Name: "ctx", Cluster: "cluster-B", User: "user-B", SourceFile: "b.yaml"}},
		Clusters: []Cluster{{Name: "cluster-B", Server: "https://b", SourceFile: "b.yaml"}},
		Users:    []User{{Name: "user-B", Auth: AuthToken, SourceFile: "b.yaml"}},
	}

	merged := merge([]*ParsedConfig{sourceA, sourceB}, true)
	require.Len(t, merged.Contexts, 1)
	assert.Equal(t, "cluster-A", merged.Contexts[0].Cluster)
}

func TestMerge_CurrentContextFromFirstDefining(t *testing.T) {
	first := &ParsedConfig{}
	second := &ParsedConfig{CurrentContext: "from-second"}
	third := &ParsedConfig{CurrentContext: "from-third"}

	merged := merge([]*ParsedConfig{first, second, third}, true)
	assert.Equal(t, "from-second", merged.CurrentContext)
}
