package kubeconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/deskkube/clustercore/internal/k8s"
	"k8s.io/client-go/tools/clientcmd"
	clientcmdapi "k8s.io/client-go/tools/clientcmd/api"
)

// expandSource resolves a Source to the ordered list of concrete files it
// covers. A folder source is re-scanned on every call — its listing is
// never cached, matching the resolver's "folder is re-scanned on every
// load" edge-case policy.
func expandSource(src Source) ([]string, error) {
	switch src.Kind {
	case SourceFolder:
		entries, err := os.ReadDir(src.Path)
		if err != nil {
			return nil, err
		}
		var files []string
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			name := e.Name()
			if name == "config" || strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml") {
				files = append(files, filepath.Join(src.Path, name))
			}
		}
		sort.Strings(files)
		return files, nil
	default:
		return []string{src.Path}, nil
	}
}

// parseFile loads and normalizes a single kubeconfig file.
func parseFile(path string) (*ParsedConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	cfg, err := clientcmd.Load(raw)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return normalize(cfg, path), nil
}

// normalize converts a clientcmdapi.Config into this package's flat,
// source-tagged view.
func normalize(cfg *clientcmdapi.Config, sourceFile string) *ParsedConfig {
	out := &ParsedConfig{CurrentContext: cfg.CurrentContext}

	names := make([]string, 0, len(cfg.Contexts))
	for name := range cfg.Contexts {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		ctx := cfg.Contexts[name]
		out.Contexts = append(out.Contexts, Context{
			Name:       name,
			Cluster:    ctx.Cluster,
			User:       ctx.AuthInfo,
			Namespace:  ctx.Namespace,
			SourceFile: sourceFile,
		})
	}

	clusterNames := make([]string, 0, len(cfg.Clusters))
	for name := range cfg.Clusters {
		clusterNames = append(clusterNames, name)
	}
	sort.Strings(clusterNames)
	for _, name := range clusterNames {
		c := cfg.Clusters[name]
		out.Clusters = append(out.Clusters, Cluster{
			Name:       name,
			Server:     c.Server,
			SourceFile: sourceFile,
		})
	}

	userNames := make([]string, 0, len(cfg.AuthInfos))
	for name := range cfg.AuthInfos {
		userNames = append(userNames, name)
	}
	sort.Strings(userNames)
	for _, name := range userNames {
		u := cfg.AuthInfos[name]
		out.Users = append(out.Users, User{
			Name:       name,
			Auth:       detectAuthKind(u),
			SourceFile: sourceFile,
		})
	}

	return out
}

// detectAuthKind classifies a raw AuthInfo by the presence of specific
// sub-fields, in the order client certificate, token, exec plugin, OIDC
// auth-provider — delegating the decision table to internal/k8s so both
// packages agree on one ordering.
func detectAuthKind(u *clientcmdapi.AuthInfo) AuthKind {
	hasClientCert := len(u.ClientCertificateData) > 0 || u.ClientCertificate != ""
	hasToken := u.Token != "" || u.TokenFile != ""
	hasExec := u.Exec != nil
	hasAuthProvider := u.AuthProvider != nil
	return k8s.DetectAuthKind(hasClientCert, hasToken, hasExec, hasAuthProvider)
}
