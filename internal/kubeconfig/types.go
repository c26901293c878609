// Package kubeconfig resolves one or more on-disk kubeconfig sources into a
// normalized, merged view of contexts/clusters/users, grounded in
// client-go's tools/clientcmd loading rules the way internal/k8s.Client
// already uses them for a single source.
package kubeconfig

import "github.com/deskkube/clustercore/internal/k8s"

// SourceKind distinguishes a single kubeconfig file from a folder that
// expands, at read time, to its immediate children.
type SourceKind string

const (
	SourceFile   SourceKind = "file"
	SourceFolder SourceKind = "folder"
)

// Source is one configured kubeconfig location.
type Source struct {
	Path string     `json:"path"`
	Kind SourceKind `json:"kind"`
}

// AuthKind classifies how a kubeconfig user authenticates; re-exported from
// internal/k8s so callers of this package don't need a second import.
type AuthKind = k8s.AuthKind

const (
	AuthClientCertificate = k8s.AuthClientCertificate
	AuthToken             = k8s.AuthToken
	AuthExecPlugin        = k8s.AuthExecPlugin
	AuthOIDC              = k8s.AuthOIDC
	AuthUnknown           = k8s.AuthUnknown
)

// Context is one normalized kubeconfig context entry.
type Context struct {
	Name       string `json:"name"`
	Cluster    string `json:"cluster"`
	User       string `json:"user"`
	Namespace  string `json:"namespace,omitempty"`
	SourceFile string `json:"source_file"`
}

// Cluster is one normalized kubeconfig cluster entry.
type Cluster struct {
	Name       string `json:"name"`
	Server     string `json:"server"`
	SourceFile string `json:"source_file"`
}

// User is one normalized kubeconfig user entry.
type User struct {
	Name       string   `json:"name"`
	Auth       AuthKind `json:"auth"`
	SourceFile string   `json:"source_file"`
}

// ParsedConfig is the merged, normalized view returned by Load.
type ParsedConfig struct {
	CurrentContext string    `json:"current_context,omitempty"`
	Contexts       []Context `json:"contexts"`
	Clusters       []Cluster `json:"clusters"`
	Users          []User    `json:"users"`
	// Warnings records sources that were skipped because they were
	// unreadable or unparseable; Load fails outright only when the sources
	// expand to no file at all and the result is empty.
	Warnings []string `json:"warnings,omitempty"`
}

// ValidateResult is the shape returned by Resolver.Validate.
type ValidateResult struct {
	Kind         SourceKind `json:"kind"`
	FileCount    int        `json:"file_count"`
	ContextCount int        `json:"context_count"`
	Valid        bool       `json:"valid"`
	Error        string     `json:"error,omitempty"`
	IsDefault    bool       `json:"is_default"`
}
