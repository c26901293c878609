package kubeconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"k8s.io/client-go/tools/clientcmd"
)

// Resolver turns configured Sources into a merged ParsedConfig, and answers
// whether a given path is a usable kubeconfig source.
type Resolver struct{}

func NewResolver() *Resolver { return &Resolver{} }

// DefaultKubeconfigPath returns the host's default kubeconfig location
// (~/.kube/config or its OS equivalent).
func DefaultKubeconfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ""
	}
	return filepath.Join(home, ".kube", "config")
}

// Validate reports whether path is usable as a kubeconfig source, per
// §4.1: a folder is valid if it contains at least one readable kubeconfig
// file; a file is valid if parseable as YAML with a `kind: Config` shape.
func (r *Resolver) Validate(path string) ValidateResult {
	info, err := os.Stat(path)
	if err != nil {
		return ValidateResult{Error: err.Error(), IsDefault: path == DefaultKubeconfigPath()}
	}

	isDefault := path == DefaultKubeconfigPath()

	if info.IsDir() {
		files, err := expandSource(Source{Path: path, Kind: SourceFolder})
		if err != nil {
			return ValidateResult{Kind: SourceFolder, Error: err.Error(), IsDefault: isDefault}
		}
		contextCount := 0
		validFiles := 0
		for _, f := range files {
			parsed, err := parseFile(f)
			if err != nil {
				continue
			}
			validFiles++
			contextCount += len(parsed.Contexts)
		}
		return ValidateResult{
			Kind:         SourceFolder,
			FileCount:    validFiles,
			ContextCount: contextCount,
			Valid:        validFiles > 0,
			IsDefault:    isDefault,
		}
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return ValidateResult{Kind: SourceFile, Error: err.Error(), IsDefault: isDefault}
	}
	cfg, err := clientcmd.Load(raw)
	if err != nil {
		return ValidateResult{Kind: SourceFile, Error: err.Error(), IsDefault: isDefault}
	}
	if cfg.Kind != "" && cfg.Kind != "Config" {
		return ValidateResult{Kind: SourceFile, Error: fmt.Sprintf("unexpected kind %q", cfg.Kind), IsDefault: isDefault}
	}
	return ValidateResult{
		Kind:         SourceFile,
		FileCount:    1,
		ContextCount: len(cfg.Contexts),
		Valid:        true,
		IsDefault:    isDefault,
	}
}

// Load expands and merges all configured sources, plus the KUBECONFIG
// environment variable appended after explicit sources, per §4.1's
// edge-case policy. Unreadable or unparseable files are skipped with a
// warning; Load fails only when the merged result is empty and the sources
// expanded to no file at all. If every file was skipped, it returns an
// empty result with Warnings instead of an error.
func (r *Resolver) Load(sources []Source, mergeMode bool) (*ParsedConfig, error) {
	files := ExpandSources(sources)

	var parsed []*ParsedConfig
	var warnings []string
	for _, f := range files {
		p, err := parseFile(f)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("skipped %s: %v", f, err))
			continue
		}
		parsed = append(parsed, p)
	}

	merged := merge(parsed, mergeMode)
	merged.Warnings = warnings

	if len(merged.Contexts) == 0 && len(files) == 0 {
		return nil, fmt.Errorf("no kubeconfig sources configured and no default available")
	}

	return merged, nil
}

// ExpandSources resolves each configured Source to its concrete files,
// appends the KUBECONFIG environment variable (split on the platform's path
// list separator) after explicit sources, and deduplicates while preserving
// first-occurrence order.
func ExpandSources(sources []Source) []string {
	allSources := append([]Source{}, sources...)
	if envPath := os.Getenv("KUBECONFIG"); envPath != "" {
		for _, p := range strings.Split(envPath, string(os.PathListSeparator)) {
			if p = strings.TrimSpace(p); p != "" {
				allSources = append(allSources, Source{Path: p, Kind: SourceFile})
			}
		}
	}

	var files []string
	seen := make(map[string]bool)
	for _, src := range allSources {
		expanded, err := expandSource(src)
		if err != nil {
			continue
		}
		for _, f := range expanded {
			if !seen[f] {
				seen[f] = true
				files = append(files, f)
			}
		}
	}
	return files
}
