package kubeconfig

// merge combines the per-file parsed configs (already in source order) into
// one ParsedConfig following §3's merge semantics: current_context from the
// first file that defines one; contexts/clusters/users unioned with
// first-occurrence-wins on name collision; in non-merge mode, a context
// whose cluster or user isn't defined in its own source file is dropped.
func merge(files []*ParsedConfig, mergeMode bool) *ParsedConfig {
	out := &ParsedConfig{}

	seenContext := make(map[string]bool)
	seenCluster := make(map[string]bool)
	seenUser := make(map[string]bool)

	// clustersByFile/usersByFile let non-merge mode check "defined in the
	// same source file" without re-scanning on every context.
	clustersByFile := make(map[string]map[string]bool)
	usersByFile := make(map[string]map[string]bool)
	for _, f := range files {
		for _, c := range f.Clusters {
			if clustersByFile[c.SourceFile] == nil {
				clustersByFile[c.SourceFile] = make(map[string]bool)
			}
			clustersByFile[c.SourceFile][c.Name] = true
		}
		for _, u := range f.Users {
			if usersByFile[u.SourceFile] == nil {
				usersByFile[u.SourceFile] = make(map[string]bool)
			}
			usersByFile[u.SourceFile][u.Name] = true
		}
	}

	for _, f := range files {
		if out.CurrentContext == "" && f.CurrentContext != "" {
			out.CurrentContext = f.CurrentContext
		}
		for _, c := range f.Clusters {
			if seenCluster[c.Name] {
				continue
			}
			seenCluster[c.Name] = true
			out.Clusters = append(out.Clusters, c)
		}
		for _, u := range f.Users {
			if seenUser[u.Name] {
				continue
			}
			seenUser[u.Name] = true
			out.Users = append(out.Users, u)
		}
		for _, ctx := range f.Contexts {
			if seenContext[ctx.Name] {
				continue
			}
			if !mergeMode {
				if !clustersByFile[ctx.SourceFile][ctx.Cluster] || !usersByFile[ctx.SourceFile][ctx.User] {
					continue
				}
			}
			seenContext[ctx.Name] = true
			out.Contexts = append(out.Contexts, ctx)
		}
	}

	return out
}
