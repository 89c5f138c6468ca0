// Package loader provides package/target loaders for the analysis
// phase: an in-memory loader for programmatic construction and a YAML
// manifest loader for fixture-style workspaces. Parsing real build
// files is out of scope; manifests describe already-structured
// packages, targets and configurations.
package loader
