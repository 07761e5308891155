package main

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var httpMethods = map[string]bool{
	"get": true, "put": true, "post": true, "delete": true,
	"patch": true, "head": true, "options": true,
}

// apiDoc is the part of a swagger document the compatibility check reads.
// JSON documents decode too, since YAML is a superset.
type apiDoc struct {
	Paths map[string]map[string]struct {
		Responses map[string]yaml.Node `yaml:"responses"`
	} `yaml:"paths"`
}

// endpoints maps "path" to "method" to its response codes.
type endpoints map[string]map[string]map[string]bool

func loadEndpoints(path, prefix string) (endpoints, error) {
	// #nosec G304: path comes from CLI flags in a dev tool
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc apiDoc
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	if doc.Paths == nil {
		return nil, errors.New("missing top-level paths field")
	}

	out := endpoints{}
	for p, ops := range doc.Paths {
		if !strings.HasPrefix(p, prefix) {
			continue
		}
		for method, op := range ops {
			method = strings.ToLower(strings.TrimSpace(method))
			if !httpMethods[method] {
				continue
			}
			codes := map[string]bool{}
			for code := range op.Responses {
				codes[strings.ToLower(strings.TrimSpace(code))] = true
			}
			if out[p] == nil {
				out[p] = map[string]map[string]bool{}
			}
			out[p][method] = codes
		}
	}
	return out, nil
}

// breakingChanges lists what base offers that revision no longer does.
func breakingChanges(base, revision endpoints) []string {
	var issues []string
	for p, ops := range base {
		revOps, ok := revision[p]
		if !ok {
			issues = append(issues, "removed path: "+p)
			continue
		}
		for method, codes := range ops {
			revCodes, ok := revOps[method]
			if !ok {
				issues = append(issues, fmt.Sprintf("removed operation: %s %s", strings.ToUpper(method), p))
				continue
			}
			for code := range codes {
				if !revCodes[code] {
					issues = append(issues, fmt.Sprintf("removed response code: %s %s -> %s",
						strings.ToUpper(method), p, strings.ToUpper(code)))
				}
			}
		}
	}
	sort.Strings(issues)
	return issues
}

func newAPICheckCmd() *cobra.Command {
	var basePath, revisionPath, prefix string
	cmd := &cobra.Command{
		Use:   "apicheck",
		Short: "Fail when a revised API document drops paths, operations or response codes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			base, err := loadEndpoints(basePath, prefix)
			if err != nil {
				return fmt.Errorf("load base spec: %w", err)
			}
			revision, err := loadEndpoints(revisionPath, prefix)
			if err != nil {
				return fmt.Errorf("load revision spec: %w", err)
			}
			if issues := breakingChanges(base, revision); len(issues) > 0 {
				return fmt.Errorf("backward compatibility check failed:\n- %s", strings.Join(issues, "\n- "))
			}
			fmt.Fprintln(cmd.OutOrStdout(), "api compatibility check passed")
			return nil
		},
	}
	cmd.Flags().StringVar(&basePath, "base", "", "base swagger document (YAML or JSON)")
	cmd.Flags().StringVar(&revisionPath, "revision", "", "revised swagger document")
	cmd.Flags().StringVar(&prefix, "prefix", "/v1", "only check paths with this prefix")
	_ = cmd.MarkFlagRequired("base")
	_ = cmd.MarkFlagRequired("revision")
	return cmd
}
