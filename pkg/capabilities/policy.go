// Package capabilities implements jsfn module policy loading and enforcement.
package capabilities

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

const (
	// ProjectFile is the policy file looked up in the project directory.
	ProjectFile = ".jsfnpolicy.yaml"
	// UserDir holds the user policy, relative to the home directory.
	UserDir = ".jsfn"
	// UserFile is the user policy file name inside UserDir.
	UserFile = "policy.yaml"
	// Wildcard in a deny list denies every module.
	Wildcard = "*"
)

// Limits bounds a single run. Nil fields mean no limit from the policy.
type Limits struct {
	TimeMs       *int64 `yaml:"timeMs,omitempty" json:"timeMs,omitempty"`
	MaxCallDepth *int64 `yaml:"maxCallDepth,omitempty" json:"maxCallDepth,omitempty"`
}

// PolicyFile represents the YAML structure of a policy file.
type PolicyFile struct {
	Allow  []string `yaml:"allow,omitempty" json:"allow,omitempty"`
	Deny   []string `yaml:"deny,omitempty" json:"deny,omitempty"`
	Limits Limits   `yaml:"limits,omitempty" json:"limits,omitempty"`
}

// Policy defines which host modules require may load.
type Policy struct {
	// Allowed lists the permitted modules; nil permits every module not denied.
	Allowed map[string]bool
	Denied  map[string]bool
	Limits  Limits
	// Source is the file the policy came from, empty for built-in defaults.
	Source string
}

// IsAllowed checks whether a module is permitted by this policy.
func (p *Policy) IsAllowed(module string) bool {
	if p == nil {
		return true
	}
	if p.Denied[module] || p.Denied[Wildcard] {
		return false
	}
	if p.Allowed == nil {
		return true
	}
	return p.Allowed[module]
}

// AllowedModules filters names down to those the policy permits.
func (p *Policy) AllowedModules(names []string) map[string]bool {
	out := make(map[string]bool, len(names))
	for _, name := range names {
		if p.IsAllowed(name) {
			out[name] = true
		}
	}
	return out
}

// File renders the policy back into its file form. An allow list that
// every entry was denied from renders as a wildcard deny, since an empty
// allow list would read back as allow-all.
func (p *Policy) File() *PolicyFile {
	pf := &PolicyFile{Limits: p.Limits}
	pf.Allow = sortedSet(p.Allowed)
	pf.Deny = sortedSet(p.Denied)
	if p.Allowed != nil && len(p.Allowed) == 0 && !p.Denied[Wildcard] {
		pf.Deny = append([]string{Wildcard}, pf.Deny...)
	}
	return pf
}

// LoadPolicy loads the module policy for projectDir.
// Policy precedence: project (.jsfnpolicy.yaml) → user (~/.jsfn/policy.yaml) → allow-all default.
// A missing file falls through to the next source; a malformed one is an error.
func LoadPolicy(projectDir string) (*Policy, error) {
	paths := []string{filepath.Join(projectDir, ProjectFile)}
	if homeDir, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(homeDir, UserDir, UserFile))
	}

	for _, path := range paths {
		pf, err := LoadPolicyFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		policy := NewPolicy(pf)
		policy.Source = path
		return policy, nil
	}

	return AllowAll(), nil
}

// LoadPolicyFile parses and validates a single policy file.
func LoadPolicyFile(path string) (*PolicyFile, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return DecodePolicy(file, path)
}

// DecodePolicy parses policy YAML from r. Unknown fields are rejected.
// An empty document is an empty policy.
func DecodePolicy(r io.Reader, name string) (*PolicyFile, error) {
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)

	var pf PolicyFile
	if err := decoder.Decode(&pf); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("policy: parse %s: %w", name, err)
	}
	if err := pf.validate(); err != nil {
		return nil, fmt.Errorf("policy: %s: %w", name, err)
	}
	return &pf, nil
}

func (pf *PolicyFile) validate() error {
	for _, list := range [][]string{pf.Allow, pf.Deny} {
		for i, name := range list {
			if name == "" {
				return fmt.Errorf("module names must be non-empty (entry %d)", i)
			}
		}
	}
	if pf.Limits.TimeMs != nil && *pf.Limits.TimeMs <= 0 {
		return fmt.Errorf("limits.timeMs must be positive")
	}
	if pf.Limits.MaxCallDepth != nil && *pf.Limits.MaxCallDepth <= 0 {
		return fmt.Errorf("limits.maxCallDepth must be positive")
	}
	return nil
}

// NewPolicy builds the effective policy described by pf.
func NewPolicy(pf *PolicyFile) *Policy {
	p := &Policy{Limits: pf.Limits, Denied: make(map[string]bool)}

	// An empty allow list permits everything not denied.
	if len(pf.Allow) > 0 {
		p.Allowed = make(map[string]bool)
		for _, m := range pf.Allow {
			p.Allowed[m] = true
		}
	}

	// Deny overrides allow
	for _, m := range pf.Deny {
		p.Denied[m] = true
		delete(p.Allowed, m)
	}

	return p
}

// AllowAll returns a policy that permits every module. Used when no policy
// file exists and for --unsafe-allow-all.
func AllowAll() *Policy {
	return &Policy{}
}

func sortedSet(set map[string]bool) []string {
	if set == nil {
		return nil
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
