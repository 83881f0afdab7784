package electionconfig

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"sort"
)

// nodeFile is the on-disk (fs.FS) shape of one GGO's "ggo.json", decoded
// before being promoted to a Node plus post-uid-assignment contests.
type nodeFile struct {
	Kind       string        `json:"kind"`
	Subdir     string        `json:"subdir"`
	AddressMap AddressMap    `json:"address_map"`
	Contests   []NodeContest `json:"contests"`
}

const nodeFileName = "ggo.json"
const childrenDir = "GGOs"

// Load walks fsys, reading one nodeFileName per directory starting at the
// root, and returns the frozen configuration DAG. Using fs.FS rather than a
// hardcoded os.DirFS root keeps Load testable against fstest.MapFS without
// touching disk (§9's ambient-infra-testability norm, and this package's
// own tests do exactly that).
//
// Directory layout: the root node's file lives at nodeFileName; each
// child GGO lives under "{parent}/GGOs/{child-name}/ggo.json", recursively.
func Load(fsys fs.FS) (*ElectionConfig, error) {
	nodes := make(map[string]*Node)
	if err := loadNode(fsys, RootPath, ".", nodes); err != nil {
		return nil, newConfigError(err)
	}

	if err := validateUniqueBallotPaths(nodes); err != nil {
		return nil, newConfigError(err)
	}

	topo, err := topoSort(nodes)
	if err != nil {
		return nil, newConfigError(err)
	}

	if err := compileRegexes(nodes); err != nil {
		return nil, newConfigError(err)
	}

	assignUIDs(nodes, topo)

	return &ElectionConfig{nodes: nodes, topo: topo}, nil
}

func loadNode(fsys fs.FS, logicalPath, fsPath string, nodes map[string]*Node) error {
	data, err := fs.ReadFile(fsys, path.Join(fsPath, nodeFileName))
	if err != nil {
		return fmt.Errorf("reading %s: %w", logicalPath, err)
	}
	var nf nodeFile
	if err := json.Unmarshal(data, &nf); err != nil {
		return fmt.Errorf("parsing %s: %w", logicalPath, err)
	}

	node := &Node{
		Path:       logicalPath,
		Kind:       nf.Kind,
		Subdir:     nf.Subdir,
		AddressMap: nf.AddressMap,
		Contests:   nf.Contests,
	}
	if _, exists := nodes[logicalPath]; exists {
		return fmt.Errorf("duplicate node path %q", logicalPath)
	}
	nodes[logicalPath] = node

	childrenRoot := path.Join(fsPath, childrenDir)
	entries, err := fs.ReadDir(fsys, childrenRoot)
	if err != nil {
		// No GGOs subdirectory: this node is a leaf.
		return nil
	}
	childNames := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			childNames = append(childNames, e.Name())
		}
	}
	sort.Strings(childNames)

	for _, name := range childNames {
		childLogical := path.Join(logicalPath, childrenDir, name)
		node.Children = append(node.Children, childLogical)
		if err := loadNode(fsys, childLogical, path.Join(childrenRoot, name), nodes); err != nil {
			return err
		}
	}
	return nil
}

// validateUniqueBallotPaths checks every GGO path referenced by a
// unique-ballots entry resolves to a real node (§3 invariant).
func validateUniqueBallotPaths(nodes map[string]*Node) error {
	for path, node := range nodes {
		if node.AddressMap.Kind != AddressMapUnique {
			continue
		}
		for _, entry := range node.AddressMap.UniqueBallots {
			for _, ref := range entry.GGOPaths {
				if _, ok := nodes[ref]; !ok {
					return fmt.Errorf("node %q: unique-ballots entry references unknown GGO path %q", path, ref)
				}
			}
		}
	}
	return nil
}

// compileRegexes validates every unique-ballots regex compiles, per §4.A's
// ConfigError trigger "address-map regex compilation failure".
func compileRegexes(nodes map[string]*Node) error {
	for path, node := range nodes {
		if node.AddressMap.Kind != AddressMapUnique {
			continue
		}
		for _, entry := range node.AddressMap.UniqueBallots {
			for _, pattern := range entry.Regexes {
				if _, err := regexp.Compile(pattern); err != nil {
					return fmt.Errorf("node %q: invalid address-map regex %q: %w", path, pattern, err)
				}
			}
		}
	}
	return nil
}

// topoSort returns a topological ordering of nodes (root first), failing
// with an error describing a cycle if one is found. The graph is walked by
// an explicit visited/in-progress pair rather than relying on recursion
// depth alone, so a cycle is reported rather than stack-overflowing.
func topoSort(nodes map[string]*Node) ([]string, error) {
	const (
		unvisited = 0
		visiting  = 1
		done      = 2
	)
	state := make(map[string]int, len(nodes))
	var order []string

	var visit func(p string) error
	visit = func(p string) error {
		switch state[p] {
		case done:
			return nil
		case visiting:
			return fmt.Errorf("cycle detected at node %q", p)
		}
		state[p] = visiting
		node, ok := nodes[p]
		if !ok {
			return fmt.Errorf("missing node %q referenced as a child", p)
		}
		for _, child := range node.Children {
			if err := visit(child); err != nil {
				return err
			}
		}
		state[p] = done
		order = append(order, p)
		return nil
	}

	if err := visit(RootPath); err != nil {
		return nil, err
	}
	// order is currently leaf-first (post-order); reverse for root-first.
	for i, j := 0, len(order)-1; i < j; i, j = i+1, j-1 {
		order[i], order[j] = order[j], order[i]
	}
	if len(order) != len(nodes) {
		return nil, fmt.Errorf("graph has %d nodes but only %d are reachable from root", len(nodes), len(order))
	}
	return order, nil
}

// assignUIDs walks nodes in topological order, stamping each contest
// encountered with the next uid, zero-padded to 4 digits (§4.A). This is
// the single mutation point for the uid counter: it runs once per Load
// call and the resulting ElectionConfig is never re-stamped (§9).
func assignUIDs(nodes map[string]*Node, topo []string) {
	counter := 0
	for _, p := range topo {
		node := nodes[p]
		for i := range node.Contests {
			counter++
			node.Contests[i].Uid = fmt.Sprintf("%04d", counter)
		}
	}
}
