// Package model provides forecast.Model implementations: a random-forest
// regressor evaluated in-process from its JSON export, a process-wide shared
// loader for it, and a client for a remote inference endpoint.
package model

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/couchcryptid/pm25-forecast-service/internal/domain"
)

const leaf = -1

// Node is one node of an exported decision tree. Leaves have Left and Right
// set to -1 and carry Value. Numeric splits send x <= Threshold left;
// categorical splits send x in Categories left. A NaN numeric value goes right.
type Node struct {
	Feature    int      `json:"feature"`
	Threshold  float64  `json:"threshold,omitempty"`
	Categories []string `json:"categories,omitempty"`
	Left       int      `json:"left"`
	Right      int      `json:"right"`
	Value      float64  `json:"value,omitempty"`
}

// Tree is a flat node array rooted at index 0.
type Tree struct {
	Nodes []Node `json:"nodes"`
}

// forestFile is the JSON export format.
type forestFile struct {
	Features []string `json:"features"`
	Trees    []Tree   `json:"trees"`
}

// Forest is an immutable random-forest regressor. Predictions are the mean
// of the tree outputs.
type Forest struct {
	features []string
	trees    []Tree

	// schemaIndex maps a forest feature index to its position in domain.FeatureSchema.
	schemaIndex []int

	// catSets holds the category set of each categorical split, keyed by tree then node.
	catSets [][]map[string]struct{}
}

// LoadForest reads and validates a forest export from path.
func LoadForest(path string) (*Forest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open model: %w", err)
	}
	defer f.Close()

	forest, err := ParseForest(f)
	if err != nil {
		return nil, fmt.Errorf("load model %s: %w", path, err)
	}
	return forest, nil
}

// ParseForest decodes and validates a forest export. The export's feature
// list must match domain.FeatureSchema exactly.
func ParseForest(r io.Reader) (*Forest, error) {
	var file forestFile
	if err := json.NewDecoder(r).Decode(&file); err != nil {
		return nil, fmt.Errorf("decode forest: %w", err)
	}
	if err := domain.CheckSchema(file.Features); err != nil {
		return nil, err
	}
	if len(file.Trees) == 0 {
		return nil, errors.New("forest has no trees")
	}

	position := make(map[string]int, len(domain.FeatureSchema))
	for i, spec := range domain.FeatureSchema {
		position[spec.Name] = i
	}
	schemaIndex := make([]int, len(file.Features))
	for i, name := range file.Features {
		schemaIndex[i] = position[name]
	}

	forest := &Forest{
		features:    file.Features,
		trees:       file.Trees,
		schemaIndex: schemaIndex,
		catSets:     make([][]map[string]struct{}, len(file.Trees)),
	}
	for t, tree := range file.Trees {
		sets, err := forest.checkTree(tree)
		if err != nil {
			return nil, fmt.Errorf("tree %d: %w", t, err)
		}
		forest.catSets[t] = sets
	}
	return forest, nil
}

// checkTree validates node references. Children must come after their parent,
// which rules out cycles.
func (f *Forest) checkTree(tree Tree) ([]map[string]struct{}, error) {
	n := len(tree.Nodes)
	if n == 0 {
		return nil, errors.New("empty tree")
	}
	sets := make([]map[string]struct{}, n)
	for i, node := range tree.Nodes {
		if node.Left == leaf && node.Right == leaf {
			continue
		}
		if node.Left <= i || node.Left >= n || node.Right <= i || node.Right >= n {
			return nil, fmt.Errorf("node %d: child index out of range", i)
		}
		if node.Feature < 0 || node.Feature >= len(f.features) {
			return nil, fmt.Errorf("node %d: feature index %d out of range", i, node.Feature)
		}
		kind := domain.FeatureSchema[f.schemaIndex[node.Feature]].Kind
		if kind == domain.Categorical {
			if len(node.Categories) == 0 {
				return nil, fmt.Errorf("node %d: categorical split on %s has no categories", i, f.features[node.Feature])
			}
			set := make(map[string]struct{}, len(node.Categories))
			for _, c := range node.Categories {
				set[c] = struct{}{}
			}
			sets[i] = set
		}
	}
	return sets, nil
}

// FeatureNames returns the columns the forest was trained on, in export order.
func (f *Forest) FeatureNames() ([]string, error) {
	return append([]string(nil), f.features...), nil
}

// NumTrees returns the ensemble size.
func (f *Forest) NumTrees() int { return len(f.trees) }

// Predict evaluates every tree on the row and returns the mean.
func (f *Forest) Predict(ctx context.Context, row domain.FeatureRow) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	values := row.Columns()
	var sum float64
	for t := range f.trees {
		sum += f.evalTree(t, values)
	}
	return sum / float64(len(f.trees)), nil
}

func (f *Forest) evalTree(t int, values []domain.Column) float64 {
	nodes := f.trees[t].Nodes
	i := 0
	for {
		node := nodes[i]
		if node.Left == leaf {
			return node.Value
		}
		v := values[f.schemaIndex[node.Feature]].Value
		var goLeft bool
		if set := f.catSets[t][i]; set != nil {
			_, goLeft = set[v.Cat]
		} else {
			goLeft = v.Num <= node.Threshold
		}
		if goLeft {
			i = node.Left
		} else {
			i = node.Right
		}
	}
}
