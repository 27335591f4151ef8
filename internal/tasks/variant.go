package tasks

import (
	"fmt"
	"sort"
	"strings"

	"stepwise/internal/catalog"
	"stepwise/internal/detection"
	"stepwise/internal/rules"
)

// Variant is one guided task: its step catalog, the rule bound to each
// non-terminal step and the detector label names for its classes.
type Variant struct {
	Name    string
	Catalog *catalog.Catalog
	Rules   rules.Table
	Classes map[string]detection.Class
}

// Validate checks that every non-terminal step has a rule and the terminal
// step has none.
func (v *Variant) Validate() error {
	if v == nil || v.Catalog == nil {
		return fmt.Errorf("task variant has no catalog")
	}
	if v.Name != v.Catalog.Task() {
		return fmt.Errorf("task %s: catalog belongs to %s", v.Name, v.Catalog.Task())
	}
	final := v.Catalog.Final().ID
	for _, step := range v.Catalog.Steps() {
		_, ok := v.Rules[step.ID]
		switch {
		case step.ID == final && ok:
			return fmt.Errorf("task %s: terminal step %s has a rule", v.Name, step.Name)
		case step.ID != final && !ok:
			return fmt.Errorf("task %s: step %s has no rule", v.Name, step.Name)
		}
	}
	for id := range v.Rules {
		if v.Catalog.Position(id) < 0 {
			return fmt.Errorf("task %s: rule bound to unknown step %d", v.Name, id)
		}
	}
	return nil
}

// Rule returns the rule for step.
func (v *Variant) Rule(step catalog.StepID) (rules.Rule, bool) {
	r, ok := v.Rules[step]
	return r, ok
}

// ClassByName resolves a detector label, case-insensitively.
func (v *Variant) ClassByName(name string) (detection.Class, bool) {
	c, ok := v.Classes[strings.ToLower(strings.TrimSpace(name))]
	return c, ok
}

// ClassName returns the label for c, or its number when unlabeled.
func (v *Variant) ClassName(c detection.Class) string {
	for name, id := range v.Classes {
		if id == c {
			return name
		}
	}
	return fmt.Sprintf("%d", c)
}

// ClassNames returns the labels ordered by class id.
func (v *Variant) ClassNames() []string {
	names := make([]string, 0, len(v.Classes))
	for name := range v.Classes {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return v.Classes[names[i]] < v.Classes[names[j]] })
	return names
}
