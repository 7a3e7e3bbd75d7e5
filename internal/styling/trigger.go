// internal/styling/trigger.go
package styling

import "github.com/xkilldash9x/elementcore/internal/property"

// ConditionFunc evaluates a single condition against the current state.
type ConditionFunc func(c Condition) (bool, error)

// Matches reports whether every condition of the trigger holds.
func (tr Trigger) Matches(eval ConditionFunc) (bool, error) {
	for _, c := range tr.Conditions {
		ok, err := eval(c)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

// TriggerValue scans triggers from last to first and returns the value of
// the first matching trigger that sets k on target. Later triggers win.
func TriggerValue(triggers []Trigger, k *property.Key, target string, eval ConditionFunc) (any, bool, error) {
	for i := len(triggers) - 1; i >= 0; i-- {
		tr := triggers[i]
		idx := -1
		for j := len(tr.Setters) - 1; j >= 0; j-- {
			if tr.Setters[j].Property == k && tr.Setters[j].TargetName == target {
				idx = j
				break
			}
		}
		if idx < 0 {
			continue
		}
		ok, err := tr.Matches(eval)
		if err != nil {
			return nil, false, err
		}
		if ok {
			return tr.Setters[idx].Value, true, nil
		}
	}
	return nil, false, nil
}

// Dependents lists the setters whose applicability may change when k
// changes on the object named source.
func Dependents(triggers []Trigger, k *property.Key, source string) []Setter {
	var out []Setter
	for _, tr := range triggers {
		for _, c := range tr.Conditions {
			if c.Property == k && c.SourceName == source {
				out = append(out, tr.Setters...)
				break
			}
		}
	}
	return out
}
