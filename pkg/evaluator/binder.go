package evaluator

// Binding is one named parameter of an activation.
type Binding struct {
	Name  string
	Value Value
}

// BindParams pairs params with args by position. Parameters without a
// matching argument are bound to undefined; surplus arguments get no name.
// When a name repeats, the later position wins and the binding stays at the
// position of its first occurrence.
func BindParams(params []string, args []Value) []Binding {
	bindings := make([]Binding, 0, len(params))
	seen := make(map[string]int, len(params))
	for i, name := range params {
		var val Value = Undefined{}
		if i < len(args) {
			val = args[i]
		}
		if at, ok := seen[name]; ok {
			bindings[at].Value = val
			continue
		}
		seen[name] = len(bindings)
		bindings = append(bindings, Binding{Name: name, Value: val})
	}
	return bindings
}
