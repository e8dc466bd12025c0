package scheme

// DefaultFunctions returns the function set implied by a point kind.
// Unknown kinds imply no functions.
func DefaultFunctions(k Kind) []Function {
	switch k {
	case KindRestStop:
		return []Function{FunctionRest}
	case KindSupportPoint:
		return []Function{FunctionRest, FunctionSupport}
	case KindDriverChange:
		return []Function{FunctionRest, FunctionDriverChange}
	case KindBoarding:
		return []Function{FunctionBoarding}
	case KindDropoff:
		return []Function{FunctionDropoff}
	case KindFreeStop:
		return []Function{FunctionFreeStop}
	default:
		return []Function{}
	}
}

// NormalizeFunctions dedupes a function set into canonical order, dropping
// values outside the closed set.
func NormalizeFunctions(functions []Function) []Function {
	seen := make(map[Function]bool, len(functions))
	for _, f := range functions {
		seen[f] = true
	}
	out := make([]Function, 0, len(seen))
	for _, f := range canonicalFunctions {
		if seen[f] {
			out = append(out, f)
		}
	}
	return out
}

// Normalize returns p with a normalized function set: a non-empty set is
// deduped and kept, an empty one is derived from the kind.
func Normalize(p RoutePoint) RoutePoint {
	out := p.clone()
	functions := NormalizeFunctions(p.Functions)
	if len(functions) == 0 {
		functions = DefaultFunctions(p.Kind)
	}
	out.Functions = functions
	return out
}

func sameFunctions(a, b []Function) bool {
	a, b = NormalizeFunctions(a), NormalizeFunctions(b)
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
