package version

import (
	"fmt"
	"strings"
)

// Op identifies a constraint form.
type Op int

const (
	// OpExact matches a single version: "1.2.3".
	OpExact Op = iota
	// OpCompatible is "^1.2.3": >=1.2.3 and <2.0.0.
	OpCompatible
	// OpPatch is "~1.2.3": >=1.2.3 and <1.3.0.
	OpPatch
	// OpGreaterOrEqual is ">=1.2.3".
	OpGreaterOrEqual
	// OpLessThan is "<2.0.0".
	OpLessThan
	// OpAnyPatch is "1.2.x": same major.minor, any patch.
	OpAnyPatch
	// OpRange is ">=X, <Y": half-open interval [X, Y).
	OpRange
	// OpAnyOf is a disjunction: "c1 || c2 || ...".
	OpAnyOf
)

// Constraint is an immutable version predicate. Version is the operand for
// every form except OpRange (Lower/Upper) and OpAnyOf (Any).
type Constraint struct {
	Op      Op
	Version Version
	Lower   Version
	Upper   Version
	Any     []Constraint
}

// InvalidConstraintError reports a constraint string that does not parse.
// It wraps the inner version error when the failure is a bad version.
type InvalidConstraintError struct {
	Input string
	Err   error
}

func (e *InvalidConstraintError) Error() string {
	return fmt.Sprintf("invalid constraint %q: %v", e.Input, e.Err)
}

func (e *InvalidConstraintError) Unwrap() error { return e.Err }

// ParseConstraint parses a single (non-compound) constraint:
// "^v", "~v", ">=v", "<v", "major.minor.x", or an exact version.
func ParseConstraint(s string) (Constraint, error) {
	input := s
	s = strings.TrimSpace(s)

	wrap := func(op Op, rest string) (Constraint, error) {
		v, err := Parse(rest)
		if err != nil {
			return Constraint{}, &InvalidConstraintError{Input: input, Err: err}
		}
		return Constraint{Op: op, Version: v}, nil
	}

	switch {
	case strings.HasPrefix(s, "^"):
		return wrap(OpCompatible, s[1:])
	case strings.HasPrefix(s, "~"):
		return wrap(OpPatch, s[1:])
	case strings.HasPrefix(s, ">="):
		return wrap(OpGreaterOrEqual, s[2:])
	case strings.HasPrefix(s, "<"):
		return wrap(OpLessThan, s[1:])
	case strings.HasSuffix(s, ".x"):
		return wrap(OpAnyPatch, strings.TrimSuffix(s, ".x"))
	default:
		return wrap(OpExact, s)
	}
}

// ParseCompoundConstraint parses the full grammar: " || " separates
// alternatives (OR), and a ", " pair of ">=X" and "<Y" forms a range.
// Anything else falls back to ParseConstraint.
func ParseCompoundConstraint(s string) (Constraint, error) {
	input := s
	s = strings.TrimSpace(s)

	if parts := strings.Split(s, " || "); len(parts) > 1 {
		any := make([]Constraint, 0, len(parts))
		for _, part := range parts {
			c, err := ParseCompoundConstraint(part)
			if err != nil {
				return Constraint{}, err
			}
			any = append(any, c)
		}
		return Constraint{Op: OpAnyOf, Any: any}, nil
	}

	if parts := strings.Split(s, ", "); len(parts) == 2 {
		ge, geOK := strings.CutPrefix(parts[0], ">=")
		lt, ltOK := strings.CutPrefix(parts[1], "<")
		if geOK && ltOK {
			lower, err := Parse(strings.TrimSpace(ge))
			if err != nil {
				return Constraint{}, &InvalidConstraintError{Input: input, Err: err}
			}
			upper, err := Parse(strings.TrimSpace(lt))
			if err != nil {
				return Constraint{}, &InvalidConstraintError{Input: input, Err: err}
			}
			return Constraint{Op: OpRange, Lower: lower, Upper: upper}, nil
		}
	}

	return ParseConstraint(s)
}

// Satisfies reports whether v is accepted by c.
func Satisfies(v Version, c Constraint) bool {
	switch c.Op {
	case OpExact:
		return v.Equal(c.Version)
	case OpCompatible:
		return Compare(v, c.Version) >= 0 &&
			v.Major == c.Version.Major &&
			v.Less(New(c.Version.Major+1, 0, 0))
	case OpPatch:
		return Compare(v, c.Version) >= 0 &&
			v.Major == c.Version.Major && v.Minor == c.Version.Minor &&
			v.Less(New(c.Version.Major, c.Version.Minor+1, 0))
	case OpGreaterOrEqual:
		return Compare(v, c.Version) >= 0
	case OpLessThan:
		return v.Less(c.Version)
	case OpAnyPatch:
		return v.Major == c.Version.Major && v.Minor == c.Version.Minor
	case OpRange:
		return Compare(v, c.Lower) >= 0 && v.Less(c.Upper)
	case OpAnyOf:
		for _, alt := range c.Any {
			if Satisfies(v, alt) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// Satisfies reports whether v is accepted by c.
func (v Version) Satisfies(c Constraint) bool { return Satisfies(v, c) }

// String renders the constraint back in the source grammar, for error
// messages that must quote the user's constraint verbatim.
func (c Constraint) String() string {
	switch c.Op {
	case OpExact:
		return c.Version.String()
	case OpCompatible:
		return "^" + c.Version.String()
	case OpPatch:
		return "~" + c.Version.String()
	case OpGreaterOrEqual:
		return ">=" + c.Version.String()
	case OpLessThan:
		return "<" + c.Version.String()
	case OpAnyPatch:
		return fmt.Sprintf("%d.%d.x", c.Version.Major, c.Version.Minor)
	case OpRange:
		return fmt.Sprintf(">=%s, <%s", c.Lower, c.Upper)
	case OpAnyOf:
		parts := make([]string, len(c.Any))
		for i, alt := range c.Any {
			parts[i] = alt.String()
		}
		return strings.Join(parts, " || ")
	default:
		return "<invalid>"
	}
}

// Compatible reports whether some version could satisfy both constraints.
// The check is a family-by-family table, conservative for open-ended forms:
// a false result is a definite conflict, a true result only means the pair
// was not provably disjoint.
func Compatible(a, b Constraint) bool {
	if a.Op == OpAnyOf {
		for _, alt := range a.Any {
			if Compatible(alt, b) {
				return true
			}
		}
		return false
	}
	if b.Op == OpAnyOf {
		return Compatible(b, a)
	}

	type pair struct{ x, y Op }
	switch (pair{a.Op, b.Op}) {
	case pair{OpExact, OpExact}:
		return a.Version.Equal(b.Version)
	case pair{OpExact, OpCompatible}:
		return exactInCompatible(a.Version, b.Version)
	case pair{OpCompatible, OpExact}:
		return exactInCompatible(b.Version, a.Version)
	case pair{OpExact, OpPatch}:
		return exactInPatch(a.Version, b.Version)
	case pair{OpPatch, OpExact}:
		return exactInPatch(b.Version, a.Version)
	case pair{OpExact, OpRange}:
		return Satisfies(a.Version, b)
	case pair{OpRange, OpExact}:
		return Satisfies(b.Version, a)
	case pair{OpCompatible, OpCompatible}:
		return a.Version.Major == b.Version.Major
	case pair{OpPatch, OpPatch}:
		return a.Version.Major == b.Version.Major && a.Version.Minor == b.Version.Minor
	case pair{OpCompatible, OpPatch}:
		return a.Version.Major == b.Version.Major
	case pair{OpPatch, OpCompatible}:
		return a.Version.Major == b.Version.Major
	case pair{OpAnyPatch, OpAnyPatch}:
		return a.Version.Major == b.Version.Major && a.Version.Minor == b.Version.Minor
	case pair{OpAnyPatch, OpPatch}:
		return a.Version.Major == b.Version.Major && a.Version.Minor == b.Version.Minor
	case pair{OpPatch, OpAnyPatch}:
		return a.Version.Major == b.Version.Major && a.Version.Minor == b.Version.Minor
	case pair{OpRange, OpRange}:
		return a.Lower.Less(b.Upper) && b.Lower.Less(a.Upper)
	}

	// Open-ended forms (>=, <, x-ranges against unrelated families) may
	// overlap; only claim a conflict when we can prove disjointness.
	return true
}

func exactInCompatible(v, base Version) bool {
	return v.Major == base.Major && Compare(v, base) >= 0
}

func exactInPatch(v, base Version) bool {
	return v.Major == base.Major && v.Minor == base.Minor && Compare(v, base) >= 0
}
