package validate

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ppiankov/skillgate/internal/capability"
	"github.com/ppiankov/skillgate/internal/model"
	"github.com/ppiankov/skillgate/internal/pattern"
)

// InternalError marks a capability schema problem discovered at request
// time. The message shown to callers is deliberately generic; Detail is
// for the audit trail only.
type InternalError struct {
	Detail string
}

func (e *InternalError) Error() string {
	return "validate: internal capability schema error"
}

// Result is the outcome of validating one request against the active
// capability set. OK=false is a user-shaped denial, never an error.
type Result struct {
	OK      bool
	Reason  string
	Verdict model.MatchResult
	Grant   capability.ToolGrant
}

// Validator checks tool calls against the active capability set and runs
// every string argument through the pattern matcher.
type Validator struct {
	store   *capability.Store
	matcher *pattern.Matcher
}

// New returns a validator backed by the given capability store.
func New(store *capability.Store, matcher *pattern.Matcher) *Validator {
	return &Validator{store: store, matcher: matcher}
}

// Validate checks the request's tool grant, argument schema, and path
// arguments. The returned Verdict is the merged pattern verdict across all
// string arguments; gating on it is the caller's job.
func (v *Validator) Validate(req model.ActionRequest) (Result, error) {
	grant, ok := v.store.Config().Grant(req.Origin.Caller, req.Tool)
	if !ok {
		return Result{
			Reason:  fmt.Sprintf("caller %q has no grant for tool %q", req.Origin.Caller, req.Tool),
			Verdict: model.SafeResult(),
		}, nil
	}

	res := Result{OK: true, Verdict: model.SafeResult(), Grant: grant}

	// Required args present
	for _, name := range sortedParamNames(grant.Params) {
		if !grant.Params[name].Required {
			continue
		}
		if _, present := req.Arguments[name]; !present {
			return deny(grant, fmt.Sprintf("missing required argument %q", name)), nil
		}
	}

	// Declared schema: every supplied arg must be known, typed, and allowed
	for _, name := range sortedArgNames(req.Arguments) {
		value := req.Arguments[name]
		spec, known := grant.Params[name]
		if !known {
			if len(grant.Params) > 0 {
				return deny(grant, fmt.Sprintf("unexpected argument %q", name)), nil
			}
			// Tool declares no schema: still pattern-check strings below.
		} else {
			ok, err := typeMatches(value, spec.Type)
			if err != nil {
				return Result{}, err
			}
			if !ok {
				return deny(grant, fmt.Sprintf("argument %q has wrong type, expected %s", name, spec.Type)), nil
			}
			if len(spec.Allowed) > 0 && !valueAllowed(value, spec.Allowed) {
				return deny(grant, fmt.Sprintf("argument %q value is not in the allowed set", name)), nil
			}
		}

		s, isString := value.(string)
		if !isString {
			continue
		}

		res.Verdict = res.Verdict.Merge(v.matcher.Match(s))

		if pathShaped(name, s) {
			if len(grant.PathPrefixes) == 0 {
				return deny(grant, fmt.Sprintf("argument %q is a path but the tool grants no path prefixes", name)), nil
			}
			if !pathAllowed(s, grant.PathPrefixes) {
				return deny(grant, fmt.Sprintf("argument %q escapes the allowed path prefixes", name)), nil
			}
		}
	}

	return res, nil
}

func deny(grant capability.ToolGrant, reason string) Result {
	return Result{Reason: reason, Verdict: model.SafeResult(), Grant: grant}
}

// typeMatches reports whether a decoded JSON/YAML value satisfies the
// declared param type. JSON decodes all numbers as float64, so "int"
// accepts an integral float64.
func typeMatches(v any, typ string) (bool, error) {
	switch typ {
	case "", "string":
		_, ok := v.(string)
		return ok, nil
	case "int":
		switch n := v.(type) {
		case int:
			return true, nil
		case int64:
			return true, nil
		case float64:
			return n == float64(int64(n)), nil
		}
		return false, nil
	case "number":
		switch v.(type) {
		case int, int64, float64:
			return true, nil
		}
		return false, nil
	case "bool":
		_, ok := v.(bool)
		return ok, nil
	default:
		return false, &InternalError{Detail: fmt.Sprintf("unknown param type %q", typ)}
	}
}

func valueAllowed(v any, allowed []string) bool {
	s := fmt.Sprintf("%v", v)
	for _, a := range allowed {
		if s == a {
			return true
		}
	}
	return false
}

// pathShaped reports whether an argument should be subject to path prefix
// checks: named like a path, or carrying path syntax in its value.
func pathShaped(name, value string) bool {
	lower := strings.ToLower(name)
	if lower == "path" || lower == "file" || lower == "dir" ||
		strings.HasSuffix(lower, "_path") || strings.HasSuffix(lower, "_file") || strings.HasSuffix(lower, "_dir") {
		return true
	}
	return strings.HasPrefix(value, "/") || strings.Contains(value, "../")
}

// pathAllowed cleans the candidate first so "/workspace/../etc/passwd"
// cannot slip past a "/workspace" prefix.
func pathAllowed(candidate string, prefixes []string) bool {
	clean := filepath.Clean(candidate)
	if !filepath.IsAbs(clean) {
		return false
	}
	for _, p := range prefixes {
		pp := filepath.Clean(p)
		if clean == pp || strings.HasPrefix(clean, pp+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

func sortedParamNames(params map[string]capability.ParamSpec) []string {
	names := make([]string, 0, len(params))
	for n := range params {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func sortedArgNames(args map[string]any) []string {
	names := make([]string, 0, len(args))
	for n := range args {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
