package caption

import (
	"fmt"
	"strings"

	"github.com/hupe1980/artlens/model"
)

// Role is the grammatical role of a dimension's clause.
type Role int

const (
	// RoleModifier clauses follow the head.
	RoleModifier Role = iota
	// RoleSubject clauses can form the head of the sentence.
	RoleSubject
)

func (r Role) String() string {
	switch r {
	case RoleModifier:
		return "modifier"
	case RoleSubject:
		return "subject"
	default:
		return fmt.Sprintf("unknown(%d)", int(r))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (r Role) MarshalText() ([]byte, error) {
	if r != RoleModifier && r != RoleSubject {
		return nil, fmt.Errorf("unknown role: %d", int(r))
	}
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Role) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "modifier", "":
		*r = RoleModifier
	case "subject":
		*r = RoleSubject
	default:
		return fmt.Errorf("unknown role %q", text)
	}
	return nil
}

// Template describes how a dimension reads in a caption.
//
// Pattern placeholders:
//
//	{label}      the qualifying labels, joined "x, y and z"
//	{a}          "a" or "an", matching the first label
//	{dimension}  the dimension name
type Template struct {
	Role    Role   `json:"role" yaml:"role"`
	Pattern string `json:"pattern" yaml:"pattern"`
}

const (
	// DefaultHead is the head used when no subject clause qualifies.
	DefaultHead = "an artwork"
	// DefaultFallback is returned when nothing qualifies.
	DefaultFallback = "An unclassified artwork."
	// DefaultMinScoreThreshold is the default label score cut-off.
	DefaultMinScoreThreshold = 0.15

	unknownDimensionPattern = "with {label} {dimension}"
)

// DefaultTemplates returns the built-in templates for the known dimensions.
func DefaultTemplates() map[string]Template {
	return map[string]Template{
		model.DimensionGenre: {Role: RoleSubject, Pattern: "{a} {label} painting"},
		model.DimensionTopic: {Role: RoleModifier, Pattern: "depicting {label}"},
		model.DimensionMedia: {Role: RoleModifier, Pattern: "rendered in {label}"},
		model.DimensionStyle: {Role: RoleModifier, Pattern: "in {label} style"},
		model.DimensionColor: {Role: RoleModifier, Pattern: "with {label} tones"},
	}
}

var builtinTemplates = DefaultTemplates()

// Policy controls caption rendering.
type Policy struct {
	// MinScoreThreshold is the minimum score, inclusive, for a label to
	// qualify.
	MinScoreThreshold float64 `json:"min_score_threshold" yaml:"min_score_threshold"`
	// MaxLabelsPerDimension caps the labels rendered per clause.
	MaxLabelsPerDimension int `json:"max_labels_per_dimension" yaml:"max_labels_per_dimension"`
	// DimensionOrder lists the rendered dimensions in clause order.
	// Dimensions not listed are never rendered.
	DimensionOrder []string `json:"dimension_order" yaml:"dimension_order"`
	// Templates overrides the built-in templates per dimension.
	Templates map[string]Template `json:"templates,omitempty" yaml:"templates,omitempty"`
	// Fallback is the text used when nothing qualifies.
	Fallback string `json:"fallback" yaml:"fallback"`
}

// DefaultPolicy returns the default caption policy.
func DefaultPolicy() Policy {
	return Policy{
		MinScoreThreshold:     DefaultMinScoreThreshold,
		MaxLabelsPerDimension: 1,
		DimensionOrder: []string{
			model.DimensionGenre,
			model.DimensionTopic,
			model.DimensionMedia,
			model.DimensionStyle,
		},
		Templates: DefaultTemplates(),
		Fallback:  DefaultFallback,
	}
}

// Validate checks the policy.
func (p Policy) Validate() error {
	if p.MinScoreThreshold < 0 || p.MinScoreThreshold > 1 {
		return model.NewConfigurationError("min_score_threshold", "must be in [0, 1], got %g", p.MinScoreThreshold)
	}
	if p.MaxLabelsPerDimension < 1 {
		return model.NewConfigurationError("max_labels_per_dimension", "must be positive, got %d", p.MaxLabelsPerDimension)
	}
	if len(p.DimensionOrder) == 0 {
		return model.NewConfigurationError("dimension_order", "must not be empty")
	}
	seen := make(map[string]bool, len(p.DimensionOrder))
	for _, d := range p.DimensionOrder {
		name := model.NormalizeDimension(d)
		if name == "" {
			return model.NewConfigurationError("dimension_order", "empty dimension name")
		}
		if seen[name] {
			return model.NewConfigurationError("dimension_order", "duplicate dimension %q", name)
		}
		seen[name] = true
	}
	templates := make(map[string]bool, len(p.Templates))
	for d, tmpl := range p.Templates {
		name := model.NormalizeDimension(d)
		if name == "" {
			return model.NewConfigurationError("templates", "empty dimension name")
		}
		if templates[name] {
			return model.NewConfigurationError("templates", "duplicate template for %q", name)
		}
		templates[name] = true
		if !strings.Contains(tmpl.Pattern, "{label}") {
			return model.NewConfigurationError("templates", "template for %q has no {label} placeholder", d)
		}
		if tmpl.Role != RoleModifier && tmpl.Role != RoleSubject {
			return model.NewConfigurationError("templates", "template for %q has unknown role %d", d, int(tmpl.Role))
		}
	}
	if strings.TrimSpace(p.Fallback) == "" {
		return model.NewConfigurationError("fallback", "must not be empty")
	}
	return nil
}

// normalized returns a deep copy of p with dimension names in the canonical
// form used by model.Attributes.
func (p Policy) normalized() Policy {
	out := p
	out.DimensionOrder = make([]string, len(p.DimensionOrder))
	for i, d := range p.DimensionOrder {
		out.DimensionOrder[i] = model.NormalizeDimension(d)
	}
	if p.Templates != nil {
		out.Templates = make(map[string]Template, len(p.Templates))
		for d, t := range p.Templates {
			out.Templates[model.NormalizeDimension(d)] = t
		}
	}
	return out
}

// template resolves the template for a dimension: the policy's own, then the
// built-in one, then the generic modifier.
func (p Policy) template(dimension string) Template {
	if t, ok := p.Templates[dimension]; ok {
		return t
	}
	if t, ok := builtinTemplates[dimension]; ok {
		return t
	}
	return Template{Role: RoleModifier, Pattern: unknownDimensionPattern}
}
