// SPDX-License-Identifier: MPL-2.0

package manifest

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// ParseHCL flattens the top-level attributes of a module.hcl document into a
// Map. Attribute names may not contain hyphens in HCL, so underscores are
// accepted in their place ("display_name" reads as "display-name").
// Expressions are evaluated without variables or functions.
func ParseHCL(data []byte, filename string) (Map, error) {
	file, diags := hclparse.NewParser().ParseHCL(data, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL: %w", diags)
	}

	attrs, diags := file.Body.JustAttributes()
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to read HCL attributes: %w", diags)
	}

	m := Map{}
	for name, attr := range attrs {
		value, diags := attr.Expr.Value(nil)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to evaluate %q: %w", name, diags)
		}
		v, err := ctyScalarOrList(value, attr.Range)
		if err != nil {
			return nil, err
		}
		if v != nil {
			m[hclKey(name)] = v
		}
	}
	return m, nil
}

var hclKeyAliases = map[string]string{
	"display_name":          "display-name",
	"optional_dependencies": "optional-dependencies",
}

func hclKey(name string) string {
	if alias, ok := hclKeyAliases[name]; ok {
		return alias
	}
	return name
}

func ctyScalarOrList(v cty.Value, rng hcl.Range) (any, error) {
	if v.IsNull() || !v.IsKnown() {
		return nil, nil
	}

	ty := v.Type()
	if ty.IsListType() || ty.IsTupleType() || ty.IsSetType() {
		items := []string{}
		for it := v.ElementIterator(); it.Next(); {
			_, elem := it.Element()
			s, err := convert.Convert(elem, cty.String)
			if err != nil || s.IsNull() {
				return nil, fmt.Errorf("%s: list items must be strings", rng)
			}
			items = append(items, s.AsString())
		}
		return items, nil
	}

	s, err := convert.Convert(v, cty.String)
	if err != nil {
		return nil, fmt.Errorf("%s: unsupported value of type %s", rng, ty.FriendlyName())
	}
	return s.AsString(), nil
}
