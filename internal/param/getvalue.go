package param

import "fmt"

// GetValue reconstructs the full value of p as plain Go data using only the
// reflection protocol. It works on a detached copy, so p's cursor is never
// moved and the call can be repeated.
//
// Primitive kinds yield the same shapes as ToHost. A "vector" container
// yields []map[string]any in push order and a "map" container yields
// map[string]map[string]any; nested containers inside records recurse.
func GetValue(p *Parameter) (any, error) {
	if p == nil {
		return nil, fmt.Errorf("get_value: nil parameter")
	}
	return getValue(p.detach())
}

func getValue(p *Parameter) (any, error) {
	switch p.TypeName() {
	case "vector":
		n, err := p.SizeOfContainer()
		if err != nil {
			return nil, err
		}
		out := make([]map[string]any, 0, n)
		for i := 0; i < n; i++ {
			if err := p.RetrieveFromContainer(i); err != nil {
				return nil, err
			}
			rec, err := elementFields(p)
			if err != nil {
				return nil, fmt.Errorf("%s[%d]: %w", p.Name(), i, err)
			}
			out = append(out, rec)
		}
		return out, nil

	case "map":
		keys, err := p.MapKeyList()
		if err != nil {
			return nil, err
		}
		out := make(map[string]map[string]any, len(keys))
		for _, k := range keys {
			if err := p.RetrieveFromMap(k); err != nil {
				return nil, err
			}
			rec, err := elementFields(p)
			if err != nil {
				return nil, fmt.Errorf("%s[%q]: %w", p.Name(), k, err)
			}
			out[k] = rec
		}
		return out, nil

	default:
		return ToHost(p.Value()), nil
	}
}

func elementFields(p *Parameter) (map[string]any, error) {
	n := p.NumValueElements()
	out := make(map[string]any, n)
	for i := 0; i < n; i++ {
		child, err := p.ValueElementInfo(i)
		if err != nil {
			return nil, err
		}
		v, err := getValue(child)
		if err != nil {
			return nil, err
		}
		out[child.Name()] = v
	}
	return out, nil
}
