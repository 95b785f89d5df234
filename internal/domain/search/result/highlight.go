package result

import "encoding/json"

// Highlight maps each requested field to its snippets. Fields without snippets
// are present with a nil value and encode as JSON null.
type Highlight map[string][]string

// ExtractHighlight keeps the requested fields of raw and fills in missing ones.
func ExtractHighlight(fields []string, raw map[string][]string) Highlight {
	if len(fields) == 0 {
		return nil
	}
	h := make(Highlight, len(fields))
	for _, f := range fields {
		if snippets, ok := raw[f]; ok && len(snippets) > 0 {
			h[f] = snippets
			continue
		}
		h[f] = nil
	}
	return h
}

// MarshalJSON encodes empty snippet lists as null.
func (h Highlight) MarshalJSON() ([]byte, error) {
	if h == nil {
		return []byte("null"), nil
	}
	out := make(map[string]*[]string, len(h))
	for k, v := range h {
		if len(v) == 0 {
			out[k] = nil
			continue
		}
		out[k] = &v
	}
	return json.Marshal(out)
}

// Hit is a search result node: the item plus its highlight snippets.
type Hit[T any] struct {
	Item      T         `json:"item"`
	Highlight Highlight `json:"highlight"`
	Score     *float64  `json:"score,omitempty"`
}
