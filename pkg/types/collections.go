package types

// StringList is an ordered list serialized as a JSON array column.
type StringList []string

// AttributeMap is an open key/value bag (color, size, ...) the cart copies
// from the catalog but never interprets.
type AttributeMap map[string]string

// Clone returns a copy so snapshots do not alias catalog-owned maps.
func (m AttributeMap) Clone() AttributeMap {
	if m == nil {
		return nil
	}
	out := make(AttributeMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Clone returns a copy of the list.
func (l StringList) Clone() StringList {
	if l == nil {
		return nil
	}
	out := make(StringList, len(l))
	copy(out, l)
	return out
}

// Equal reports element-wise equality preserving order.
func (l StringList) Equal(other StringList) bool {
	if len(l) != len(other) {
		return false
	}
	for i := range l {
		if l[i] != other[i] {
			return false
		}
	}
	return true
}
