package ctypes

const pointerSize = 8

// SizeOf returns the size in bytes of t. Runtime-sized arrays and function
// types report -1.
func SizeOf(t Type) int64 {
	switch t := t.(type) {
	case Tvoid:
		return 1
	case Tscalar:
		return kinds[t.Kind].size
	case Tpointer:
		return pointerSize
	case Tarray:
		if !t.Dim.IsConst() {
			return -1
		}
		elem := SizeOf(t.Elem)
		if elem < 0 {
			return -1
		}
		return elem * t.Dim.Size
	case Tstruct:
		var off, maxAlign int64 = 0, 1
		for _, f := range t.Fields {
			a := AlignOf(f.Type)
			off = alignUp(off, a)
			off += SizeOf(f.Type)
			if a > maxAlign {
				maxAlign = a
			}
		}
		return alignUp(off, maxAlign)
	}
	return -1
}

// AlignOf returns the alignment in bytes of t.
func AlignOf(t Type) int64 {
	switch t := t.(type) {
	case Tscalar:
		return kinds[t.Kind].size
	case Tpointer:
		return pointerSize
	case Tarray:
		return AlignOf(t.Elem)
	case Tstruct:
		var a int64 = 1
		for _, f := range t.Fields {
			if fa := AlignOf(f.Type); fa > a {
				a = fa
			}
		}
		return a
	}
	return 1
}

func alignUp(n, a int64) int64 {
	return (n + a - 1) / a * a
}

// BuildTypeFromDimensions nests elem inside one array level per dimension.
// Dimensions are given in source order, outermost first, so the outermost
// dimension ends up as the outermost Tarray and indexing peels from the
// outside in.
func BuildTypeFromDimensions(elem Type, dims []Dim) Type {
	t := elem
	for i := len(dims) - 1; i >= 0; i-- {
		t = Tarray{Elem: t, Dim: dims[i]}
	}
	return t
}

// Dimensions returns the array dimensions of t, outermost first, and the
// innermost non-array element type.
func Dimensions(t Type) ([]Dim, Type) {
	var dims []Dim
	for {
		a, ok := t.(Tarray)
		if !ok {
			return dims, t
		}
		dims = append(dims, a.Dim)
		t = a.Elem
	}
}

// Decay converts an array to a pointer to its element; other types are
// returned unchanged.
func Decay(t Type) Type {
	if a, ok := t.(Tarray); ok {
		return Tpointer{Elem: a.Elem}
	}
	return t
}

// IsRuntimeSized reports whether any array level of t has a dimension only
// known at run time.
func IsRuntimeSized(t Type) bool {
	dims, _ := Dimensions(t)
	for _, d := range dims {
		if !d.IsConst() {
			return true
		}
	}
	return false
}
