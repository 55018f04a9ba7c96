package cow

// smallStringLimit is the inline/SSO threshold of §4.9 and the boundary
// behavior tested in §8: strings of length <= 23 fit inline; length 24
// allocates a buffer.
const smallStringLimit = 23

// COWString is a small-string-optimized, copy-on-write string. Short
// strings are stored inline (no *Wrapper allocation at all); longer
// strings share a ref-counted buffer through a *Wrapper[string].
type COWString struct {
	inline    string
	isInline  bool
	shared    *Wrapper[string]
}

func NewCOWString(s string) COWString {
	if len(s) <= smallStringLimit {
		return COWString{inline: s, isInline: true}
	}
	return COWString{shared: NewWrapper(s, func(s string) string { return s })}
}

func (s COWString) Len() int {
	if s.isInline {
		return len(s.inline)
	}
	return len(s.shared.GetRead())
}

func (s COWString) String() string {
	if s.isInline {
		return s.inline
	}
	return s.shared.GetRead()
}

// IsShared reports whether the backing buffer currently has more than one
// owner (inline strings are never shared — each copy is independent).
func (s COWString) IsShared() bool {
	if s.isInline {
		return false
	}
	return s.shared.Refcount() > 1
}

// AssignString implements `t := s`: for inline strings this is a plain Go
// value copy (already independent); for heap-backed strings it retains the
// shared buffer so both COWString values observe the same bytes until one
// of them mutates.
func AssignString(s COWString) COWString {
	if s.isInline {
		return s
	}
	s.shared.Retain()
	return s
}

// SetByteAt implements the COW write path for index-assignment (`t[0] :=
// 'x'`): inline strings mutate their own copy directly (never shared);
// heap-backed strings detach into a fresh, privately-owned buffer first if
// shared, so prior sharers (still pointing at the original Wrapper) are
// left untouched (§8 "COW string share" scenario).
func (s *COWString) SetByteAt(i int, b byte) {
	if s.isInline {
		buf := []byte(s.inline)
		buf[i] = b
		s.inline = string(buf)
		return
	}
	owned := s.shared.GetWrite()
	if owned != s.shared {
		s.shared.Release()
	}
	s.shared = owned
	buf := []byte(s.shared.GetRead())
	buf[i] = b
	s.shared.SetData(string(buf))
}
