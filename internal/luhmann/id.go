package luhmann

import "strings"

// ID is a Luhmann ID: an ordered list of segments. It is derived from a file
// name on demand and never stored. The zero value is the virtual root above
// all depth-1 notes.
type ID struct {
	segments []string
	delim    string
}

// Depth returns the number of segments. Depth 1 is a top-level note.
func (id ID) Depth() int { return len(id.segments) }

// IsZero reports whether id has no segments.
func (id ID) IsZero() bool { return len(id.segments) == 0 }

// Segments returns a copy of the segments.
func (id ID) Segments() []string {
	out := make([]string, len(id.segments))
	copy(out, id.segments)
	return out
}

// Last returns the final segment, or "" for the zero ID.
func (id ID) Last() string {
	if id.IsZero() {
		return ""
	}
	return id.segments[len(id.segments)-1]
}

// Parent drops the last segment. The parent of a depth-1 ID is the zero ID.
func (id ID) Parent() ID {
	if id.Depth() <= 1 {
		return ID{delim: id.delim}
	}
	return ID{segments: id.segments[:len(id.segments)-1], delim: id.delim}
}

// Root keeps only the first segment.
func (id ID) Root() ID {
	if id.IsZero() {
		return id
	}
	return ID{segments: id.segments[:1], delim: id.delim}
}

// Child appends seg.
func (id ID) Child(seg string) ID {
	segs := make([]string, 0, len(id.segments)+1)
	segs = append(segs, id.segments...)
	return ID{segments: append(segs, seg), delim: id.delim}
}

// IsParentOf reports whether other sits exactly one level below id.
func (id ID) IsParentOf(other ID) bool {
	return other.Depth() == id.Depth()+1 && other.Parent().Equal(id)
}

// Equal compares segment by segment.
func (id ID) Equal(other ID) bool {
	if len(id.segments) != len(other.segments) {
		return false
	}
	for i := range id.segments {
		if id.segments[i] != other.segments[i] {
			return false
		}
	}
	return true
}

// String returns the raw delimited form without prefix and postfix, e.g. "1,2,a".
func (id ID) String() string {
	return strings.Join(id.segments, id.delim)
}

// Compare orders IDs by their raw delimited string. The comparison is
// byte-wise, so "1,10" sorts before "1,2".
func Compare(a, b ID) int {
	return strings.Compare(a.String(), b.String())
}
