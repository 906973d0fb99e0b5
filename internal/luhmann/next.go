package luhmann

import (
	"strconv"
	"strings"
)

// NextChild allocates the next free child of parent given the IDs that
// already exist. Segments at depth 1 and 2 and every even depth are numbers
// ("1", "1,1", "1,1,a,1"); odd depths from 3 on are letters ("1,1,a").
// Numbering continues past the largest existing sibling.
func (g *Grammar) NextChild(parent ID, existing []ID) ID {
	depth := parent.Depth() + 1
	alpha := depth >= 3 && depth%2 == 1

	var last string
	for _, id := range existing {
		if !parent.IsParentOf(id) {
			continue
		}
		seg := id.Last()
		if (alpha && !isLetters(seg)) || (!alpha && !isDigits(seg)) {
			continue
		}
		if last == "" || segmentLess(last, seg) {
			last = seg
		}
	}

	if alpha {
		return parent.Child(nextLetters(last))
	}
	n, _ := strconv.Atoi(last)
	return parent.Child(strconv.Itoa(n + 1))
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func isLetters(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			return false
		}
	}
	return true
}

// segmentLess orders segments by length first so "10" > "9" and "aa" > "z".
func segmentLess(a, b string) bool {
	if len(a) != len(b) {
		return len(a) < len(b)
	}
	return strings.ToLower(a) < strings.ToLower(b)
}

// nextLetters counts a, b, ..., z, aa, ab, ...
func nextLetters(s string) string {
	if s == "" {
		return "a"
	}
	b := []byte(strings.ToLower(s))
	for i := len(b) - 1; i >= 0; i-- {
		if b[i] < 'z' {
			b[i]++
			return string(b)
		}
		b[i] = 'a'
	}
	return "a" + string(b)
}
