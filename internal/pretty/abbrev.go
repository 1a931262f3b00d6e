package pretty

import "fmt"

// Abbrev shortens s for log output. With no ranges it cuts to 12 characters;
// one value sets both the threshold and the cut, two values set them
// separately.
func Abbrev(s string, ranges ...int) Abbreviated {
	maxLen := 12
	cutTo := 12
	if len(ranges) >= 2 {
		maxLen, cutTo = ranges[0], ranges[1]
	} else if len(ranges) == 1 {
		maxLen, cutTo = ranges[0], ranges[0]
	}
	return Abbreviated{
		Original: s,
		MaxLen:   maxLen,
		CutTo:    cutTo,
	}
}

type Abbreviated struct {
	Original string
	MaxLen   int
	CutTo    int
}

func (s Abbreviated) String() string {
	if len(s.Original) > s.MaxLen {
		return fmt.Sprintf("%s…", s.Original[:s.CutTo])
	}
	return s.Original
}
