package detector

import (
	"errors"
	"fmt"
	"strings"
)

var ErrUnknownClass = errors.New("model returned an unknown class index")

// DefaultPPEClasses is the class-name table of the construction-site PPE
// weights the service ships with.
var DefaultPPEClasses = []string{
	"Hardhat",
	"Mask",
	"NO-Hardhat",
	"NO-Mask",
	"NO-Safety Vest",
	"Person",
	"Safety Cone",
	"Safety Vest",
	"machinery",
	"vehicle",
}

// ClassTable maps model class indices to labels. It is copied on
// construction and never changes afterwards.
type ClassTable struct {
	names []string
}

func NewClassTable(names []string) ClassTable {
	cp := make([]string, len(names))
	copy(cp, names)
	return ClassTable{names: cp}
}

// ParseClassList builds a table from a comma separated list, trimming
// surrounding whitespace from each entry.
func ParseClassList(list string) ClassTable {
	if strings.TrimSpace(list) == "" {
		return NewClassTable(DefaultPPEClasses)
	}

	parts := strings.Split(list, ",")
	names := make([]string, 0, len(parts))
	for _, p := range parts {
		names = append(names, strings.TrimSpace(p))
	}
	return NewClassTable(names)
}

func (t ClassTable) Label(classID int) (string, error) {
	if classID < 0 || classID >= len(t.names) {
		return "", fmt.Errorf("%w: %d (table has %d classes)", ErrUnknownClass, classID, len(t.names))
	}
	return t.names[classID], nil
}

func (t ClassTable) Len() int {
	return len(t.names)
}

func (t ClassTable) Names() []string {
	cp := make([]string, len(t.names))
	copy(cp, t.names)
	return cp
}
