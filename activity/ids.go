// Package activity assigns and renumbers activity display codes.
//
// Two mechanisms touch activity IDs. Reindex assigns dense codes per report
// after every structural change, and RippleShift frees a code across the whole
// history when a typed code collides. A code placed by RippleShift is
// overwritten by the next Reindex of that report; callers that need both
// should expect the local pass to win.
package activity

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"sitediary/models"
)

// Prefix is the prefix of generated activity codes.
const Prefix = "ACT-"

// Width is the zero-padded width of generated activity numbers.
const Width = 5

var idPattern = regexp.MustCompile(`^([A-Za-z]+)([-_ ]?)(\d+)$`)

// FormatID renders n as a display code, e.g. 7 -> ACT-00007.
func FormatID(n int) string {
	return fmt.Sprintf("%s%0*d", Prefix, Width, n)
}

// Code is a parsed activity display code.
type Code struct {
	Letters   string // alphabetic prefix, upper-cased
	Separator string
	Number    int
	Digits    int // width of the numeric part as typed
}

// ParseID splits a display code into its alphabetic prefix and number.
func ParseID(s string) (Code, bool) {
	m := idPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return Code{}, false
	}
	n, err := strconv.Atoi(m[3])
	if err != nil {
		return Code{}, false
	}
	return Code{Letters: strings.ToUpper(m[1]), Separator: m[2], Number: n, Digits: len(m[3])}, true
}

// String renders the code keeping its prefix, separator and digit width.
func (c Code) String() string {
	return fmt.Sprintf("%s%s%0*d", c.Letters, c.Separator, c.Digits, c.Number)
}

// SamePrefix reports whether two codes share the alphabetic prefix.
func (c Code) SamePrefix(o Code) bool {
	return c.Letters == o.Letters
}

// Reindex assigns order = index+1 and the matching display code to every activity, in list order.
func Reindex(list []models.ActivityEntry) {
	for i := range list {
		list[i].Order = i + 1
		list[i].ActivityID = FormatID(i + 1)
	}
}

// NextID returns the code one past the highest ACT- number found in the reports.
func NextID(reports []models.DailyReport) string {
	max := 0
	for _, r := range reports {
		max = highest(r.Activities, max)
	}
	return FormatID(max + 1)
}

// AssignMissingIDs gives every activity in list without a display code the next
// free ACT- code, counting up from the highest number in reports and list.
// It returns the number of codes assigned.
func AssignMissingIDs(list []models.ActivityEntry, reports []models.DailyReport) int {
	max := highest(list, 0)
	for _, r := range reports {
		max = highest(r.Activities, max)
	}
	n := 0
	for i := range list {
		if strings.TrimSpace(list[i].ActivityID) != "" {
			continue
		}
		max++
		list[i].ActivityID = FormatID(max)
		n++
	}
	return n
}

// MissingIDs reports whether any activity in list has no display code.
func MissingIDs(list []models.ActivityEntry) bool {
	for i := range list {
		if strings.TrimSpace(list[i].ActivityID) == "" {
			return true
		}
	}
	return false
}

func highest(list []models.ActivityEntry, max int) int {
	for _, a := range list {
		c, ok := ParseID(a.ActivityID)
		if ok && c.Letters+c.Separator == Prefix && c.Number > max {
			max = c.Number
		}
	}
	return max
}
