// Package normalize turns raw registry cells into canonical values.
//
// Every function here is total: malformed input degrades to an empty or
// absent value instead of an error.
package normalize

import (
	"fmt"
	"math"
	"reflect"
	"regexp"
	"strconv"
	"strings"
)

var (
	registryDatePattern = regexp.MustCompile(`^(\d{2})\.(\d{2})\.(\d{4})$`)
	roleNamePattern     = regexp.MustCompile(`^\s*([^:]+):\s*(.+?)\s*$`)
)

// RoleName is one judge assignment as written in the registry, e.g.
// "суддя-доповідач: Іваненко О.".
type RoleName struct {
	Role string `json:"role"`
	Name string `json:"name"`
}

// String renders the pair as "role: name", or the bare name when role is empty.
func (rn RoleName) String() string {
	if rn.Role == "" {
		return rn.Name
	}
	return rn.Role + ": " + rn.Name
}

// Scalar returns the trimmed text form of a cell value of unknown type.
// nil, NaN and values without a sensible text form yield "".
func Scalar(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case *string:
		if v == nil {
			return ""
		}
		return strings.TrimSpace(*v)
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return ""
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return Scalar(float64(v))
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case uint:
		return strconv.FormatUint(uint64(v), 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case bool:
		return strconv.FormatBool(v)
	case fmt.Stringer:
		return stringerText(v)
	default:
		return ""
	}
}

// stringerText renders s, treating nil pointers and panicking String methods
// as empty.
func stringerText(s fmt.Stringer) (out string) {
	if rv := reflect.ValueOf(s); rv.Kind() == reflect.Pointer && rv.IsNil() {
		return ""
	}
	defer func() {
		if recover() != nil {
			out = ""
		}
	}()
	return strings.TrimSpace(s.String())
}

// ParseRegistryDate converts a DD.MM.YYYY cell into YYYY-MM-DD. Anything else,
// including the "-" and "—" placeholders, is reported as absent.
func ParseRegistryDate(text string) (string, bool) {
	v := strings.TrimSpace(text)
	v = strings.TrimSpace(strings.Trim(v, `"`))
	if v == "" || v == "-" || v == "—" {
		return "", false
	}
	m := registryDatePattern.FindStringSubmatch(v)
	if m == nil {
		return "", false
	}
	return m[3] + "-" + m[2] + "-" + m[1], true
}

// ParseRoleName splits "role: name". Without a colon the whole text is the
// name and the role is empty. Only empty input is absent.
func ParseRoleName(text string) (RoleName, bool) {
	s := strings.TrimSpace(text)
	if s == "" {
		return RoleName{}, false
	}
	if m := roleNamePattern.FindStringSubmatch(s); m != nil {
		return RoleName{Role: strings.TrimSpace(m[1]), Name: strings.TrimSpace(m[2])}, true
	}
	return RoleName{Name: s}, true
}

// SplitMultiValue splits a ';'-packed cell, dropping blank segments. Order is
// kept; duplicates are not removed.
func SplitMultiValue(text string) []string {
	v := strings.TrimSpace(text)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
