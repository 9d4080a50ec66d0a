package util

import (
	"sort"
	"strconv"
	"strings"
)

// interfaceAlias pairs an IOS abbreviation with its full type name.
type interfaceAlias struct {
	short string
	long  string
}

// interfaceAliases is the short/long mapping table. Expansion walks it in
// this order after the long-form guard has run.
var interfaceAliases = []interfaceAlias{
	{"Eth", "Ethernet"},
	{"Gi", "GigabitEthernet"},
	{"Fa", "FastEthernet"},
	{"Te", "TenGigabitEthernet"},
	{"Vl", "Vlan"},
}

// longFormsSorted holds the long type names sorted longest-first so that
// TenGigabitEthernet is considered before GigabitEthernet and Ethernet.
var longFormsSorted []interfaceAlias

func init() {
	longFormsSorted = append([]interfaceAlias(nil), interfaceAliases...)
	sort.SliceStable(longFormsSorted, func(i, j int) bool {
		return len(longFormsSorted[i].long) > len(longFormsSorted[j].long)
	})
}

// hasTypePrefix reports whether name starts with prefix (case-insensitive)
// immediately followed by a digit, and returns the remaining suffix.
func hasTypePrefix(name, prefix string) (string, bool) {
	if len(name) <= len(prefix) || !strings.EqualFold(name[:len(prefix)], prefix) {
		return "", false
	}
	suffix := name[len(prefix):]
	if suffix[0] < '0' || suffix[0] > '9' {
		return "", false
	}
	return suffix, true
}

// ExpandInterface converts an abbreviated interface name to its long form.
// Gi1/0/5 -> GigabitEthernet1/0/5, Vl10 -> Vlan10, Eth1/1 -> Ethernet1/1.
// A name that already carries a long type is returned with canonical casing,
// and unrecognized names are returned unchanged.
func ExpandInterface(name string) string {
	name = strings.TrimSpace(name)

	for _, a := range longFormsSorted {
		if suffix, ok := hasTypePrefix(name, a.long); ok {
			return a.long + suffix
		}
	}
	for _, a := range interfaceAliases {
		if suffix, ok := hasTypePrefix(name, a.short); ok {
			return a.long + suffix
		}
	}
	return name
}

// CollapseInterface converts a long interface name to its abbreviation for
// display. GigabitEthernet1/0/5 -> Gi1/0/5. Unknown names are unchanged.
func CollapseInterface(name string) string {
	name = strings.TrimSpace(name)

	for _, a := range longFormsSorted {
		if suffix, ok := hasTypePrefix(name, a.long); ok {
			return a.short + suffix
		}
	}
	return name
}

// SameInterface reports whether two names refer to the same interface once
// both are expanded.
func SameInterface(a, b string) bool {
	return ExpandInterface(a) == ExpandInterface(b)
}

// CompareInterfaceNames orders interface names naturally: the type name
// alphabetically, then each numeric component by value, so Gi1/0/2 sorts
// before Gi1/0/10.
func CompareInterfaceNames(a, b string) int {
	ta, tb := splitNatural(a), splitNatural(b)
	for i := 0; i < len(ta) && i < len(tb); i++ {
		na, errA := strconv.Atoi(ta[i])
		nb, errB := strconv.Atoi(tb[i])
		switch {
		case errA == nil && errB == nil:
			if na != nb {
				if na < nb {
					return -1
				}
				return 1
			}
		case ta[i] != tb[i]:
			return strings.Compare(ta[i], tb[i])
		}
	}
	switch {
	case len(ta) < len(tb):
		return -1
	case len(ta) > len(tb):
		return 1
	}
	return 0
}

// splitNatural breaks s into alternating digit and non-digit runs.
func splitNatural(s string) []string {
	var parts []string
	start := 0
	for i := 1; i <= len(s); i++ {
		if i == len(s) || isDigit(s[i]) != isDigit(s[start]) {
			parts = append(parts, s[start:i])
			start = i
		}
	}
	return parts
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// SortInterfaceNames sorts names in place using CompareInterfaceNames.
func SortInterfaceNames(names []string) {
	sort.SliceStable(names, func(i, j int) bool {
		return CompareInterfaceNames(names[i], names[j]) < 0
	})
}
