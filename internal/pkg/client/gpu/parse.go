package gpu

import (
	"sort"
	"strconv"
	"strings"
)

// sreport field positions for "-n -P cluster AccountUtilizationByUser"
// output: Cluster|Account|Login|Proper Name|TRES Name|Used.
const (
	hoursFieldCluster = iota
	hoursFieldAccount
	hoursFieldUser
	hoursFieldProperName
	hoursFieldTRES
	hoursFieldUsed
	hoursFieldCount
)

// DefaultHoursLimit caps the leaderboard when the caller does not say.
const DefaultHoursLimit = 20

// excludedAccounts are system/root-like logins that show up in accounting
// output but are not real users.
var excludedAccounts = map[string]struct{}{
	"root": {},
	"thn":  {},
	"cs":   {},
}

// ParseGPUHours turns raw sreport output into a leaderboard sorted by hours
// descending and truncated to limit. Rows with too few fields, excluded or
// empty users, and non-positive or non-numeric hour values are dropped.
func ParseGPUHours(raw string, limit int) []GPUHoursEntry {
	entries := make([]GPUHoursEntry, 0)
	for _, line := range strings.Split(strings.TrimSpace(raw), "\n") {
		if line == "" {
			continue
		}
		fields := strings.Split(line, "|")
		if len(fields) < hoursFieldCount {
			continue
		}

		user := fields[hoursFieldUser]
		if user == "" {
			continue
		}
		if _, excluded := excludedAccounts[user]; excluded {
			continue
		}

		hours, err := strconv.ParseFloat(fields[hoursFieldUsed], 64)
		if err != nil || hours <= 0 {
			continue
		}

		entries = append(entries, GPUHoursEntry{
			User:    user,
			Account: fields[hoursFieldAccount],
			Cluster: fields[hoursFieldCluster],
			Hours:   hours,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Hours > entries[j].Hours
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries
}
