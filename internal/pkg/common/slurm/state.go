// Package slurm holds SLURM vocabulary shared across modules.
package slurm

// stateNames maps the compact state codes squeue %t emits to the canonical
// state names scontrol uses. Codes follow slurm's job_state_string_compact
// table.
var stateNames = map[string]string{
	"PD":  "PENDING",
	"R":   "RUNNING",
	"S":   "SUSPENDED",
	"CD":  "COMPLETED",
	"CA":  "CANCELLED",
	"F":   "FAILED",
	"TO":  "TIMEOUT",
	"NF":  "NODE_FAIL",
	"PR":  "PREEMPTED",
	"BF":  "BOOT_FAIL",
	"DL":  "DEADLINE",
	"OOM": "OUT_OF_MEMORY",
	"CG":  "COMPLETING",
	"CF":  "CONFIGURING",
	"SO":  "STAGE_OUT",
	"ST":  "STOPPED",
	"RV":  "REVOKED",
	"SI":  "SIGNALING",
	"RD":  "RESV_DEL_HOLD",
	"RH":  "REQUEUE_HOLD",
	"RQ":  "REQUEUED",
	"RS":  "RESIZING",
	"SE":  "SPECIAL_EXIT",
}

// StateName expands a compact state code. Unknown codes pass through
// unchanged so new slurm versions degrade to showing the raw code.
func StateName(code string) string {
	if name, ok := stateNames[code]; ok {
		return name
	}
	return code
}

// IsActive reports whether a job in this state still holds or awaits
// resources.
func IsActive(code string) bool {
	switch code {
	case "R", "PD", "S", "CG", "CF":
		return true
	}
	return false
}
