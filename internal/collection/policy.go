package collection

import (
	"fmt"
	"strings"

	apperrors "github.com/utafrali/GameStoreGo/pkg/errors"
)

// ClearPolicy selects how Clear treats a failed remote clear in
// authenticated mode.
type ClearPolicy int

const (
	// ClearStrict empties the mirror only after the server confirmed the clear.
	ClearStrict ClearPolicy = iota
	// ClearBestEffort empties the mirror even when the remote clear failed and
	// still returns the failure.
	ClearBestEffort
)

// ParseClearPolicy accepts "strict" or "best_effort".
func ParseClearPolicy(s string) (ClearPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "strict":
		return ClearStrict, nil
	case "best_effort", "best-effort", "besteffort":
		return ClearBestEffort, nil
	default:
		return 0, apperrors.InvalidInput(fmt.Sprintf("unknown clear policy %q", s))
	}
}

func (p ClearPolicy) String() string {
	if p == ClearBestEffort {
		return "best_effort"
	}
	return "strict"
}
