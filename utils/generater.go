package utils

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// GenerateNumber builds a human-facing reference such as APT-20261015-3F9A1C2B.
func GenerateNumber(prefix string, now time.Time) string {
	token := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("%s-%s-%s", prefix, now.UTC().Format("20060102"), token)
}
