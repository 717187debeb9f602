package i18n

import (
	"time"

	"github.com/longkey1/finanzas/internal/finanzas"
)

// FormatTime renders t as a two-digit 12-hour clock in the language's style.
func FormatTime(lang finanzas.Language, t time.Time) string {
	if lang != finanzas.Hindi {
		return t.Format("03:04 pm")
	}
	suffix := "पूर्वाह्न"
	if t.Hour() >= 12 {
		suffix = "अपराह्न"
	}
	return t.Format("03:04") + " " + suffix
}
