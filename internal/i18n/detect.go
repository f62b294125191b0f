package i18n

import (
	"os"
	"strings"
)

// EnvLocale returns the language tag of the terminal (LC_ALL, LC_MESSAGES,
// then LANG), e.g. "ca-ES" for "ca_ES.UTF-8". It returns "" for the C/POSIX
// locale or when nothing is set.
func EnvLocale() string {
	return localeFrom(os.Getenv)
}

func localeFrom(getenv func(string) string) string {
	for _, name := range []string{"LC_ALL", "LC_MESSAGES", "LANG"} {
		v := getenv(name)
		if v == "" {
			continue
		}
		if i := strings.IndexAny(v, ".@"); i >= 0 {
			v = v[:i]
		}
		if v == "" || v == "C" || v == "POSIX" {
			return ""
		}
		return strings.ReplaceAll(v, "_", "-")
	}
	return ""
}
