package logging

import (
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
)

const (
	Error   = 40
	Warning = 30
	Info    = 20
	Debug   = 10
)

var (
	level   = Info
	levelMu sync.RWMutex
)

func init() {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		SetLevel(ParseLevel(v))
	}
	local := os.Getenv("LOCAL")
	if strings.EqualFold(local, "true") || local == "1" {
		SetLevel(Debug)
	}
}

// ParseLevel maps debug/info/warn/error to a level, defaulting to Info.
func ParseLevel(s string) int {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return Debug
	case "warn", "warning":
		return Warning
	case "error":
		return Error
	default:
		return Info
	}
}

func SetLevel(l int) {
	levelMu.Lock()
	defer levelMu.Unlock()
	level = l
}

func enabled(l int) bool {
	levelMu.RLock()
	defer levelMu.RUnlock()
	return level <= l
}

func Debugf(format string, v ...any) {
	if enabled(Debug) {
		log.Printf("[DEBUG] "+format, v...)
	}
}

func Infof(format string, v ...any) {
	if enabled(Info) {
		log.Printf("[INFO] "+format, v...)
	}
}

func Warnf(format string, v ...any) {
	if enabled(Warning) {
		log.Printf("[WARN] "+format, v...)
	}
}

func Errorf(format string, v ...any) {
	if enabled(Error) {
		log.Printf("[ERROR] "+format, v...)
	}
}

func Fatalf(format string, v ...any) {
	log.Fatalf("[FATAL] "+format, v...)
}

// Sanitize escapes control characters so untrusted text (prompts, upstream
// bodies) cannot forge log lines. Long values are cut at 256 runes.
func Sanitize(s string) string {
	const max = 256
	var b strings.Builder
	b.Grow(len(s))

	n := 0
	for _, r := range s {
		if n == max {
			b.WriteString("...")
			break
		}
		n++
		switch r {
		case '\n':
			b.WriteString("\\n")
		case '\r':
			b.WriteString("\\r")
		case '\t':
			b.WriteString("\\t")
		default:
			if r < 32 || r == 127 {
				b.WriteString(fmt.Sprintf("\\x%02x", r))
			} else {
				b.WriteRune(r)
			}
		}
	}
	return b.String()
}
