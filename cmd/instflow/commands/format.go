package commands

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// ═══════════════════════════════════════════════════════════
// Common Formatting Utilities
// 모든 커맨드가 동일한 출력 포맷을 사용하도록 통일
// ═══════════════════════════════════════════════════════════

// RunMetadata holds the banner fields of one command run
type RunMetadata struct {
	RunID     string
	Title     string
	Tag       string
	Market    string
	AsOf      string // optional
	Timestamp string
}

// PrintRunHeader prints a formatted run header
func PrintRunHeader(meta RunMetadata) {
	fmt.Println()
	PrintDoubleSeparator()
	fmt.Printf("  %s\n", meta.Title)
	PrintSeparator()
	if meta.RunID != "" {
		fmt.Printf("  Run ID    : %s\n", meta.RunID)
	}
	fmt.Printf("  Market    : %s\n", meta.Market)

	// Optional as-of date
	if meta.AsOf != "" {
		fmt.Printf("  As of     : %s\n", meta.AsOf)
	}

	PrintSeparator()
	fmt.Printf("[%s] Started at %s\n", meta.Tag, meta.Timestamp)
}

// PrintSeparator prints a visual separator
func PrintSeparator() {
	fmt.Println("───────────────────────────────────────────────────────────")
}

// PrintDoubleSeparator prints a double-line separator
func PrintDoubleSeparator() {
	fmt.Println("═══════════════════════════════════════════════════════════")
}

// PrintWarning prints a warning message
func PrintWarning(message string) {
	fmt.Println()
	fmt.Printf("⚠️  %s\n", message)
	fmt.Println()
}

// PrintSuccess prints a success message
func PrintSuccess(message string) {
	fmt.Printf("✅ %s\n", message)
}

// PrintError prints an error message
func PrintError(message string) {
	fmt.Printf("❌ %s\n", message)
}

// PrintInfo prints an info message
func PrintInfo(message string) {
	fmt.Printf("ℹ️  %s\n", message)
}

// PrintTableHeader prints a table header
func PrintTableHeader(columns []string, widths []int) {
	PrintTableRow(columns, widths)

	// Separator line
	totalWidth := 0
	for i, width := range widths {
		totalWidth += width
		if i < len(widths)-1 {
			totalWidth += 2 // spacing
		}
	}
	fmt.Println(strings.Repeat("─", totalWidth))
}

// PrintTableRow prints a table row.
// 종목명은 한자라 %-*s 대신 rune 기준으로 패딩
func PrintTableRow(values []string, widths []int) {
	for i, val := range values {
		fmt.Print(pad(val, widths[i]))
		if i < len(values)-1 {
			fmt.Print("  ")
		}
	}
	fmt.Println()
}

// PrintList prints a bulleted list
func PrintList(items []string) {
	for _, item := range items {
		fmt.Printf("   • %s\n", item)
	}
}

// PrintKeyValue prints key-value pairs
func PrintKeyValue(key string, value string, keyWidth int) {
	fmt.Printf("   %-*s : %s\n", keyWidth, key, value)
}

func pad(s string, width int) string {
	n := utf8.RuneCountInString(s)
	if n >= width {
		return s
	}
	return s + strings.Repeat(" ", width-n)
}

// formatLots renders a lot count with thousands separators
func formatLots(v int64) string {
	s := strconv.FormatInt(v, 10)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}
