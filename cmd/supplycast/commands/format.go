package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/wonny/supplycast/internal/contracts"
)

// ═══════════════════════════════════════════════════════════
// Common Formatting Utilities
// 모든 커맨드가 동일한 출력 포맷을 사용하도록 통일
// ═══════════════════════════════════════════════════════════

// PrintHeader prints a formatted command header
func PrintHeader(title string) {
	fmt.Println()
	PrintDoubleSeparator()
	fmt.Printf("  %s\n", title)
	PrintSeparator()
	fmt.Printf("  Started   : %s\n", time.Now().Format("2006-01-02 15:04:05"))
	PrintSeparator()
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

	totalWidth := 0
	for i, width := range widths {
		totalWidth += width
		if i < len(widths)-1 {
			totalWidth += 2 // spacing
		}
	}
	fmt.Println(strings.Repeat("─", totalWidth))
}

// PrintTableRow prints a table row
func PrintTableRow(values []string, widths []int) {
	for i, val := range values {
		fmt.Printf("%-*s", widths[i], val)
		if i < len(values)-1 {
			fmt.Print("  ")
		}
	}
	fmt.Println()
}

// PrintKeyValue prints key-value pairs
func PrintKeyValue(key string, value string, keyWidth int) {
	fmt.Printf("   %-*s : %s\n", keyWidth, key, value)
}

// outcomeIcon maps an item outcome to its status glyph
func outcomeIcon(o contracts.Outcome) string {
	switch o {
	case contracts.OutcomeSucceeded:
		return "✅"
	case contracts.OutcomeFailed:
		return "❌"
	default:
		return "⏭️ "
	}
}

// PrintReport prints one stage batch report
func PrintReport(report *contracts.BatchReport) {
	if len(report.Items) == 0 {
		PrintInfo(fmt.Sprintf("%s: 처리할 execute 없음", report.Stage))
		return
	}

	widths := []int{3, 36, 32, 16}
	PrintTableHeader([]string{"", "EXECUTE", "EXECUTION", "KIND"}, widths)
	for _, it := range report.Items {
		PrintTableRow([]string{outcomeIcon(it.Outcome), it.ExecuteID, it.ExecutionName, string(it.Kind)}, widths)
		if it.Detail != "" {
			fmt.Printf("     └ %s\n", it.Detail)
		}
	}
	PrintSeparator()

	summary := report.Summary()
	if report.Count(contracts.OutcomeFailed) > 0 {
		PrintWarning(summary)
	} else {
		PrintSuccess(summary)
	}
}
