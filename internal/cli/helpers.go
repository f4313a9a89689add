package cli

import (
	"fmt"

	"github.com/cloudstrap-io/cloudstrap/internal/engine"
	"github.com/cloudstrap-io/cloudstrap/internal/resource"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
)

// confirm prompts and accepts y/yes.
func confirm(prompt string) bool {
	fmt.Print(prompt)
	var response string
	fmt.Scanln(&response)
	return response == "y" || response == "yes"
}

// renderPlannedSteps prints the creation steps that will run under the
// given filters, in dependency order.
func renderPlannedSteps(opts engine.Options) {
	for _, kind := range resource.CreationOrder() {
		if skipped(opts, kind) {
			fmt.Printf("  %s-%s %s (skipped)\n", colorYellow, colorReset, kind)
			continue
		}
		fmt.Printf("  %s+%s %s\n", colorGreen, colorReset, kind)
	}
}

func skipped(opts engine.Options, kind resource.Kind) bool {
	if opts.Only != "" {
		return kind != opts.Only
	}
	for _, s := range opts.Skip {
		if s == kind {
			return true
		}
	}
	return false
}

// renderStatus prints the existence report.
func renderStatus(report []engine.KindStatus) {
	for _, row := range report {
		mark := colorGreen + "present" + colorReset
		if !row.Present {
			mark = colorRed + "absent " + colorReset
		}
		fmt.Printf("  %-16s %s  %s", row.Kind, mark, row.ID)
		if row.Status != "" {
			fmt.Printf("  (%s)", row.Status)
		}
		if row.Address != "" {
			fmt.Printf("  %s", row.Address)
		}
		fmt.Println()
	}
}
