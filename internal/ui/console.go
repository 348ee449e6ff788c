package ui

import (
	"fmt"
	"io"
	"time"

	"supportscraper/internal/portal"
)

// ConsoleUI prints operator-facing messages that are not log records
type ConsoleUI struct {
	w io.Writer
}

// NewConsoleUI creates a console UI writing to w
func NewConsoleUI(w io.Writer) *ConsoleUI {
	return &ConsoleUI{w: w}
}

// ShowMessage displays a message to the user
func (c *ConsoleUI) ShowMessage(message string) {
	fmt.Fprintln(c.w, message)
}

// ShowLoginInstructions tells the operator to sign in through the opened browser window
func (c *ConsoleUI) ShowLoginInstructions(timeout time.Duration) {
	fmt.Fprintf(c.w, "=============================================\n")
	fmt.Fprintf(c.w, "If the browser shows the sign-in page, log in to the support portal there.\n")
	fmt.Fprintf(c.w, "Waiting up to %s for the session.\n", timeout.Round(time.Second))
	fmt.Fprintf(c.w, "=============================================\n")
}

// ShowCatalog lists every section of an update page with its releases, newest first
func (c *ConsoleUI) ShowCatalog(catalog *portal.Catalog) {
	fmt.Fprintf(c.w, "%s updates\n", catalog.UpdateType)
	for _, section := range catalog.Sections() {
		releases, err := catalog.Releases(section)
		if err != nil {
			continue
		}
		portal.SortNewestFirst(releases)

		fmt.Fprintf(c.w, "\n%s (%d)\n", section, len(releases))
		for i, r := range releases {
			marker := " "
			if i == 0 {
				marker = "*"
			}
			fmt.Fprintf(c.w, " %s %-24s %s\n", marker, r.Version, r.Date)
		}
	}
}
