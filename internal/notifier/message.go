package notifier

import (
	"fmt"
	"html"
	"net/url"
	"strings"

	"github.com/user/committracker/internal/tracker"
)

// BuildCommitMessage renders one commit as a Telegram HTML message:
// repository/branch header linking the branch tree, commit link with the
// author timestamp in the commit's recorded timezone, the commit message
// verbatim, and the list of modified files.
//
// Every interpolated remote string is HTML-escaped so commit messages or
// file names containing markup cannot break rendering.
func BuildCommitMessage(c tracker.Commit, owner, repo, branchDisplay string) string {
	var b strings.Builder

	treeURL := fmt.Sprintf("https://github.com/%s/%s/tree/%s",
		url.PathEscape(owner), url.PathEscape(repo), url.PathEscape(branchDisplay))
	commitURL := fmt.Sprintf("https://github.com/%s/%s/commit/%s",
		url.PathEscape(owner), url.PathEscape(repo), url.PathEscape(c.SHA))

	fmt.Fprintf(&b, "<b>%s : <a href=%q> %s </a></b>\n",
		html.EscapeString(repo), treeURL, html.EscapeString(branchDisplay))

	t := c.AuthoredAt
	fmt.Fprintf(&b, "<b><a href=%q> New commit</a></b> found at %02d:%02d on %d/%d/%d.\n",
		commitURL, t.Hour(), t.Minute(), t.Day(), int(t.Month()), t.Year())

	fmt.Fprintf(&b, "<b>Message</b>: %s\n", html.EscapeString(c.Message))

	if len(c.Files) > 0 {
		b.WriteString("<b>Modified files</b>:\n")
		for _, f := range c.Files {
			fmt.Fprintf(&b, "• %s\n", html.EscapeString(f))
		}
	} else {
		b.WriteString("<b>No modified files</b>.\n")
	}

	return b.String()
}
