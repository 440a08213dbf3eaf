package notifier

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/user/committracker/internal/tracker"
)

func sampleCommit() tracker.Commit {
	loc := time.FixedZone("CET", 60*60)
	return tracker.Commit{
		SHA:        "abc123def456",
		Message:    "Fix off-by-one in pagination",
		AuthoredAt: time.Date(2026, 3, 7, 9, 5, 0, 0, loc),
		Files:      []string{"internal/page.go", "internal/page_test.go"},
	}
}

func TestBuildCommitMessageLayout(t *testing.T) {
	msg := BuildCommitMessage(sampleCommit(), "octocat", "Hello-World", "main")

	assert.Contains(t, msg, `<a href="https://github.com/octocat/Hello-World/tree/main">`)
	assert.Contains(t, msg, `<a href="https://github.com/octocat/Hello-World/commit/abc123def456">`)
	assert.Contains(t, msg, "<b>Message</b>: Fix off-by-one in pagination")
	assert.Contains(t, msg, "<b>Modified files</b>:")
	assert.Contains(t, msg, "• internal/page.go\n")
	assert.Contains(t, msg, "• internal/page_test.go\n")
}

func TestBuildCommitMessageTimestampInRecordedZone(t *testing.T) {
	msg := BuildCommitMessage(sampleCommit(), "octocat", "Hello-World", "main")

	// 09:05 CET, not the UTC rendering 08:05.
	assert.Contains(t, msg, "found at 09:05 on 7/3/2026.")
}

func TestBuildCommitMessageNoFiles(t *testing.T) {
	c := sampleCommit()
	c.Files = nil

	msg := BuildCommitMessage(c, "octocat", "Hello-World", "main")

	assert.Contains(t, msg, "<b>No modified files</b>.")
	assert.NotContains(t, msg, "Modified files</b>:")
}

func TestBuildCommitMessageEscapesMarkup(t *testing.T) {
	c := sampleCommit()
	c.Message = `Add <script>alert("x")</script> & more`
	c.Files = []string{"a<b>.go"}

	msg := BuildCommitMessage(c, "octocat", "Hello-World", "main")

	assert.Contains(t, msg, "&lt;script&gt;")
	assert.Contains(t, msg, "&amp; more")
	assert.Contains(t, msg, "a&lt;b&gt;.go")
	assert.NotContains(t, msg, "<script>")
}

func TestBuildCommitMessageEscapesBranchInURL(t *testing.T) {
	msg := BuildCommitMessage(sampleCommit(), "octocat", "Hello-World", "feat/new api")

	assert.Contains(t, msg, "/tree/feat%2Fnew%20api")
	// The visible branch label stays readable.
	assert.Contains(t, msg, "> feat/new api </a>")
}

func TestBuildCommitMessageMultilineMessageVerbatim(t *testing.T) {
	c := sampleCommit()
	c.Message = "Subject line\n\nLonger body with details."

	msg := BuildCommitMessage(c, "octocat", "Hello-World", "main")

	assert.True(t, strings.Contains(msg, "Subject line\n\nLonger body with details."),
		"commit message must be included verbatim")
}
