package webhook

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitwatch-app/gitwatch/app/models"
)

func allOnWatch() *models.WatchedRepo {
	return &models.WatchedRepo{
		Owner:              "acme",
		Repo:               "widgets",
		Active:             true,
		NotifyIssues:       true,
		NotifyPullRequests: true,
		NotifyPushes:       true,
		NotifyComments:     true,
	}
}

func TestRender_CategoryGating(t *testing.T) {
	issue := IssueEvent{RepoRef: RepoRef{Owner: "acme", Repo: "widgets"}, Action: ActionOpened, Title: "t", Actor: "mona"}

	watch := allOnWatch()
	require.NotNil(t, Render(issue, watch))

	watch.NotifyIssues = false
	assert.Nil(t, Render(issue, watch))

	push := PushEvent{RepoRef: RepoRef{Owner: "acme", Repo: "widgets"}, Branch: "main"}
	watch.NotifyPushes = false
	assert.Nil(t, Render(push, watch))
}

func TestRender_IssueOpened(t *testing.T) {
	msg := Render(IssueEvent{
		RepoRef: RepoRef{Owner: "acme", Repo: "widgets"},
		Actor:   "mona",
		Action:  ActionOpened,
		Number:  42,
		Title:   "Crash on startup",
		URL:     "https://github.com/acme/widgets/issues/42",
	}, allOnWatch())
	require.NotNil(t, msg)

	assert.Equal(t, ParseModeHTML, msg.ParseMode)
	assert.Contains(t, msg.Text, "New Issue in acme/widgets")
	assert.Contains(t, msg.Text, "Crash on startup")
	assert.Contains(t, msg.Text, "By: @mona")
	assert.Contains(t, msg.Text, `<a href="https://github.com/acme/widgets/issues/42">`)
}

func TestRender_UnknownActionProducesNothing(t *testing.T) {
	msg := Render(IssueEvent{RepoRef: RepoRef{Owner: "a", Repo: "b"}, Action: Action("labeled")}, allOnWatch())
	assert.Nil(t, msg)
}

func TestRender_AssignmentWording(t *testing.T) {
	ev := IssueEvent{
		RepoRef:  RepoRef{Owner: "acme", Repo: "widgets"},
		Actor:    "mona",
		Action:   ActionAssigned,
		Assignee: "octocat",
		Title:    "Do the thing",
	}

	self := allOnWatch()
	self.User = models.User{GitHubUsername: "octocat"}
	msg := Render(ev, self)
	require.NotNil(t, msg)
	assert.Contains(t, msg.Text, "You have been assigned")

	other := allOnWatch()
	other.User = models.User{GitHubUsername: "someone-else"}
	msg = Render(ev, other)
	require.NotNil(t, msg)
	assert.Contains(t, msg.Text, "@octocat has been assigned")
	assert.NotContains(t, msg.Text, "You have been assigned")
}

func TestRender_PullRequestMergedVsClosed(t *testing.T) {
	base := PullRequestEvent{
		RepoRef: RepoRef{Owner: "acme", Repo: "widgets"},
		Actor:   "mona",
		Action:  ActionClosed,
		Title:   "Add cache",
	}

	merged := base
	merged.Merged = true
	msg := Render(merged, allOnWatch())
	require.NotNil(t, msg)
	assert.Contains(t, msg.Text, "Pull Request Merged")

	msg = Render(base, allOnWatch())
	require.NotNil(t, msg)
	assert.Contains(t, msg.Text, "Pull Request Closed")
}

func TestRender_PushCommitLimit(t *testing.T) {
	ev := PushEvent{
		RepoRef: RepoRef{Owner: "acme", Repo: "widgets"},
		Actor:   "mona",
		Branch:  "main",
		Commits: []Commit{
			{SHA: "1", Message: "one"},
			{SHA: "2", Message: "two"},
			{SHA: "3", Message: "three"},
			{SHA: "4", Message: "four"},
			{SHA: "5", Message: "five"},
		},
		CompareURL: "https://example.com/compare",
	}

	msg := Render(ev, allOnWatch())
	require.NotNil(t, msg)

	assert.Contains(t, msg.Text, "5 new commits to acme/widgets:main")
	assert.Equal(t, 3, strings.Count(msg.Text, "• "))
	assert.Contains(t, msg.Text, "... and 2 more")
	assert.NotContains(t, msg.Text, "four")
}

func TestRender_PushSingularCommit(t *testing.T) {
	msg := Render(PushEvent{
		RepoRef: RepoRef{Owner: "acme", Repo: "widgets"},
		Branch:  "main",
		Commits: []Commit{{SHA: "1", Message: "only one"}},
	}, allOnWatch())
	require.NotNil(t, msg)
	assert.Contains(t, msg.Text, "1 new commit to")
	assert.NotContains(t, msg.Text, "... and")
}

func TestRender_PushCommitMessageTruncation(t *testing.T) {
	long := strings.Repeat("x", 80) + "\nsecond line"
	msg := Render(PushEvent{
		RepoRef: RepoRef{Owner: "acme", Repo: "widgets"},
		Branch:  "main",
		Commits: []Commit{{SHA: "1", Message: long}},
	}, allOnWatch())
	require.NotNil(t, msg)

	assert.NotContains(t, msg.Text, "second line")
	assert.Contains(t, msg.Text, strings.Repeat("x", 49)+"…")
	assert.NotContains(t, msg.Text, strings.Repeat("x", 50))
}

func TestRender_CommentOnlyOnCreated(t *testing.T) {
	ev := CommentEvent{
		RepoRef:       RepoRef{Owner: "acme", Repo: "widgets"},
		Actor:         "mona",
		Action:        ActionCreated,
		Number:        9,
		Title:         "Add cache",
		OnPullRequest: true,
	}

	msg := Render(ev, allOnWatch())
	require.NotNil(t, msg)
	assert.Contains(t, msg.Text, "PR #9")

	ev.OnPullRequest = false
	msg = Render(ev, allOnWatch())
	require.NotNil(t, msg)
	assert.Contains(t, msg.Text, "Issue #9")

	ev.Action = Action("edited")
	assert.Nil(t, Render(ev, allOnWatch()))
}

func TestRender_EscapesExternalText(t *testing.T) {
	msg := Render(IssueEvent{
		RepoRef: RepoRef{Owner: "acme", Repo: "widgets"},
		Actor:   "mona",
		Action:  ActionOpened,
		Title:   `<script>alert("pwn")</script>`,
	}, allOnWatch())
	require.NotNil(t, msg)

	assert.NotContains(t, msg.Text, "<script>")
	assert.Contains(t, msg.Text, "&lt;script&gt;")
}
