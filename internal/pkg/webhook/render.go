package webhook

import (
	"fmt"
	"html"
	"strings"

	"github.com/gitwatch-app/gitwatch/app/models"
)

// Telegram parse mode used for every rendered notification.
const ParseModeHTML = "HTML"

const (
	maxRenderedCommits = 3
	maxCommitLineLen   = 50
)

// Message is a rendered notification ready for the messaging sink.
type Message struct {
	Text      string
	ParseMode string
}

// Render converts a normalized event into a notification for one watch.
// It returns nil when the watch opted out of the event category or when
// the action carries no user-facing meaning. All externally sourced text
// (repo names, titles, actors, branch names, commit messages) is escaped
// before it is interpolated into the HTML markup.
func Render(ev Event, watch *models.WatchedRepo) *Message {
	switch e := ev.(type) {
	case IssueEvent:
		if !watch.NotifyIssues {
			return nil
		}
		return renderIssue(e, watch)
	case PullRequestEvent:
		if !watch.NotifyPullRequests {
			return nil
		}
		return renderPullRequest(e, watch)
	case PushEvent:
		if !watch.NotifyPushes {
			return nil
		}
		return renderPush(e)
	case CommentEvent:
		if !watch.NotifyComments {
			return nil
		}
		return renderComment(e)
	}
	return nil
}

func renderIssue(e IssueEvent, watch *models.WatchedRepo) *Message {
	repo := html.EscapeString(e.FullName())
	var headline string
	switch e.Action {
	case ActionOpened:
		headline = fmt.Sprintf("🔔 <b>New Issue in %s</b>", repo)
	case ActionClosed:
		headline = fmt.Sprintf("✅ <b>Issue Closed in %s</b>", repo)
	case ActionReopened:
		headline = fmt.Sprintf("🔄 <b>Issue Reopened in %s</b>", repo)
	case ActionAssigned:
		headline = fmt.Sprintf("👤 %s an issue in %s", assignmentPhrase(e.Assignee, watch), repo)
	default:
		return nil
	}
	text := fmt.Sprintf("%s\n\n<b>%s</b>\nBy: @%s\n\n<a href=\"%s\">View Issue</a>",
		headline, html.EscapeString(e.Title), html.EscapeString(e.Actor), html.EscapeString(e.URL))
	return &Message{Text: text, ParseMode: ParseModeHTML}
}

func renderPullRequest(e PullRequestEvent, watch *models.WatchedRepo) *Message {
	repo := html.EscapeString(e.FullName())
	var headline string
	switch e.Action {
	case ActionOpened:
		headline = fmt.Sprintf("🔀 <b>New Pull Request in %s</b>", repo)
	case ActionClosed:
		if e.Merged {
			headline = fmt.Sprintf("🎉 <b>Pull Request Merged in %s</b>", repo)
		} else {
			headline = fmt.Sprintf("❌ <b>Pull Request Closed in %s</b>", repo)
		}
	case ActionReopened:
		headline = fmt.Sprintf("🔄 <b>Pull Request Reopened in %s</b>", repo)
	case ActionAssigned:
		headline = fmt.Sprintf("👤 %s a pull request in %s", assignmentPhrase(e.Assignee, watch), repo)
	default:
		return nil
	}
	text := fmt.Sprintf("%s\n\n<b>%s</b>\nBy: @%s\n\n<a href=\"%s\">View Pull Request</a>",
		headline, html.EscapeString(e.Title), html.EscapeString(e.Actor), html.EscapeString(e.URL))
	return &Message{Text: text, ParseMode: ParseModeHTML}
}

// assignmentPhrase resolves the possessive wording for assignment
// notifications: the watcher themselves gets "You", anyone else is named.
func assignmentPhrase(assignee string, watch *models.WatchedRepo) string {
	if assignee != "" && assignee == watch.User.GitHubUsername {
		return "You have been assigned"
	}
	return fmt.Sprintf("@%s has been assigned", html.EscapeString(assignee))
}

func renderPush(e PushEvent) *Message {
	repo := html.EscapeString(e.FullName())
	branch := html.EscapeString(e.Branch)

	noun := "commits"
	if len(e.Commits) == 1 {
		noun = "commit"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "📦 <b>%d new %s to %s:%s</b>\n", len(e.Commits), noun, repo, branch)
	fmt.Fprintf(&b, "By: @%s\n\n", html.EscapeString(e.Actor))

	shown := e.Commits
	if len(shown) > maxRenderedCommits {
		shown = shown[:maxRenderedCommits]
	}
	for _, c := range shown {
		fmt.Fprintf(&b, "• %s\n", html.EscapeString(firstLine(c.Message, maxCommitLineLen)))
	}
	if rest := len(e.Commits) - len(shown); rest > 0 {
		fmt.Fprintf(&b, "... and %d more\n", rest)
	}
	if e.CompareURL != "" {
		fmt.Fprintf(&b, "\n<a href=\"%s\">Compare changes</a>", html.EscapeString(e.CompareURL))
	}
	return &Message{Text: b.String(), ParseMode: ParseModeHTML}
}

func renderComment(e CommentEvent) *Message {
	if e.Action != ActionCreated {
		return nil
	}
	subject := "Issue"
	if e.OnPullRequest {
		subject = "PR"
	}
	text := fmt.Sprintf("💬 <b>New comment on %s #%d in %s</b>\n\n<b>%s</b>\nBy: @%s\n\n<a href=\"%s\">View Comment</a>",
		subject, e.Number, html.EscapeString(e.FullName()),
		html.EscapeString(e.Title), html.EscapeString(e.Actor), html.EscapeString(e.URL))
	return &Message{Text: text, ParseMode: ParseModeHTML}
}

// firstLine returns the first line of a commit message truncated to max
// runes, with an ellipsis when anything was cut.
func firstLine(message string, max int) string {
	line := message
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	line = strings.TrimRight(line, "\r")
	runes := []rune(line)
	if len(runes) <= max {
		return line
	}
	return string(runes[:max-1]) + "…"
}
