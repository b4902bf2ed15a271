package webhook

import (
	"encoding/json"
	"fmt"
	"strings"
)

// GitHub event type header values this relay understands.
const (
	EventTypeIssues       = "issues"
	EventTypePullRequest  = "pull_request"
	EventTypePush         = "push"
	EventTypeIssueComment = "issue_comment"
)

// Action is the action field of an issues/pull_request/issue_comment
// payload. Unknown actions pass through unchanged; the renderer simply
// produces no message for them.
type Action string

const (
	ActionOpened   Action = "opened"
	ActionClosed   Action = "closed"
	ActionReopened Action = "reopened"
	ActionAssigned Action = "assigned"
	ActionCreated  Action = "created"
)

// RepoRef identifies the repository an event belongs to, verbatim as
// delivered in the payload.
type RepoRef struct {
	Owner string
	Repo  string
}

func (r RepoRef) FullName() string {
	return r.Owner + "/" + r.Repo
}

// Event is a normalized repository event. Exactly one concrete type per
// supported webhook event type; downstream code matches over the set with
// a type switch.
type Event interface {
	Repository() RepoRef
	event()
}

// IssueEvent covers the "issues" webhook event.
type IssueEvent struct {
	RepoRef
	Actor    string
	Action   Action
	Number   int
	Title    string
	URL      string
	Assignee string
}

// PullRequestEvent covers the "pull_request" webhook event.
type PullRequestEvent struct {
	RepoRef
	Actor    string
	Action   Action
	Number   int
	Title    string
	URL      string
	Assignee string
	Merged   bool
}

// Commit is one pushed commit, in payload order.
type Commit struct {
	SHA     string
	Message string
	URL     string
}

// PushEvent covers branch pushes; tag pushes are filtered out during
// normalization.
type PushEvent struct {
	RepoRef
	Actor      string
	Branch     string
	Commits    []Commit
	CompareURL string
}

// CommentEvent covers the "issue_comment" webhook event. GitHub delivers
// PR comments through the same event; OnPullRequest distinguishes them.
type CommentEvent struct {
	RepoRef
	Actor         string
	Action        Action
	Number        int
	Title         string
	URL           string
	OnPullRequest bool
}

func (e IssueEvent) Repository() RepoRef       { return e.RepoRef }
func (e PullRequestEvent) Repository() RepoRef { return e.RepoRef }
func (e PushEvent) Repository() RepoRef        { return e.RepoRef }
func (e CommentEvent) Repository() RepoRef     { return e.RepoRef }

func (IssueEvent) event()       {}
func (PullRequestEvent) event() {}
func (PushEvent) event()        {}
func (CommentEvent) event()     {}

type repositoryPayload struct {
	Name  string `json:"name"`
	Owner struct {
		Login string `json:"login"`
	} `json:"owner"`
}

func (p *repositoryPayload) ref() RepoRef {
	return RepoRef{Owner: p.Owner.Login, Repo: p.Name}
}

type senderPayload struct {
	Login string `json:"login"`
}

type userPayload struct {
	Login string `json:"login"`
}

type issuesPayload struct {
	Action string `json:"action"`
	Issue  struct {
		Number  int    `json:"number"`
		Title   string `json:"title"`
		HTMLURL string `json:"html_url"`
	} `json:"issue"`
	Assignee   *userPayload       `json:"assignee"`
	Repository *repositoryPayload `json:"repository"`
	Sender     senderPayload      `json:"sender"`
}

type pullRequestPayload struct {
	Action      string `json:"action"`
	PullRequest struct {
		Number  int    `json:"number"`
		Title   string `json:"title"`
		HTMLURL string `json:"html_url"`
		Merged  bool   `json:"merged"`
	} `json:"pull_request"`
	Assignee   *userPayload       `json:"assignee"`
	Repository *repositoryPayload `json:"repository"`
	Sender     senderPayload      `json:"sender"`
}

type pushPayload struct {
	Ref     string `json:"ref"`
	Compare string `json:"compare"`
	Commits []struct {
		ID      string `json:"id"`
		Message string `json:"message"`
		URL     string `json:"url"`
	} `json:"commits"`
	Pusher struct {
		Name string `json:"name"`
	} `json:"pusher"`
	Repository *repositoryPayload `json:"repository"`
	Sender     senderPayload      `json:"sender"`
}

type issueCommentPayload struct {
	Action string `json:"action"`
	Issue  struct {
		Number      int       `json:"number"`
		Title       string    `json:"title"`
		HTMLURL     string    `json:"html_url"`
		PullRequest *struct{} `json:"pull_request"`
	} `json:"issue"`
	Comment struct {
		HTMLURL string `json:"html_url"`
	} `json:"comment"`
	Repository *repositoryPayload `json:"repository"`
	Sender     senderPayload      `json:"sender"`
}

// Normalize maps a raw webhook body and its X-GitHub-Event type into a
// typed event. Unrecognized event types and payloads without a repository
// (ping deliveries) yield (nil, nil); only malformed JSON is an error.
// Normalization is pure: no store or network access.
func Normalize(eventType string, body []byte) (Event, error) {
	switch eventType {
	case EventTypeIssues:
		var p issuesPayload
		if err := json.Unmarshal(body, &p); err != nil {
			return nil, fmt.Errorf("parse issues payload: %w", err)
		}
		if p.Repository == nil {
			return nil, nil
		}
		ev := IssueEvent{
			RepoRef: p.Repository.ref(),
			Actor:   p.Sender.Login,
			Action:  Action(p.Action),
			Number:  p.Issue.Number,
			Title:   p.Issue.Title,
			URL:     p.Issue.HTMLURL,
		}
		if p.Assignee != nil {
			ev.Assignee = p.Assignee.Login
		}
		return ev, nil

	case EventTypePullRequest:
		var p pullRequestPayload
		if err := json.Unmarshal(body, &p); err != nil {
			return nil, fmt.Errorf("parse pull_request payload: %w", err)
		}
		if p.Repository == nil {
			return nil, nil
		}
		ev := PullRequestEvent{
			RepoRef: p.Repository.ref(),
			Actor:   p.Sender.Login,
			Action:  Action(p.Action),
			Number:  p.PullRequest.Number,
			Title:   p.PullRequest.Title,
			URL:     p.PullRequest.HTMLURL,
			Merged:  p.PullRequest.Merged,
		}
		if p.Assignee != nil {
			ev.Assignee = p.Assignee.Login
		}
		return ev, nil

	case EventTypePush:
		var p pushPayload
		if err := json.Unmarshal(body, &p); err != nil {
			return nil, fmt.Errorf("parse push payload: %w", err)
		}
		if p.Repository == nil {
			return nil, nil
		}
		branch := strings.TrimPrefix(p.Ref, "refs/heads/")
		if branch == p.Ref {
			// Tag or other non-branch ref, nothing to notify about
			return nil, nil
		}
		actor := p.Sender.Login
		if actor == "" {
			actor = p.Pusher.Name
		}
		ev := PushEvent{
			RepoRef:    p.Repository.ref(),
			Actor:      actor,
			Branch:     branch,
			CompareURL: p.Compare,
		}
		for _, c := range p.Commits {
			ev.Commits = append(ev.Commits, Commit{SHA: c.ID, Message: c.Message, URL: c.URL})
		}
		return ev, nil

	case EventTypeIssueComment:
		var p issueCommentPayload
		if err := json.Unmarshal(body, &p); err != nil {
			return nil, fmt.Errorf("parse issue_comment payload: %w", err)
		}
		if p.Repository == nil {
			return nil, nil
		}
		return CommentEvent{
			RepoRef:       p.Repository.ref(),
			Actor:         p.Sender.Login,
			Action:        Action(p.Action),
			Number:        p.Issue.Number,
			Title:         p.Issue.Title,
			URL:           p.Comment.HTMLURL,
			OnPullRequest: p.Issue.PullRequest != nil,
		}, nil
	}

	// Unknown event types (ping, star, watch, ...) are a no-op
	return nil, nil
}
