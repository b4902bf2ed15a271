package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWatchedRepoValidate(t *testing.T) {
	watch := &WatchedRepo{UserID: 1, Owner: "acme", Repo: "widgets"}
	assert.NoError(t, watch.Validate())

	missingOwner := &WatchedRepo{UserID: 1, Repo: "widgets"}
	assert.Error(t, missingOwner.Validate())

	missingUser := &WatchedRepo{Owner: "acme", Repo: "widgets"}
	assert.Error(t, missingUser.Validate())
}

func TestWatchedRepoFullName(t *testing.T) {
	watch := &WatchedRepo{Owner: "acme", Repo: "widgets"}
	assert.Equal(t, "acme/widgets", watch.FullName())
}
