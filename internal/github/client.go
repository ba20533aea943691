package github

import (
	"github.com/gofri/go-github-ratelimit/github_ratelimit"
	"github.com/google/go-github/v81/github"
)

// Client wraps the GitHub API client with rate limiting support
type Client struct {
	*github.Client
}

// NewClient creates a GitHub client that waits out primary and secondary rate
// limits. A non-empty token authenticates requests for the higher quota.
func NewClient(token string) (*Client, error) {
	// Handles primary limits (5000 req/hour authenticated, 60 unauthenticated)
	// and secondary limits with automatic retry
	rateLimiter, err := github_ratelimit.NewRateLimitWaiterClient(nil)
	if err != nil {
		return nil, err
	}

	ghClient := github.NewClient(rateLimiter)
	if token != "" {
		ghClient = ghClient.WithAuthToken(token)
	}

	return &Client{Client: ghClient}, nil
}
