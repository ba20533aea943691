package github

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/google/go-github/v81/github"
)

// DefaultRef is the branch used when a Fetcher is created without one.
const DefaultRef = "main"

// FetchedDoc represents a markdown document fetched from GitHub
type FetchedDoc struct {
	Path    string // Relative path within docs directory
	Content string // Full markdown content
	SHA     string // File's Git blob SHA
	URL     string // Browsable GitHub URL
}

// Fetcher reads markdown files below one directory of a repository.
type Fetcher struct {
	client   *Client
	owner    string
	repo     string
	basePath string
	ref      string
}

// NewFetcher creates a new document fetcher. An empty ref means DefaultRef.
func NewFetcher(client *Client, owner, repo, basePath, ref string) *Fetcher {
	if ref == "" {
		ref = DefaultRef
	}
	return &Fetcher{
		client:   client,
		owner:    owner,
		repo:     repo,
		basePath: strings.Trim(basePath, "/"),
		ref:      ref,
	}
}

// Source identifies the repository directory for logs and URLs.
func (f *Fetcher) Source() string {
	return fmt.Sprintf("%s/%s/%s", f.owner, f.repo, f.basePath)
}

// ListDocs recursively lists all markdown files in the repository directory
func (f *Fetcher) ListDocs(ctx context.Context) ([]string, error) {
	return f.listDocsRecursive(ctx, f.basePath, "")
}

func (f *Fetcher) listDocsRecursive(ctx context.Context, fullPath, relativePath string) ([]string, error) {
	var docs []string

	_, dirContents, _, err := f.client.Repositories.GetContents(
		ctx,
		f.owner,
		f.repo,
		fullPath,
		f.contentOptions(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get contents of %s: %w", fullPath, err)
	}

	for _, item := range dirContents {
		itemRelPath := path.Join(relativePath, item.GetName())

		switch item.GetType() {
		case "file":
			if strings.HasSuffix(item.GetName(), ".md") {
				docs = append(docs, itemRelPath)
			}

		case "dir":
			subDocs, err := f.listDocsRecursive(ctx, path.Join(fullPath, item.GetName()), itemRelPath)
			if err != nil {
				return nil, err
			}
			docs = append(docs, subDocs...)
		}
	}

	return docs, nil
}

// FetchDoc fetches the content of a specific markdown file
func (f *Fetcher) FetchDoc(ctx context.Context, relativePath string) (*FetchedDoc, error) {
	fullPath := path.Join(f.basePath, relativePath)

	fileContent, _, _, err := f.client.Repositories.GetContents(
		ctx,
		f.owner,
		f.repo,
		fullPath,
		f.contentOptions(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get content of %s: %w", fullPath, err)
	}
	if fileContent == nil {
		return nil, fmt.Errorf("no file content returned for %s", fullPath)
	}

	content, err := fileContent.GetContent()
	if err != nil {
		return nil, fmt.Errorf("failed to decode content of %s: %w", fullPath, err)
	}

	return &FetchedDoc{
		Path:    relativePath,
		Content: content,
		SHA:     fileContent.GetSHA(),
		URL:     fmt.Sprintf("https://github.com/%s/%s/blob/%s/%s", f.owner, f.repo, f.ref, fullPath),
	}, nil
}

// GetLatestCommitSHA retrieves the SHA of the most recent commit affecting the docs directory
func (f *Fetcher) GetLatestCommitSHA(ctx context.Context) (string, error) {
	commits, _, err := f.client.Repositories.ListCommits(
		ctx,
		f.owner,
		f.repo,
		&github.CommitsListOptions{
			SHA:  f.ref,
			Path: f.basePath,
			ListOptions: github.ListOptions{
				PerPage: 1,
			},
		},
	)
	if err != nil {
		return "", fmt.Errorf("failed to get latest commit: %w", err)
	}

	if len(commits) == 0 {
		return "", fmt.Errorf("no commits found for path %s", f.basePath)
	}

	sha := commits[0].GetSHA()
	if sha == "" {
		return "", fmt.Errorf("commit SHA is empty")
	}
	return sha, nil
}

func (f *Fetcher) contentOptions() *github.RepositoryContentGetOptions {
	return &github.RepositoryContentGetOptions{Ref: f.ref}
}
