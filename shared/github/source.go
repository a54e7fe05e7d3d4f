package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path"
	"sort"
	"strings"

	"github.com/dfryer1193/postpage/blog/domain"
	"github.com/google/go-github/v75/github"
)

var _ domain.PostSource = (*Source)(nil)

// Source is a domain.PostSource reading Markdown posts from a directory of a GitHub
// repository.
type Source struct {
	client  *github.Client
	owner   string
	gitRepo string
	ref     string
	dir     string
}

// NewSource creates a Source for owner/gitRepo. An empty ref reads the default
// branch; dir is the posts directory relative to the repository root.
func NewSource(client *github.Client, owner, gitRepo, ref, dir string) *Source {
	return &Source{
		client:  client,
		owner:   owner,
		gitRepo: gitRepo,
		ref:     ref,
		dir:     strings.Trim(dir, "/"),
	}
}

// NewClient returns a GitHub API client, authenticated when token is set.
func NewClient(token string) *github.Client {
	client := github.NewClient(nil)
	if token != "" {
		client = client.WithAuthToken(token)
	}
	return client
}

// RepoFullName returns the repository's full name (e.g., "owner/repo").
func (s *Source) RepoFullName() string {
	return fmt.Sprintf("%s/%s", s.owner, s.gitRepo)
}

func (s *Source) ListDocuments(ctx context.Context) ([]domain.SourceDocument, error) {
	op := fmt.Sprintf("listing %s in %s", s.displayDir(), s.RepoFullName())
	_, entries, _, err := s.client.Repositories.GetContents(ctx, s.owner, s.gitRepo, s.dir, s.contentOptions())
	if err != nil {
		return nil, handleGithubError(op, err)
	}

	var docs []domain.SourceDocument
	for _, entry := range entries {
		name := entry.GetName()
		if entry.GetType() != "file" || !strings.HasSuffix(name, ".md") {
			continue
		}

		doc, err := s.read(ctx, strings.TrimSuffix(name, ".md"))
		if err != nil {
			return nil, err
		}
		if doc != nil {
			docs = append(docs, *doc)
		}
	}

	sort.Slice(docs, func(i, j int) bool { return docs[i].Name < docs[j].Name })
	return docs, nil
}

// ReadDocument returns nil, nil when the file does not exist at the configured ref.
func (s *Source) ReadDocument(ctx context.Context, name string) (*domain.SourceDocument, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || strings.HasPrefix(name, ".") {
		return nil, fmt.Errorf("invalid document name %q", name)
	}
	return s.read(ctx, name)
}

func (s *Source) read(ctx context.Context, name string) (*domain.SourceDocument, error) {
	filePath := path.Join(s.dir, name+".md")
	op := fmt.Sprintf("getting file %s at ref %q", filePath, s.ref)

	file, _, _, err := s.client.Repositories.GetContents(ctx, s.owner, s.gitRepo, filePath, s.contentOptions())
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, handleGithubError(op, err)
	}
	if file == nil {
		return nil, fmt.Errorf("github: %s returned a directory", op)
	}

	content, err := file.GetContent()
	if err != nil {
		return nil, fmt.Errorf("github: %s failed to decode content: %w", op, err)
	}

	doc := &domain.SourceDocument{
		Name:    name,
		Path:    filePath,
		Content: []byte(content),
	}

	// The contents API carries no timestamps; the last commit touching the file does.
	commits, _, err := s.client.Repositories.ListCommits(ctx, s.owner, s.gitRepo, &github.CommitsListOptions{
		SHA:         s.ref,
		Path:        filePath,
		ListOptions: github.ListOptions{PerPage: 1},
	})
	if err != nil {
		return nil, handleGithubError(fmt.Sprintf("listing commits for %s", filePath), err)
	}
	if len(commits) > 0 {
		doc.ModifiedAt = commits[0].GetCommit().GetCommitter().GetDate().UTC()
	}

	return doc, nil
}

func (s *Source) contentOptions() *github.RepositoryContentGetOptions {
	if s.ref == "" {
		return nil
	}
	return &github.RepositoryContentGetOptions{Ref: s.ref}
}

func (s *Source) displayDir() string {
	if s.dir == "" {
		return "/"
	}
	return s.dir
}

func isNotFound(err error) bool {
	var errResp *github.ErrorResponse
	return errors.As(err, &errResp) && errResp.Response != nil && errResp.Response.StatusCode == http.StatusNotFound
}

// handleGithubError inspects an error from the go-github client and returns a more informative, structured error.
func handleGithubError(op string, err error) error {
	if err == nil {
		return nil
	}

	var errResp *github.ErrorResponse
	if errors.As(err, &errResp) && errResp.Response != nil {
		return fmt.Errorf("github: %s failed with status %d: %s", op, errResp.Response.StatusCode, errResp.Message)
	}

	return fmt.Errorf("github: %s failed: %w", op, err)
}
