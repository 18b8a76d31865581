package archive

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	gogithub "github.com/google/go-github/v60/github"
	"golang.org/x/oauth2"
)

// GitHub commits aligned outputs into a repository.
type GitHub struct {
	client *gogithub.Client
	owner  string
	repo   string
}

// NewGitHub creates a GitHub archiver using a static access token.
func NewGitHub(token, owner, repo string) *GitHub {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	tc := oauth2.NewClient(context.Background(), ts)
	return newGitHubWithClient(gogithub.NewClient(tc), owner, repo)
}

func newGitHubWithClient(client *gogithub.Client, owner, repo string) *GitHub {
	return &GitHub{client: client, owner: owner, repo: repo}
}

func (g *GitHub) Name() string { return "github" }

// Put creates or updates the file at key.
func (g *GitHub) Put(ctx context.Context, key string, data []byte) (string, error) {
	opts := &gogithub.RepositoryContentFileOptions{
		Message: gogithub.String(fmt.Sprintf("Archive alignment %s", key)),
		Content: data,
	}
	location := fmt.Sprintf("github://%s/%s/%s", g.owner, g.repo, key)

	_, _, err := g.client.Repositories.CreateFile(ctx, g.owner, g.repo, key, opts)
	if err == nil {
		return location, nil
	}
	if !isUnprocessable(err) {
		return "", err
	}

	// The path already exists; fetch its sha and overwrite.
	existing, _, _, getErr := g.client.Repositories.GetContents(ctx, g.owner, g.repo, key, nil)
	if getErr != nil {
		return "", getErr
	}
	if existing == nil {
		return "", fmt.Errorf("archive path %s is a directory", key)
	}
	opts.SHA = existing.SHA
	if _, _, err := g.client.Repositories.UpdateFile(ctx, g.owner, g.repo, key, opts); err != nil {
		return "", err
	}
	return location, nil
}

func isUnprocessable(err error) bool {
	var ghErr *gogithub.ErrorResponse
	if !errors.As(err, &ghErr) {
		return false
	}
	return ghErr.Response != nil && ghErr.Response.StatusCode == http.StatusUnprocessableEntity
}
