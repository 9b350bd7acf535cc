// Package gateway provides a gateway to the GitHub API,
// abstracting away the underlying REST and GraphQL clients.
package gateway

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/go-github/v62/github"
	"github.com/naka-gawa/repo-history/internal/domain"
	"github.com/rs/zerolog"
	"github.com/shurcooL/githubv4"
	"golang.org/x/oauth2"

	"github.com/gofri/go-github-ratelimit/github_ratelimit"
)

// Fetcher defines the behavior of a gateway for fetching repository
// observations from GitHub.
type Fetcher interface {
	FetchStargazers(ctx context.Context, owner, name string) ([]domain.Observation, error)
	FetchForks(ctx context.Context, owner, name string) ([]domain.Observation, error)
	// FetchWatchers returns observations with a zero Timestamp: GitHub does
	// not record when a subscription was made.
	FetchWatchers(ctx context.Context, owner, name string) ([]domain.Observation, error)
}

// GitHubGateway is the concrete implementation of the Fetcher interface.
type GitHubGateway struct {
	restClient    *github.Client
	graphqlClient *githubv4.Client
	logger        zerolog.Logger
}

// stargazersQuery pages through a repository's stargazers together with the
// time each one starred it.
type stargazersQuery struct {
	Repository struct {
		Stargazers struct {
			PageInfo struct {
				HasNextPage bool
				EndCursor   githubv4.String
			}
			Edges []struct {
				StarredAt githubv4.DateTime
				Node      struct {
					DatabaseID int64 `graphql:"databaseId"`
					Login      string
				}
			}
		} `graphql:"stargazers(first: 100, after: $cursor, orderBy: {field: STARRED_AT, direction: ASC})"`
	} `graphql:"repository(owner: $owner, name: $name)"`
}

// NewGitHubGateway is a constructor that creates a new instance of GitHubGateway.
func NewGitHubGateway(token string, logger zerolog.Logger) (Fetcher, error) {
	httpClient, err := newHTTPClient(token)
	if err != nil {
		return nil, err
	}
	return &GitHubGateway{
		restClient:    github.NewClient(httpClient),
		graphqlClient: githubv4.NewClient(httpClient),
		logger:        logger,
	}, nil
}

// NewEnterpriseGateway points both clients at a GitHub Enterprise server.
// baseURL is the REST root (e.g. https://ghe.example.com/api/v3/) and
// graphqlURL the GraphQL endpoint.
func NewEnterpriseGateway(token, baseURL, graphqlURL string, logger zerolog.Logger) (Fetcher, error) {
	httpClient, err := newHTTPClient(token)
	if err != nil {
		return nil, err
	}
	restClient, err := github.NewClient(httpClient).WithEnterpriseURLs(baseURL, baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to configure enterprise URLs: %w", err)
	}
	return &GitHubGateway{
		restClient:    restClient,
		graphqlClient: githubv4.NewEnterpriseClient(graphqlURL, httpClient),
		logger:        logger,
	}, nil
}

func newHTTPClient(token string) (*http.Client, error) {
	rateLimitWaiter, err := github_ratelimit.NewRateLimitWaiter(nil, github_ratelimit.WithSingleSleepLimit(1*time.Hour, nil))
	if err != nil {
		return nil, fmt.Errorf("failed to create rate limit waiter: %w", err)
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	return &http.Client{
		Transport: &oauth2.Transport{
			Base:   rateLimitWaiter,
			Source: ts,
		},
	}, nil
}

// ParseRepo splits an "owner/name" slug.
func ParseRepo(slug string) (owner, name string, err error) {
	owner, name, ok := strings.Cut(strings.TrimSpace(slug), "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return "", "", fmt.Errorf("invalid repository %q, expected owner/name", slug)
	}
	return owner, name, nil
}

func (g *GitHubGateway) FetchStargazers(ctx context.Context, owner, name string) ([]domain.Observation, error) {
	g.logger.Debug().Str("repo", owner+"/"+name).Msg("Fetching stargazers using GraphQL API...")
	variables := map[string]interface{}{
		"owner":  githubv4.String(owner),
		"name":   githubv4.String(name),
		"cursor": (*githubv4.String)(nil),
	}
	var observations []domain.Observation
	for {
		var q stargazersQuery
		if err := g.graphqlClient.Query(ctx, &q, variables); err != nil {
			return nil, fmt.Errorf("failed to execute GraphQL query for stargazers: %w", err)
		}
		for _, edge := range q.Repository.Stargazers.Edges {
			observations = append(observations, domain.Observation{
				EntityID:  edge.Node.DatabaseID,
				Login:     edge.Node.Login,
				Timestamp: domain.NormalizeTime(edge.StarredAt.Time),
			})
		}
		if !q.Repository.Stargazers.PageInfo.HasNextPage {
			break
		}
		variables["cursor"] = githubv4.NewString(q.Repository.Stargazers.PageInfo.EndCursor)
		g.logger.Debug().Int("fetched", len(observations)).Msg("  Fetching next page of stargazers...")
	}
	g.logger.Debug().Int("count", len(observations)).Msg("Completed fetching stargazers.")
	return observations, nil
}

func (g *GitHubGateway) FetchForks(ctx context.Context, owner, name string) ([]domain.Observation, error) {
	g.logger.Debug().Str("repo", owner+"/"+name).Msg("Fetching forks using REST API...")
	opts := &github.RepositoryListForksOptions{
		Sort:        "oldest",
		ListOptions: github.ListOptions{PerPage: 100},
	}
	var observations []domain.Observation
	for {
		forks, resp, err := g.restClient.Repositories.ListForks(ctx, owner, name, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to list forks with REST API: %w", err)
		}
		for _, fork := range forks {
			observations = append(observations, domain.Observation{
				EntityID:  fork.GetOwner().GetID(),
				Login:     fork.GetOwner().GetLogin(),
				Timestamp: domain.NormalizeTime(fork.GetCreatedAt().Time),
			})
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
		g.logger.Debug().Int("page", resp.NextPage).Msg("  Fetching next page of forks...")
	}
	g.logger.Debug().Int("count", len(observations)).Msg("Completed fetching forks.")
	return observations, nil
}

func (g *GitHubGateway) FetchWatchers(ctx context.Context, owner, name string) ([]domain.Observation, error) {
	g.logger.Debug().Str("repo", owner+"/"+name).Msg("Fetching watchers using REST API...")
	opts := &github.ListOptions{PerPage: 100}
	var observations []domain.Observation
	for {
		watchers, resp, err := g.restClient.Activity.ListWatchers(ctx, owner, name, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to list watchers with REST API: %w", err)
		}
		for _, user := range watchers {
			observations = append(observations, domain.Observation{
				EntityID: user.GetID(),
				Login:    user.GetLogin(),
			})
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
		g.logger.Debug().Int("page", resp.NextPage).Msg("  Fetching next page of watchers...")
	}
	g.logger.Debug().Int("count", len(observations)).Msg("Completed fetching watchers.")
	return observations, nil
}
