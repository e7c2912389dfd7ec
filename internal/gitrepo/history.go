// pattern: Imperative Shell

package gitrepo

import (
	"context"
	"fmt"
	"strings"
)

// Commit is one entry of the log traversal. ParentSHA carries the first
// parent only; additional parents of merge commits are dropped. That is a
// documented limitation of this view, not an oversight.
type Commit struct {
	SHA       string `json:"commit_sha"`
	ParentSHA string `json:"parent_sha,omitempty"`
	Author    string `json:"author,omitempty"`
	Date      string `json:"date,omitempty"`
	Message   string `json:"message"`
}

// logFieldSep is an unlikely-in-subjects byte separating pretty-format
// fields, so commit subjects containing pipes or tabs parse cleanly.
const logFieldSep = "\x01"

var logFormat = strings.Join([]string{"%H", "%P", "%an", "%ad", "%s"}, logFieldSep)

// History returns up to limit commits, newest first. An empty repository
// yields an empty slice, not an error.
func (o *Ops) History(ctx context.Context, repo string, limit int) ([]Commit, error) {
	if limit <= 0 {
		limit = 50
	}

	res, err := o.run.Run(ctx, repo,
		"log", fmt.Sprintf("-n%d", limit), "--pretty=format:"+logFormat, "--date=iso")
	if err != nil {
		return nil, err
	}
	if !res.Ok() {
		// A repository with zero commits fails the log traversal.
		if strings.Contains(res.Stderr, "does not have any commits") {
			return []Commit{}, nil
		}
		return nil, toolError("log", res.ExitCode, res.Stderr)
	}

	out := strings.TrimSpace(res.Stdout)
	if out == "" {
		return []Commit{}, nil
	}

	var commits []Commit
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Split(line, logFieldSep)
		if len(fields) != 5 {
			continue
		}
		c := Commit{
			SHA:     fields[0],
			Author:  fields[2],
			Date:    fields[3],
			Message: fields[4],
		}
		if parents := strings.Fields(fields[1]); len(parents) > 0 {
			c.ParentSHA = parents[0]
		}
		commits = append(commits, c)
	}
	return commits, nil
}

// CommitDiff returns the full diff introduced by one commit.
func (o *Ops) CommitDiff(ctx context.Context, repo, sha string) (string, error) {
	res, err := o.run.Run(ctx, repo, "show", "--format=", sha)
	if err != nil {
		return "", err
	}
	if !res.Ok() {
		return "", toolError("show", res.ExitCode, res.Stderr)
	}
	return res.Stdout, nil
}
