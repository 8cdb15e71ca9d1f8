package provider

import (
	"fmt"

	"github.com/nhle/forge-sparks/internal/forge"
	"github.com/nhle/forge-sparks/internal/forge/gitea"
	"github.com/nhle/forge-sparks/internal/forge/github"
	"github.com/nhle/forge-sparks/internal/forge/gitlab"
)

// Options carries variant specific settings.
type Options struct {
	GitHubReferrer github.ReferrerStrategy
}

// New constructs the adapter for kind.
func New(kind forge.Kind, cfg forge.Config, opts Options) (forge.Forge, error) {
	switch kind {
	case forge.KindGitHub:
		return github.New(cfg, github.WithReferrerStrategy(opts.GitHubReferrer)), nil
	case forge.KindGitLab:
		return gitlab.New(cfg), nil
	case forge.KindGitea:
		return gitea.New(cfg), nil
	case forge.KindForgejo:
		return gitea.NewForgejo(cfg), nil
	default:
		return nil, fmt.Errorf("unsupported forge %q", kind)
	}
}
