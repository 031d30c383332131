package launcher

import (
	"context"
	"fmt"

	"github.com/oshokin/roguelike-launcher/internal/api/github"
	"github.com/oshokin/roguelike-launcher/internal/config"
	"github.com/oshokin/roguelike-launcher/internal/domain/game"
	"github.com/oshokin/roguelike-launcher/internal/repository/ledger"
	"github.com/oshokin/roguelike-launcher/internal/service/installer"
	"github.com/oshokin/roguelike-launcher/internal/service/opener"
	"github.com/oshokin/roguelike-launcher/internal/service/resolver"
)

// Build assembles a Core from validated settings. A nil open uses the
// desktop opener. Extra installer options are applied after the defaults.
func Build(
	ctx context.Context,
	cfg *config.Config,
	open opener.Opener,
	opts ...installer.Option,
) (*Core, error) {
	catalog := game.DefaultCatalog().WithUserDataFolders(cfg.UserDataFolders)

	client, err := github.NewClient(cfg.APIBaseURL,
		github.WithToken(cfg.GitHubToken),
		github.WithPerPage(cfg.PerPage),
		github.WithTimeout(cfg.Timeout),
		github.WithRetries(cfg.Retries(), 0, 0),
	)
	if err != nil {
		return nil, fmt.Errorf("create release client: %w", err)
	}

	res, err := resolver.New(client, catalog)
	if err != nil {
		return nil, fmt.Errorf("create resolver: %w", err)
	}

	book := ledger.Open(ctx, ledger.NewFileRepository(cfg.LedgerFile, catalog.Channels()))

	inst, err := installer.New(cfg.BaseDir, catalog, book, client, opts...)
	if err != nil {
		return nil, fmt.Errorf("create installer: %w", err)
	}

	if open == nil {
		open = opener.New()
	}

	return New(Dependencies{
		BaseDir:   cfg.BaseDir,
		Catalog:   catalog,
		Book:      book,
		Resolver:  res,
		Installer: inst,
		Opener:    open,
	})
}
