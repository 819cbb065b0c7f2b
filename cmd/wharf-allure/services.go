package main

import (
	"github.com/iver-wharf/wharf-allure/internal/pathutil"
	"github.com/iver-wharf/wharf-allure/pkg/allure"
	"github.com/iver-wharf/wharf-allure/pkg/config"
	"github.com/iver-wharf/wharf-allure/pkg/history"
	"github.com/iver-wharf/wharf-allure/pkg/report"
	"github.com/iver-wharf/wharf-allure/pkg/resultstore"
	"github.com/iver-wharf/wharf-allure/pkg/wharfindex"
)

func openStore(cfg config.Config) (*resultstore.Store, error) {
	store, err := resultstore.New(cfg.Store.Dir)
	if err != nil {
		return nil, err
	}
	log.Debug().WithString("dir", pathutil.ShorthandHome(store.Root())).Message("Opened build result store.")
	return store, nil
}

func newHistoryResolver(cfg config.Config, store *resultstore.Store) *history.Resolver {
	var index history.Index = store
	if cfg.History.Index == config.HistoryIndexWharfAPI {
		index = wharfindex.New(cfg.History.WharfAPIURL)
	}
	var source history.Source = resultstore.HistorySource{
		Store:              store,
		ReportArtifactName: cfg.Report.ArtifactName,
	}
	if cfg.History.Source == config.HistorySourceHTTP {
		source = history.NewHTTPSource(cfg.Server.BaseURL, cfg.History.ProbeTimeout)
	}
	return history.NewResolver(index, source, history.Options{
		MaxDepth:    cfg.History.MaxDepth,
		Concurrency: cfg.Report.Concurrency,
		TempDir:     cfg.Report.TempDir,
	})
}

func newOrchestrator(cfg config.Config, store *resultstore.Store) *report.Orchestrator {
	return report.New(report.Options{
		BaseURL:      cfg.Server.BaseURL,
		Settings:     cfg.Allure,
		Artifacts:    store,
		History:      newHistoryResolver(cfg, store),
		Executables:  allure.Registry(cfg.Allure.Executables),
		Outcomes:     store,
		ArtifactName: cfg.Report.ArtifactName,
		TempDir:      cfg.Report.TempDir,
		Timeout:      cfg.Report.Timeout,
	})
}
