package main

import (
	"fmt"

	"github.com/entrhq/zotbridge/pkg/config"
	"github.com/entrhq/zotbridge/pkg/snapshot"
	"github.com/entrhq/zotbridge/pkg/tools"
	"github.com/entrhq/zotbridge/pkg/tools/saving"
	"github.com/entrhq/zotbridge/pkg/tools/translate"
	"github.com/entrhq/zotbridge/pkg/translation"
	"github.com/entrhq/zotbridge/pkg/zotero/connector"
	"github.com/entrhq/zotbridge/pkg/zotero/library"
	"github.com/entrhq/zotbridge/pkg/zotero/save"
)

// app is everything built from one configuration.
type app struct {
	cfg      *config.Config
	saver    *save.Saver
	registry *tools.Registry
	browser  *snapshot.BrowserCapturer
}

func buildApp(cfg *config.Config) (*app, error) {
	conn := connector.NewClient(connector.Options{
		BaseURL:           cfg.Connector.URL,
		APIVersion:        cfg.Connector.APIVersion,
		ClientVersion:     cfg.Connector.ClientVersion,
		Timeout:           cfg.Connector.Timeout,
		AttachmentTimeout: cfg.Connector.AttachmentTimeout,
		ValidatePDF:       cfg.Connector.ValidatePDF,
	})

	a := &app{cfg: cfg}
	saveCfg := save.Config{Connector: conn}
	if cfg.Snapshot.Renderer == config.RendererBrowser {
		a.browser = snapshot.NewBrowserCapturer(snapshot.BrowserOptions{
			ShowBrowser: cfg.Snapshot.ShowBrowser,
			WaitUntil:   cfg.Snapshot.WaitUntil,
			SkipInstall: cfg.Snapshot.SkipInstall,
		})
		saveCfg.Pages = a.browser
	}
	saver, err := save.NewSaver(saveCfg)
	if err != nil {
		return nil, err
	}
	a.saver = saver

	local, err := library.NewClient(library.Options{
		Target:  library.TargetLocal,
		BaseURL: cfg.Local.URL,
		APIKey:  cfg.Local.APIKey,
		Timeout: cfg.Local.Timeout,
	})
	if err != nil {
		return nil, err
	}
	web, err := library.NewClient(library.Options{
		Target:  library.TargetWeb,
		BaseURL: cfg.Web.URL,
		APIKey:  cfg.Web.APIKey,
		Timeout: cfg.Web.Timeout,
	})
	if err != nil {
		return nil, err
	}

	translator := translation.NewClient(translation.Options{
		BaseURL: cfg.Translation.URL,
		Timeout: cfg.Translation.Timeout,
	})

	all := translate.NewTools(translator)
	all = append(all, saving.NewSaveToZoteroTool(saving.Config{Connector: saver, Local: local, Web: web}))

	filter, err := tools.NewFilter(cfg.Tools.Allowed, cfg.Tools.Denied)
	if err != nil {
		return nil, fmt.Errorf("tool filter: %w", err)
	}
	a.registry, err = tools.NewRegistry(filter.Apply(all)...)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// Close releases the browser, if one was started.
func (a *app) Close() error {
	if a == nil || a.browser == nil {
		return nil
	}
	return a.browser.Shutdown()
}
