// Package translate exposes the translation server as MCP tools:
// translate_web, translate_web_select, translate_search, translate_import
// and export_items.
package translate

import (
	"context"
	"encoding/json"

	"github.com/entrhq/zotbridge/pkg/tools"
	"github.com/entrhq/zotbridge/pkg/translation"
)

// Translator is the subset of the translation client the tools call.
type Translator interface {
	TranslateWeb(ctx context.Context, target string) (*translation.Result, error)
	SelectWeb(ctx context.Context, sel translation.Selection) (*translation.Result, error)
	Search(ctx context.Context, identifier string) (*translation.Result, error)
	Import(ctx context.Context, data, mimeType string) (*translation.Result, error)
	Export(ctx context.Context, itemsJSON json.RawMessage, format string) (*translation.ExportResult, error)
}

// NewTools returns every translation tool bound to t.
func NewTools(t Translator) []tools.Tool {
	return []tools.Tool{
		NewTranslateWebTool(t),
		NewTranslateWebSelectTool(t),
		NewTranslateSearchTool(t),
		NewTranslateImportTool(t),
		NewExportItemsTool(t),
	}
}

func render(res *translation.Result) (string, map[string]interface{}, error) {
	text, err := tools.ResultText(res)
	if err != nil {
		return "", nil, err
	}
	return text, map[string]interface{}{"status": res.Status}, nil
}
