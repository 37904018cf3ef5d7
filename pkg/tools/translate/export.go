package translate

import (
	"context"
	"encoding/json"

	"github.com/entrhq/zotbridge/pkg/tools"
)

type exportItemsArgs struct {
	Items  any    `json:"items" jsonschema:"oneof_type=array;object" jsonschema_description:"Zotero item JSON"`
	Format string `json:"format" jsonschema_description:"Export format (e.g. bibtex, ris)"`
}

// ExportItemsTool renders Zotero items in a bibliographic format.
type ExportItemsTool struct {
	translator Translator
	schema     map[string]interface{}
}

// NewExportItemsTool creates an ExportItemsTool.
func NewExportItemsTool(t Translator) *ExportItemsTool {
	return &ExportItemsTool{translator: t, schema: tools.GenerateSchema[exportItemsArgs]()}
}

// Name returns the tool name.
func (t *ExportItemsTool) Name() string {
	return "export_items"
}

// Description returns the tool description.
func (t *ExportItemsTool) Description() string {
	return "Export Zotero item JSON to a bibliographic format (RIS, BibTeX, etc.)."
}

// Schema returns the JSON schema for the tool's input parameters.
func (t *ExportItemsTool) Schema() map[string]interface{} {
	return t.schema
}

// Execute exports the items.
func (t *ExportItemsTool) Execute(ctx context.Context, args json.RawMessage) (string, map[string]interface{}, error) {
	in, err := tools.DecodeArgs[exportItemsArgs](args)
	if err != nil {
		return "", nil, err
	}
	items, err := tools.RawJSON(in.Items)
	if err != nil {
		return "", nil, err
	}
	res, err := t.translator.Export(ctx, items, in.Format)
	if err != nil {
		return "", nil, err
	}
	text, err := tools.ResultText(res)
	if err != nil {
		return "", nil, err
	}
	return text, map[string]interface{}{"status": res.Status, "format": in.Format}, nil
}
