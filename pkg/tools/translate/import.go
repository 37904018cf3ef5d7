package translate

import (
	"context"
	"encoding/json"

	"github.com/entrhq/zotbridge/pkg/tools"
)

type translateImportArgs struct {
	Data     string `json:"data" jsonschema_description:"Raw import data"`
	MimeType string `json:"mimeType,omitempty" jsonschema_description:"Override Content-Type (optional, defaults to text/plain)"`
}

// TranslateImportTool converts citation data into Zotero items.
type TranslateImportTool struct {
	translator Translator
	schema     map[string]interface{}
}

// NewTranslateImportTool creates a TranslateImportTool.
func NewTranslateImportTool(t Translator) *TranslateImportTool {
	return &TranslateImportTool{translator: t, schema: tools.GenerateSchema[translateImportArgs]()}
}

// Name returns the tool name.
func (t *TranslateImportTool) Name() string {
	return "translate_import"
}

// Description returns the tool description.
func (t *TranslateImportTool) Description() string {
	return "Import citation data (RIS/BibTeX/etc.) into Zotero item JSON."
}

// Schema returns the JSON schema for the tool's input parameters.
func (t *TranslateImportTool) Schema() map[string]interface{} {
	return t.schema
}

// Execute imports the data.
func (t *TranslateImportTool) Execute(ctx context.Context, args json.RawMessage) (string, map[string]interface{}, error) {
	in, err := tools.DecodeArgs[translateImportArgs](args)
	if err != nil {
		return "", nil, err
	}
	res, err := t.translator.Import(ctx, in.Data, in.MimeType)
	if err != nil {
		return "", nil, err
	}
	return render(res)
}
