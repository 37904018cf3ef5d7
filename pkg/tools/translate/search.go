package translate

import (
	"context"
	"encoding/json"

	"github.com/entrhq/zotbridge/pkg/tools"
)

type translateSearchArgs struct {
	Identifier string `json:"identifier" jsonschema_description:"Identifier to translate (DOI, ISBN, PMID, arXiv ID)"`
}

// TranslateSearchTool resolves an identifier to Zotero items.
type TranslateSearchTool struct {
	translator Translator
	schema     map[string]interface{}
}

// NewTranslateSearchTool creates a TranslateSearchTool.
func NewTranslateSearchTool(t Translator) *TranslateSearchTool {
	return &TranslateSearchTool{translator: t, schema: tools.GenerateSchema[translateSearchArgs]()}
}

// Name returns the tool name.
func (t *TranslateSearchTool) Name() string {
	return "translate_search"
}

// Description returns the tool description.
func (t *TranslateSearchTool) Description() string {
	return "Translate an identifier (DOI, ISBN, PMID, arXiv) to Zotero items."
}

// Schema returns the JSON schema for the tool's input parameters.
func (t *TranslateSearchTool) Schema() map[string]interface{} {
	return t.schema
}

// Execute looks up the identifier.
func (t *TranslateSearchTool) Execute(ctx context.Context, args json.RawMessage) (string, map[string]interface{}, error) {
	in, err := tools.DecodeArgs[translateSearchArgs](args)
	if err != nil {
		return "", nil, err
	}
	res, err := t.translator.Search(ctx, in.Identifier)
	if err != nil {
		return "", nil, err
	}
	return render(res)
}
