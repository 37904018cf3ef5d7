package translate

import (
	"context"
	"encoding/json"

	"github.com/entrhq/zotbridge/pkg/tools"
	"github.com/entrhq/zotbridge/pkg/translation"
)

type translateWebArgs struct {
	URL string `json:"url" jsonschema_description:"URL to translate"`
}

// TranslateWebTool translates a web page into Zotero items.
type TranslateWebTool struct {
	translator Translator
	schema     map[string]interface{}
}

// NewTranslateWebTool creates a TranslateWebTool.
func NewTranslateWebTool(t Translator) *TranslateWebTool {
	return &TranslateWebTool{translator: t, schema: tools.GenerateSchema[translateWebArgs]()}
}

// Name returns the tool name.
func (t *TranslateWebTool) Name() string {
	return "translate_web"
}

// Description returns the tool description.
func (t *TranslateWebTool) Description() string {
	return "Translate a web page URL to Zotero items using the translation server. " +
		"Pages listing several records return status multiple_choices with a session; " +
		"pass the chosen items to translate_web_select."
}

// Schema returns the JSON schema for the tool's input parameters.
func (t *TranslateWebTool) Schema() map[string]interface{} {
	return t.schema
}

// Execute translates the URL.
func (t *TranslateWebTool) Execute(ctx context.Context, args json.RawMessage) (string, map[string]interface{}, error) {
	in, err := tools.DecodeArgs[translateWebArgs](args)
	if err != nil {
		return "", nil, err
	}
	res, err := t.translator.TranslateWeb(ctx, in.URL)
	if err != nil {
		return "", nil, err
	}
	return render(res)
}

type translateWebSelectArgs struct {
	Session string         `json:"session" jsonschema_description:"Session token from translate_web"`
	Items   map[string]any `json:"items" jsonschema_description:"Items map from translate_web with unwanted entries removed"`
	URL     string         `json:"url,omitempty" jsonschema_description:"Original URL (optional)"`
}

// TranslateWebSelectTool completes a multiple-choice web translation.
type TranslateWebSelectTool struct {
	translator Translator
	schema     map[string]interface{}
}

// NewTranslateWebSelectTool creates a TranslateWebSelectTool.
func NewTranslateWebSelectTool(t Translator) *TranslateWebSelectTool {
	return &TranslateWebSelectTool{translator: t, schema: tools.GenerateSchema[translateWebSelectArgs]()}
}

// Name returns the tool name.
func (t *TranslateWebSelectTool) Name() string {
	return "translate_web_select"
}

// Description returns the tool description.
func (t *TranslateWebSelectTool) Description() string {
	return "Complete a multi-choice web translation by posting the selected items map."
}

// Schema returns the JSON schema for the tool's input parameters.
func (t *TranslateWebSelectTool) Schema() map[string]interface{} {
	return t.schema
}

// Execute posts the selection back to the translation server.
func (t *TranslateWebSelectTool) Execute(ctx context.Context, args json.RawMessage) (string, map[string]interface{}, error) {
	in, err := tools.DecodeArgs[translateWebSelectArgs](args)
	if err != nil {
		return "", nil, err
	}
	items, err := tools.RawJSON(in.Items)
	if err != nil {
		return "", nil, err
	}
	res, err := t.translator.SelectWeb(ctx, translation.Selection{Session: in.Session, Items: items, URL: in.URL})
	if err != nil {
		return "", nil, err
	}
	return render(res)
}
