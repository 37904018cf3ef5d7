package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/entrhq/zotbridge/pkg/zotero"
	"github.com/entrhq/zotbridge/pkg/zotero/save"
)

var (
	saveSessionID     string
	saveNoAttachments bool
	saveNoResolvers   bool
	saveSnapshot      bool
	saveSnapshotURL   string
	saveSnapshotTitle string
	saveUserAgent     string
	saveCookie        string
	saveURI           string
	saveAttachURLs    []string
	saveAttachTitles  []string
	saveAttachMime    string
	saveAttachIndex   int
	saveNoteParent    int
)

var saveCmd = &cobra.Command{
	Use:   "save FILE",
	Short: "Save Zotero item JSON through the connector",
	Long: `Save reads Zotero item JSON (a single item or an array) from FILE, or from
stdin when FILE is "-", saves it through the Zotero connector and prints the
save result as JSON.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := readInput(cmd, args[0])
		if err != nil {
			return err
		}
		items, err := zotero.ParseItems(data)
		if err != nil {
			return err
		}

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		a, err := buildApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.saver.Save(cmd.Context(), items, saveOptions(cmd))
		if err != nil {
			return err
		}
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		return encoder.Encode(res)
	},
}

func init() {
	rootCmd.AddCommand(saveCmd)
	f := saveCmd.Flags()
	f.StringVar(&saveSessionID, "session-id", "", "Connector session ID (generated when empty)")
	f.BoolVar(&saveNoAttachments, "no-attachments", false, "Do not download PDF/EPUB attachments")
	f.BoolVar(&saveNoResolvers, "no-resolvers", false, "Do not ask Zotero's attachment resolvers")
	f.BoolVar(&saveSnapshot, "snapshot", false, "Attach an HTML snapshot of the page")
	f.StringVar(&saveSnapshotURL, "snapshot-url", "", "Page to snapshot (defaults to the first item's url)")
	f.StringVar(&saveSnapshotTitle, "snapshot-title", "", "Snapshot attachment title")
	f.StringVar(&saveUserAgent, "user-agent", "", "User-Agent for downloads")
	f.StringVar(&saveCookie, "cookie", "", "Cookie header for the save and downloads")
	f.StringVar(&saveURI, "uri", "", "Source URL of the items")
	f.StringSliceVar(&saveAttachURLs, "attachment-url", nil, "Extra attachment URL (repeatable)")
	f.StringSliceVar(&saveAttachTitles, "attachment-title", nil, "Title for the matching --attachment-url (repeatable)")
	f.StringVar(&saveAttachMime, "attachment-mime-type", "", "MIME type of --attachment-url (default application/pdf)")
	f.IntVar(&saveAttachIndex, "attachment-item-index", 0, "Index of the item receiving --attachment-url")
	f.IntVar(&saveNoteParent, "note-parent-index", 0, "Index of the item receiving unmatched notes")
}

func readInput(cmd *cobra.Command, name string) ([]byte, error) {
	if name == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("read items: %w", err)
	}
	return data, nil
}

// saveOptions maps the flags onto save.Options. Flags that were not set
// keep their defaults.
func saveOptions(cmd *cobra.Command) save.Options {
	flags := cmd.Flags()
	opts := save.Options{
		SessionID:          saveSessionID,
		SaveSnapshot:       saveSnapshot,
		SnapshotURL:        saveSnapshotURL,
		SnapshotTitle:      saveSnapshotTitle,
		UserAgent:          saveUserAgent,
		Cookie:             saveCookie,
		URI:                saveURI,
		AttachmentURLs:     saveAttachURLs,
		AttachmentTitles:   saveAttachTitles,
		AttachmentMimeType: saveAttachMime,
	}
	if flags.Changed("no-attachments") {
		v := !saveNoAttachments
		opts.SaveAttachments = &v
	}
	if flags.Changed("no-resolvers") {
		v := !saveNoResolvers
		opts.UseAttachmentResolvers = &v
	}
	if flags.Changed("attachment-item-index") {
		v := saveAttachIndex
		opts.AttachmentItemIndex = &v
	}
	if flags.Changed("note-parent-index") {
		v := saveNoteParent
		opts.NoteParentIndex = &v
	}
	return opts
}
