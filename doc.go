// Package draft is the composition root of the draft note editor.
//
// It wires a storage adapter, the auto-save engine and the note lifecycle
// manager into a Session. Edits are saved after a quiet period, on demand,
// when switching notes and when the session closes.
//
// Adapters:
//
//   - fs (default): one Markdown file with YAML frontmatter per note.
//   - sqlite: a single database file.
//   - memory: nothing is persisted.
//
// Usage:
//
//	s, err := draft.New(ctx, "./notes",
//		draft.WithAutoSaveDelay(2*time.Second),
//		draft.WithLogger(logger),
//	)
//	if err != nil {
//		return err
//	}
//	defer s.Close(ctx)
//
//	note, _ := s.Editor.Active()
//	s.Editor.UpdateContent(note.ID, "# Groceries\n\n- milk")
package draft
