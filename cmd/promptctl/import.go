package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"promptstore/application/commands"
	"promptstore/domain/core/entities"

	"github.com/spf13/cobra"
)

func (a *app) importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.json>",
		Short: "Validate serialized prompt documents and start a lineage from each",
		Long: `import reads one prompt document, or a JSON array of them, checks each
against the document schema and field rules, and creates a new lineage seeded
with its title, content, version and history. Ids and timestamps are assigned
fresh. Nothing is written unless every document validates.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[0], err)
			}

			docs, err := splitDocuments(raw)
			if err != nil {
				return err
			}

			validated := make([]*entities.Prompt, 0, len(docs))
			for i, doc := range docs {
				prompt, err := a.container.Validator.ValidateDocument(doc)
				if err != nil {
					return fmt.Errorf("document %d: %w", i, err)
				}
				validated = append(validated, prompt)
			}

			created := make([]any, 0, len(validated))
			for _, p := range validated {
				result, err := a.container.CommandBus.Send(cmd.Context(), commands.CreatePromptCommand{
					UserID:         p.UserID,
					PromptID:       p.PromptID,
					Title:          p.Title,
					Description:    p.Description,
					Tags:           p.Tags,
					Version:        p.Version,
					Content:        p.Content,
					VersionHistory: p.VersionHistory,
					Status:         p.Status,
					CreatedBy:      p.CreatedBy,
					UpdatedBy:      p.UpdatedBy,
				})
				if err != nil {
					return fmt.Errorf("import %s/%s: %w", p.UserID, p.PromptID, err)
				}
				created = append(created, result)
			}
			return a.print(cmd, created)
		},
	}
}

// splitDocuments accepts a single object or an array of objects
func splitDocuments(raw []byte) ([]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var docs []json.RawMessage
		if err := json.Unmarshal(trimmed, &docs); err != nil {
			return nil, fmt.Errorf("invalid document array: %w", err)
		}
		return docs, nil
	}
	return []json.RawMessage{trimmed}, nil
}
