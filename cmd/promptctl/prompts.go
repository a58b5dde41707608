package main

import (
	"fmt"
	"os"

	"promptstore/application/commands"
	"promptstore/application/queries"
	querybus "promptstore/application/queries/bus"
	"promptstore/domain/core/entities"

	"github.com/spf13/cobra"
)

// lineageFlags are the two ids every lineage command takes
type lineageFlags struct {
	userID   string
	promptID string
}

func (l *lineageFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&l.userID, "user", "", "owner of the prompt lineage")
	cmd.Flags().StringVar(&l.promptID, "prompt", "", "prompt id within the user's namespace")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("prompt")
}

// contentFlags read prompt text inline or from a file
type contentFlags struct {
	content string
	file    string
}

func (c *contentFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&c.content, "content", "", "prompt content")
	cmd.Flags().StringVar(&c.file, "content-file", "", "read prompt content from a file")
	cmd.MarkFlagsMutuallyExclusive("content", "content-file")
	cmd.MarkFlagsOneRequired("content", "content-file")
}

func (c *contentFlags) value() (string, error) {
	if c.file == "" {
		return c.content, nil
	}
	raw, err := os.ReadFile(c.file)
	if err != nil {
		return "", fmt.Errorf("failed to read content file: %w", err)
	}
	return string(raw), nil
}

func (a *app) print(cmd *cobra.Command, data any) error {
	return render(cmd.OutOrStdout(), a.outputFormat, data)
}

func (a *app) createCmd() *cobra.Command {
	var (
		lineage lineageFlags
		content contentFlags
		input   commands.CreatePromptCommand
		status  string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Start a new prompt lineage",
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := content.value()
			if err != nil {
				return err
			}
			input.UserID = lineage.userID
			input.PromptID = lineage.promptID
			input.Content = text
			input.Status = entities.Status(status)

			result, err := a.container.CommandBus.Send(cmd.Context(), input)
			if err != nil {
				return err
			}
			return a.print(cmd, result)
		},
	}

	lineage.register(cmd)
	content.register(cmd)
	cmd.Flags().StringVar(&input.Title, "title", "", "prompt title")
	cmd.Flags().StringVar(&input.Description, "description", "", "prompt description")
	cmd.Flags().StringSliceVar(&input.Tags, "tags", nil, "comma separated tags")
	cmd.Flags().StringVar(&input.Version, "initial-version", "", "initial version (default v1.0.0)")
	cmd.Flags().StringVar(&status, "status", "", "draft, published or archived")
	cmd.Flags().StringVar(&input.CreatedBy, "created-by", "", "author")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("created-by")
	return cmd
}

func (a *app) newVersionCmd() *cobra.Command {
	var (
		lineage   lineageFlags
		content   contentFlags
		updatedBy string
		changelog string
	)

	cmd := &cobra.Command{
		Use:   "new-version",
		Short: "Supersede the latest version with new content",
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := content.value()
			if err != nil {
				return err
			}
			result, err := a.container.CommandBus.Send(cmd.Context(), commands.CreateNewVersionCommand{
				UserID:    lineage.userID,
				PromptID:  lineage.promptID,
				Content:   text,
				UpdatedBy: updatedBy,
				Changelog: changelog,
			})
			if err != nil {
				return err
			}
			return a.print(cmd, result)
		},
	}

	lineage.register(cmd)
	content.register(cmd)
	cmd.Flags().StringVar(&updatedBy, "updated-by", "", "author of the new version")
	cmd.Flags().StringVar(&changelog, "changelog", "", "change description for the superseded version")
	_ = cmd.MarkFlagRequired("updated-by")
	return cmd
}

func (a *app) getCmd() *cobra.Command {
	var (
		userID   string
		promptID string
		version  string
		id       string
	)

	cmd := &cobra.Command{
		Use:   "get",
		Short: "Show the latest version, one version, or a document by id",
		RunE: func(cmd *cobra.Command, args []string) error {
			var q querybus.Query
			switch {
			case id != "":
				q = queries.GetPromptByIDQuery{ID: id}
			case version != "":
				q = queries.GetPromptVersionQuery{UserID: userID, PromptID: promptID, Version: version}
			default:
				q = queries.GetLatestPromptQuery{UserID: userID, PromptID: promptID}
			}

			result, err := a.container.QueryBus.Ask(cmd.Context(), q)
			if err != nil {
				return err
			}
			if prompt, _ := result.(*entities.Prompt); prompt == nil {
				return fmt.Errorf("prompt not found")
			}
			return a.print(cmd, result)
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "owner of the prompt lineage")
	cmd.Flags().StringVar(&promptID, "prompt", "", "prompt id within the user's namespace")
	cmd.Flags().StringVar(&version, "version", "", "a specific version, e.g. v1.0.2")
	cmd.Flags().StringVar(&id, "id", "", "document id")
	cmd.MarkFlagsRequiredTogether("user", "prompt")
	cmd.MarkFlagsOneRequired("prompt", "id")
	cmd.MarkFlagsMutuallyExclusive("id", "prompt")
	return cmd
}

func (a *app) versionsCmd() *cobra.Command {
	var lineage lineageFlags

	cmd := &cobra.Command{
		Use:   "versions",
		Short: "List every version of a lineage, highest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := a.container.QueryBus.Ask(cmd.Context(), queries.GetAllPromptVersionsQuery{
				UserID:   lineage.userID,
				PromptID: lineage.promptID,
			})
			if err != nil {
				return err
			}
			return a.print(cmd, result)
		},
	}

	lineage.register(cmd)
	return cmd
}

func (a *app) listCmd() *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the latest prompt of each lineage of a user, or every document",
		RunE: func(cmd *cobra.Command, args []string) error {
			var q querybus.Query = queries.FetchAllPromptsQuery{}
			if userID != "" {
				q = queries.GetUserPromptsQuery{UserID: userID}
			}
			result, err := a.container.QueryBus.Ask(cmd.Context(), q)
			if err != nil {
				return err
			}
			return a.print(cmd, result)
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "only the latest prompts of this user")
	return cmd
}

func (a *app) updateCmd() *cobra.Command {
	var (
		lineage     lineageFlags
		id          string
		title       string
		description string
		tags        []string
		status      string
		updatedBy   string
	)

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Change title, description, tags or status of one document",
		RunE: func(cmd *cobra.Command, args []string) error {
			var update entities.MetadataUpdate
			if cmd.Flags().Changed("title") {
				update.Title = &title
			}
			if cmd.Flags().Changed("description") {
				update.Description = &description
			}
			if cmd.Flags().Changed("tags") {
				update.Tags = &tags
			}
			if cmd.Flags().Changed("status") {
				s := entities.Status(status)
				update.Status = &s
			}

			result, err := a.container.CommandBus.Send(cmd.Context(), commands.UpdatePromptMetadataCommand{
				ID:        id,
				UserID:    lineage.userID,
				PromptID:  lineage.promptID,
				Update:    update,
				UpdatedBy: updatedBy,
			})
			if err != nil {
				return err
			}
			return a.print(cmd, result)
		},
	}

	lineage.register(cmd)
	cmd.Flags().StringVar(&id, "id", "", "document id")
	cmd.Flags().StringVar(&title, "title", "", "new title")
	cmd.Flags().StringVar(&description, "description", "", "new description")
	cmd.Flags().StringSliceVar(&tags, "tags", nil, "new comma separated tags")
	cmd.Flags().StringVar(&status, "status", "", "draft, published or archived")
	cmd.Flags().StringVar(&updatedBy, "updated-by", "", "author of the change")
	_ = cmd.MarkFlagRequired("id")
	_ = cmd.MarkFlagRequired("updated-by")
	return cmd
}

func (a *app) archiveCmd() *cobra.Command {
	var (
		lineage   lineageFlags
		id        string
		updatedBy string
	)

	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Mark one document archived",
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := a.container.CommandBus.Send(cmd.Context(), commands.ArchivePromptCommand{
				ID:        id,
				UserID:    lineage.userID,
				PromptID:  lineage.promptID,
				UpdatedBy: updatedBy,
			})
			if err != nil {
				return err
			}
			return a.print(cmd, result)
		},
	}

	lineage.register(cmd)
	cmd.Flags().StringVar(&id, "id", "", "document id")
	cmd.Flags().StringVar(&updatedBy, "updated-by", "", "author of the change")
	_ = cmd.MarkFlagRequired("id")
	_ = cmd.MarkFlagRequired("updated-by")
	return cmd
}

func (a *app) deleteCmd() *cobra.Command {
	var (
		lineage lineageFlags
		id      string
	)

	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Hard delete one document; run reconcile if it was the latest",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := a.container.CommandBus.Send(cmd.Context(), commands.DeletePromptCommand{
				ID:       id,
				UserID:   lineage.userID,
				PromptID: lineage.promptID,
			})
			if err != nil {
				return err
			}
			return a.print(cmd, map[string]string{"deleted": id})
		},
	}

	lineage.register(cmd)
	cmd.Flags().StringVar(&id, "id", "", "document id")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}
