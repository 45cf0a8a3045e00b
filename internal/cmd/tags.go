package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/skaznowiecki/finpilot-sanos/internal/errors"
	"github.com/skaznowiecki/finpilot-sanos/internal/router"
	"github.com/skaznowiecki/finpilot-sanos/internal/tags"
	"github.com/skaznowiecki/finpilot-sanos/internal/tui"
)

var tagsCmd = &cobra.Command{
	Use:   "tags",
	Short: "Manage company tags",
	Long: `Manage the tags of your company. Invoice tags act as business units and
every uploaded invoice carries one. Party tags group parties.

Listings come from a local cache that is reused for five minutes; pass
--refresh to fetch them again.`,
}

var tagsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tags of one type",
	Args:  cobra.NoArgs,
	RunE:  runTagsList,
}

var tagsCreateCmd = &cobra.Command{
	Use:     "create",
	Short:   "Create a tag",
	Example: `  finpilot tags create --name Logística --color "#2f80ed" --type invoice`,
	Args:    cobra.NoArgs,
	RunE:    runTagsCreate,
}

var tagsUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Rename or recolor a tag",
	Args:  cobra.ExactArgs(1),
	RunE:  runTagsUpdate,
}

var tagsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a tag",
	Args:  cobra.ExactArgs(1),
	RunE:  runTagsDelete,
}

var tagsAssignCmd = &cobra.Command{
	Use:   "assign <tag-id>",
	Short: "Tag an invoice or a party",
	Example: `  finpilot tags assign tag-123 --invoice inv-42
  finpilot tags assign tag-9 --party party-7`,
	Args: cobra.ExactArgs(1),
	RunE: runTagsAssign,
}

var tagsUnassignCmd = &cobra.Command{
	Use:   "unassign <tag-id>",
	Short: "Remove a tag from an invoice or a party",
	Args:  cobra.ExactArgs(1),
	RunE:  runTagsUnassign,
}

var (
	tagsType    string
	tagsRefresh bool
	tagsName    string
	tagsColor   string
	tagsYes     bool
	tagsInvoice string
	tagsParty   string
)

func init() {
	tagsListCmd.Flags().StringVarP(&tagsType, "type", "t", "invoice", "tag type (invoice or party)")
	tagsListCmd.Flags().BoolVar(&tagsRefresh, "refresh", false, "ignore the cache")

	tagsCreateCmd.Flags().StringVar(&tagsName, "name", "", "tag name")
	tagsCreateCmd.Flags().StringVar(&tagsColor, "color", "", "display color")
	tagsCreateCmd.Flags().StringVarP(&tagsType, "type", "t", "invoice", "tag type (invoice or party)")

	tagsUpdateCmd.Flags().StringVar(&tagsName, "name", "", "new name")
	tagsUpdateCmd.Flags().StringVar(&tagsColor, "color", "", "new color")

	tagsDeleteCmd.Flags().BoolVarP(&tagsYes, "yes", "y", false, "do not ask for confirmation")

	for _, c := range []*cobra.Command{tagsAssignCmd, tagsUnassignCmd} {
		c.Flags().StringVar(&tagsInvoice, "invoice", "", "invoice ID")
		c.Flags().StringVar(&tagsParty, "party", "", "party ID")
		c.MarkFlagsMutuallyExclusive("invoice", "party")
		c.MarkFlagsOneRequired("invoice", "party")
	}

	tagsCmd.AddCommand(tagsListCmd)
	tagsCmd.AddCommand(tagsCreateCmd)
	tagsCmd.AddCommand(tagsUpdateCmd)
	tagsCmd.AddCommand(tagsDeleteCmd)
	tagsCmd.AddCommand(tagsAssignCmd)
	tagsCmd.AddCommand(tagsUnassignCmd)
	rootCmd.AddCommand(tagsCmd)
}

// parseTagType accepts the type in any case.
func parseTagType(s string) (tags.Type, error) {
	switch tags.Type(strings.ToUpper(strings.TrimSpace(s))) {
	case tags.TypeInvoice:
		return tags.TypeInvoice, nil
	case tags.TypeParty:
		return tags.TypeParty, nil
	}
	return "", InvalidValueError("type", fmt.Errorf("%q is neither invoice nor party", s))
}

// refreshTags drops stale entries after a mutation. The mutation already
// succeeded, so a failed refetch is only logged.
func (e *commandEnv) refreshTags(ctx context.Context, t tags.Type) {
	if _, err := e.app.TagCache.Get(ctx, t, true); err != nil {
		e.logger.WithError(err).Warn("tag cache refresh failed", "type", string(t))
	}
}

func runTagsList(cmd *cobra.Command, _ []string) error {
	env, err := newCommandEnv(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	t, err := parseTagType(tagsType)
	if err != nil {
		return err
	}

	return env.guarded(cmd.Context(), env.routePath(router.Tags, nil), func(ctx context.Context, _ router.Target) error {
		list, err := env.app.TagCache.Get(ctx, t, tagsRefresh)
		if err != nil {
			return LocalizedError(env.app.TagCache.Err(), err)
		}
		if len(list) == 0 {
			env.notice("No %s tags yet", strings.ToLower(string(t)))
		}
		return env.print(tagsTable(list))
	})
}

func runTagsCreate(cmd *cobra.Command, _ []string) error {
	env, err := newCommandEnv(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	t, err := parseTagType(tagsType)
	if err != nil {
		return err
	}
	name := strings.TrimSpace(tagsName)
	if name == "" {
		if !env.interactive {
			return MissingInputError("name")
		}
		if name, err = tui.PromptForString(tui.Prompt{Message: "Tag name", Required: true}); err != nil {
			return err
		}
	}
	req := tags.CreateRequest{Name: name, Type: t}
	if tagsColor != "" {
		req.Color = &tagsColor
	}

	return env.guarded(cmd.Context(), env.routePath(router.Tags, nil), func(ctx context.Context, _ router.Target) error {
		tag, err := env.app.Tags.Create(ctx, req)
		if err != nil {
			return err
		}
		env.refreshTags(ctx, t)
		env.notice("%s", env.styles.Success.Render("Tag created"))
		return env.print(tagsTable([]tags.Tag{*tag}))
	})
}

func runTagsUpdate(cmd *cobra.Command, args []string) error {
	env, err := newCommandEnv(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	var req tags.UpdateRequest
	if cmd.Flags().Changed("name") {
		req.Name = &tagsName
	}
	if cmd.Flags().Changed("color") {
		req.Color = &tagsColor
	}
	if req.Name == nil && req.Color == nil {
		return errors.New(errors.ErrCodeValidation, "nothing to update").
			WithSuggestion("Pass --name, --color or both")
	}

	return env.guarded(cmd.Context(), env.routePath(router.Tags, nil), func(ctx context.Context, _ router.Target) error {
		tag, err := env.app.Tags.Update(ctx, args[0], req)
		if err != nil {
			return err
		}
		env.refreshTags(ctx, tag.Type)
		env.notice("%s", env.styles.Success.Render("Tag updated"))
		return env.print(tagsTable([]tags.Tag{*tag}))
	})
}

func runTagsDelete(cmd *cobra.Command, args []string) error {
	env, err := newCommandEnv(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	id := args[0]
	if !tagsYes {
		if !env.interactive {
			return MissingInputError("yes")
		}
		ok, err := tui.PromptForConfirmation(fmt.Sprintf("Delete tag %s? It is removed from every invoice and party.", id), false)
		if err != nil {
			return err
		}
		if !ok {
			env.notice("Cancelled")
			return nil
		}
	}

	return env.guarded(cmd.Context(), env.routePath(router.Tags, nil), func(ctx context.Context, _ router.Target) error {
		if err := env.app.Tags.Delete(ctx, id); err != nil {
			return err
		}
		// The type of a deleted tag is unknown here.
		env.app.TagCache.Clear(ctx)
		env.notice("%s", env.styles.Success.Render("Tag deleted"))
		return nil
	})
}

func runTagsAssign(cmd *cobra.Command, args []string) error {
	env, err := newCommandEnv(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	tagID := args[0]
	if tagsInvoice != "" {
		return env.guarded(cmd.Context(), invoicePath(env, tagsInvoice), func(ctx context.Context, to router.Target) error {
			if err := env.app.TagCache.AssignToInvoice(ctx, to.Param("id"), tagID); err != nil {
				return LocalizedError(env.app.TagCache.Err(), err)
			}
			env.notice("%s", env.styles.Success.Render(fmt.Sprintf("Tagged invoice %s", to.Param("id"))))
			return nil
		})
	}

	return env.guarded(cmd.Context(), env.routePath(router.Tags, nil), func(ctx context.Context, _ router.Target) error {
		if _, err := env.app.Tags.AssignToParty(ctx, tagsParty, tagID); err != nil {
			return err
		}
		env.notice("%s", env.styles.Success.Render(fmt.Sprintf("Tagged party %s", tagsParty)))
		return nil
	})
}

func runTagsUnassign(cmd *cobra.Command, args []string) error {
	env, err := newCommandEnv(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	tagID := args[0]
	if tagsInvoice != "" {
		return env.guarded(cmd.Context(), invoicePath(env, tagsInvoice), func(ctx context.Context, to router.Target) error {
			if err := env.app.Tags.UnassignFromInvoice(ctx, to.Param("id"), tagID); err != nil {
				return err
			}
			env.notice("Removed tag %s from invoice %s", tagID, to.Param("id"))
			return nil
		})
	}

	return env.guarded(cmd.Context(), env.routePath(router.Tags, nil), func(ctx context.Context, _ router.Target) error {
		if err := env.app.Tags.UnassignFromParty(ctx, tagsParty, tagID); err != nil {
			return err
		}
		env.notice("Removed tag %s from party %s", tagID, tagsParty)
		return nil
	})
}
