package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/skaznowiecki/finpilot-sanos/internal/errors"
	"github.com/skaznowiecki/finpilot-sanos/internal/invoice"
	"github.com/skaznowiecki/finpilot-sanos/internal/router"
	"github.com/skaznowiecki/finpilot-sanos/internal/tags"
	"github.com/skaznowiecki/finpilot-sanos/internal/tui"
	"github.com/skaznowiecki/finpilot-sanos/internal/ux"
)

var invoicesCmd = &cobra.Command{
	Use:     "invoices",
	Aliases: []string{"invoice", "inv"},
	Short:   "List, upload and discuss your invoices",
}

var invoicesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List invoices page by page",
	Args:  cobra.NoArgs,
	RunE:  runInvoicesList,
}

var invoicesShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one invoice",
	Args:  cobra.ExactArgs(1),
	RunE:  runInvoicesShow,
}

var invoicesUploadCmd = &cobra.Command{
	Use:   "upload <file>",
	Short: "Upload a document and create an invoice from it",
	Long: `Upload a PDF, PNG or JPEG document (10MB at most), let the server read
the invoice data from it, and create the invoice.

Values the server could not read fall back to the flags: --amount fills
missing totals and --description names the line item. Every invoice needs a
business unit tag; pass --tag or pick one when prompted.`,
	Example: `  finpilot invoices upload factura.pdf --tag tag-123
  finpilot invoices upload scan.jpg --tag tag-123 --amount 15000 --description "Consultoría" --yes`,
	Args: cobra.ExactArgs(1),
	RunE: runInvoicesUpload,
}

var invoicesDownloadCmd = &cobra.Command{
	Use:   "download <id>",
	Short: "Print a download link for an invoice document",
	Args:  cobra.ExactArgs(1),
	RunE:  runInvoicesDownload,
}

var invoicesCommentsCmd = &cobra.Command{
	Use:   "comments <id>",
	Short: "List the comments of an invoice",
	Args:  cobra.ExactArgs(1),
	RunE:  runInvoicesComments,
}

var invoicesCommentCmd = &cobra.Command{
	Use:     "comment <id>",
	Short:   "Comment on an invoice",
	Example: `  finpilot invoices comment inv-42 --message "Adjunto la nota de crédito" --attach nota.pdf`,
	Args:    cobra.ExactArgs(1),
	RunE:    runInvoicesComment,
}

var (
	invoicesPage  int
	invoicesLimit int

	uploadTag         string
	uploadNumber      int64
	uploadDate        string
	uploadAmount      float64
	uploadDescription string
	uploadYes         bool

	downloadAttachment string

	commentMessage string
	commentAttach  []string
)

func init() {
	invoicesListCmd.Flags().IntVar(&invoicesPage, "page", 1, "page to show")
	invoicesListCmd.Flags().IntVar(&invoicesLimit, "limit", invoice.DefaultPageSize, "invoices per page")

	invoicesUploadCmd.Flags().StringVar(&uploadTag, "tag", "", "business unit tag ID")
	invoicesUploadCmd.Flags().Int64Var(&uploadNumber, "number", 0, "invoice number when it cannot be read")
	invoicesUploadCmd.Flags().StringVar(&uploadDate, "date", "", "invoice date (YYYY-MM-DD) when it cannot be read")
	invoicesUploadCmd.Flags().Float64Var(&uploadAmount, "amount", 0, "amount used for totals that cannot be read")
	invoicesUploadCmd.Flags().StringVar(&uploadDescription, "description", "", "line item description")
	invoicesUploadCmd.Flags().BoolVarP(&uploadYes, "yes", "y", false, "create without asking for confirmation")

	invoicesDownloadCmd.Flags().StringVar(&downloadAttachment, "attachment", "", "download this comment attachment instead")

	invoicesCommentCmd.Flags().StringVarP(&commentMessage, "message", "m", "", "comment text")
	invoicesCommentCmd.Flags().StringSliceVar(&commentAttach, "attach", nil, "file to attach (repeatable)")

	invoicesCmd.AddCommand(invoicesListCmd)
	invoicesCmd.AddCommand(invoicesShowCmd)
	invoicesCmd.AddCommand(invoicesUploadCmd)
	invoicesCmd.AddCommand(invoicesDownloadCmd)
	invoicesCmd.AddCommand(invoicesCommentsCmd)
	invoicesCmd.AddCommand(invoicesCommentCmd)
	rootCmd.AddCommand(invoicesCmd)
}

func runInvoicesList(cmd *cobra.Command, _ []string) error {
	env, err := newCommandEnv(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	list := env.app.InvoiceList
	list.SetLimit(invoicesLimit)

	return env.guarded(cmd.Context(), env.routePath(router.Invoices, nil), func(ctx context.Context, _ router.Target) error {
		list.Fetch(ctx)
		if msg := list.Err(); msg != "" {
			return errors.New(errors.ErrCodeAPIResponse, msg)
		}
		// The first page tells how many pages exist.
		if invoicesPage != 1 {
			if !list.GoToPage(ctx, invoicesPage) {
				total := list.Snapshot().Pagination.TotalPages
				return errors.New(errors.ErrCodeValidation,
					fmt.Sprintf("page %d is out of range (1-%d)", invoicesPage, max(total, 1)))
			}
			if msg := list.Err(); msg != "" {
				return errors.New(errors.ErrCodeAPIResponse, msg)
			}
		}

		snap := list.Snapshot()
		if list.IsEmpty() {
			env.notice("No invoices yet. Upload one with 'finpilot invoices upload <file>'.")
		} else {
			p := snap.Pagination
			env.notice("Page %d of %d (%d invoices)", p.Page, max(p.TotalPages, 1), p.Total)
		}
		return env.print(invoicesTable(snap))
	})
}

func invoicePath(env *commandEnv, id string) string {
	return env.routePath(router.InvoiceDetail, map[string]string{"id": id})
}

func runInvoicesShow(cmd *cobra.Command, args []string) error {
	env, err := newCommandEnv(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	return env.guarded(cmd.Context(), invoicePath(env, args[0]), func(ctx context.Context, to router.Target) error {
		inv, err := env.app.Invoices.GetInvoice(ctx, to.Param("id"))
		if err != nil {
			return err
		}
		return env.print(invoiceView(inv, env.styles))
	})
}

func runInvoicesDownload(cmd *cobra.Command, args []string) error {
	env, err := newCommandEnv(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	return env.guarded(cmd.Context(), invoicePath(env, args[0]), func(ctx context.Context, to router.Target) error {
		var link string
		var err error
		if downloadAttachment != "" {
			link, err = env.app.Invoices.CommentAttachmentDownloadURL(ctx, downloadAttachment)
		} else {
			link, err = env.app.InvoiceList.Download(ctx, to.Param("id"))
		}
		if err != nil {
			return err
		}
		return env.print(ux.View{
			Value:  invoice.DownloadURL{URL: link},
			Render: func(bool) string { return link },
		})
	})
}

func runInvoicesComments(cmd *cobra.Command, args []string) error {
	env, err := newCommandEnv(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	return env.guarded(cmd.Context(), invoicePath(env, args[0]), func(ctx context.Context, to router.Target) error {
		comments, err := env.app.Comments.List(ctx, to.Param("id"))
		if err != nil {
			return err
		}
		return env.print(commentsTable(comments))
	})
}

func runInvoicesComment(cmd *cobra.Command, args []string) error {
	env, err := newCommandEnv(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	message := commentMessage
	if message == "" {
		if !env.interactive {
			return MissingInputError("message")
		}
		if message, err = tui.PromptForString(tui.Prompt{Message: "Comment", Required: true}); err != nil {
			return err
		}
	}

	docs := make([]*invoice.Document, 0, len(commentAttach))
	for _, path := range commentAttach {
		doc, err := invoice.OpenDocument(path)
		if err != nil {
			return err
		}
		docs = append(docs, doc)
	}

	return env.guarded(cmd.Context(), invoicePath(env, args[0]), func(ctx context.Context, to router.Target) error {
		var comment *invoice.Comment
		err := tui.Wait(ctx, "Posting comment", func(ctx context.Context) error {
			var err error
			comment, err = env.app.Comments.Post(ctx, to.Param("id"), message, docs)
			return err
		})
		if err != nil {
			return err
		}
		env.notice("%s", env.styles.Success.Render("Comment posted"))
		return env.print(commentsTable([]invoice.Comment{*comment}))
	})
}

func runInvoicesUpload(cmd *cobra.Command, args []string) error {
	env, err := newCommandEnv(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	doc, err := invoice.OpenDocument(args[0])
	if err != nil {
		return err
	}

	return env.guarded(cmd.Context(), env.routePath(router.InvoiceUpload, nil), func(ctx context.Context, _ router.Target) error {
		upload := env.app.Upload
		upload.Reset()
		if err := upload.SelectFile(doc); err != nil {
			return err
		}

		var data *invoice.ExtractedData
		err := tui.Wait(ctx, "Uploading and reading "+doc.Name, func(ctx context.Context) error {
			var err error
			data, err = upload.UploadAndExtract(ctx)
			return err
		})
		if err != nil {
			return LocalizedError(upload.Snapshot().Err, err)
		}
		if env.cc.Format == "text" {
			env.notice("%s", extractedView(data, env.styles))
		}

		form, err := env.uploadForm(ctx, cmd, data)
		if err != nil {
			return err
		}

		if !uploadYes && env.interactive {
			ok, err := tui.PromptForConfirmation("Create the invoice?", true)
			if err != nil {
				return err
			}
			if !ok {
				env.notice("Cancelled; nothing was created")
				return nil
			}
		}

		inv, err := upload.CreateFromData(ctx, form)
		if err != nil {
			return LocalizedError(upload.Snapshot().Err, err)
		}
		upload.Reset()
		env.notice("%s", env.styles.Success.Render(fmt.Sprintf("Invoice %d created", inv.Number)))
		return env.print(invoiceView(inv, env.styles))
	})
}

// uploadForm merges the extracted values with the flags. Flags win when
// set explicitly.
func (e *commandEnv) uploadForm(ctx context.Context, cmd *cobra.Command, data *invoice.ExtractedData) (invoice.FormData, error) {
	form := invoice.FormData{
		Date:        data.Date,
		Description: uploadDescription,
		TagID:       uploadTag,
	}
	if data.Number != nil {
		form.Number = *data.Number
	}
	if data.Totals != nil && data.Totals.Total != nil {
		form.Amount = *data.Totals.Total
	}

	flags := cmd.Flags()
	if flags.Changed("number") {
		form.Number = uploadNumber
	}
	if flags.Changed("date") {
		form.Date = uploadDate
	}
	if flags.Changed("amount") {
		form.Amount = uploadAmount
	}

	if form.TagID == "" {
		if !e.interactive {
			return form, MissingInputError("tag")
		}
		tagID, err := e.promptBusinessUnit(ctx)
		if err != nil {
			return form, err
		}
		form.TagID = tagID
	}
	return form, nil
}

// promptBusinessUnit lets the user pick one of the cached invoice tags.
func (e *commandEnv) promptBusinessUnit(ctx context.Context) (string, error) {
	list, err := e.app.TagCache.Get(ctx, tags.TypeInvoice, false)
	if err != nil {
		return "", LocalizedError(e.app.TagCache.Err(), err)
	}
	if len(list) == 0 {
		return "", errors.New(errors.ErrCodeValidation, "no business unit tags exist").
			WithSuggestion("Create one with 'finpilot tags create --type INVOICE --name <name>'")
	}

	options := make([]tui.Option, 0, len(list))
	for _, t := range list {
		options = append(options, tui.Option{Label: t.Name, Value: t.ID})
	}
	return tui.PromptForSelect("Business unit", options)
}
