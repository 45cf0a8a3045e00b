package cmd

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/skaznowiecki/finpilot-sanos/internal/domain"
	"github.com/skaznowiecki/finpilot-sanos/internal/invoice"
	"github.com/skaznowiecki/finpilot-sanos/internal/tags"
	"github.com/skaznowiecki/finpilot-sanos/internal/tui"
	"github.com/skaznowiecki/finpilot-sanos/internal/ux"
)

// AuthStatus is the structured form of 'auth status'.
type AuthStatus struct {
	Mode          string     `json:"mode" yaml:"mode"`
	Authenticated bool       `json:"authenticated" yaml:"authenticated"`
	Onboarded     bool       `json:"onboarded" yaml:"onboarded"`
	Email         string     `json:"email,omitempty" yaml:"email,omitempty"`
	Company       string     `json:"company,omitempty" yaml:"company,omitempty"`
	Party         string     `json:"party,omitempty" yaml:"party,omitempty"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty" yaml:"expires_at,omitempty"`
}

func statusView(s AuthStatus, styles tui.Styles) ux.View {
	return ux.View{
		Value: s,
		Render: func(bool) string {
			fields := []tui.Field{
				{Label: "Mode", Value: s.Mode},
				{Label: "Session", Value: styles.Check(s.Authenticated, "logged in", "logged out")},
				{Label: "Onboarding", Value: styles.Check(s.Onboarded, "complete", "pending")},
			}
			if s.Email != "" {
				fields = append(fields, tui.Field{Label: "Email", Value: s.Email})
			}
			if s.Company != "" {
				fields = append(fields, tui.Field{Label: "Company", Value: s.Company})
			}
			if s.Party != "" {
				fields = append(fields, tui.Field{Label: "Party", Value: s.Party})
			}
			if s.ExpiresAt != nil {
				fields = append(fields, tui.Field{Label: "Expires", Value: s.ExpiresAt.Local().Format(time.RFC1123)})
			}
			return strings.TrimRight(styles.RenderFields("finpilot session", fields), "\n")
		},
	}
}

func partyView(p *domain.Party, accounts []domain.BankAccount, styles tui.Styles) ux.View {
	value := struct {
		Party        *domain.Party        `json:"party" yaml:"party"`
		BankAccounts []domain.BankAccount `json:"bank_accounts" yaml:"bank_accounts"`
	}{p, accounts}

	return ux.View{
		Value: value,
		Render: func(noColor bool) string {
			fields := []tui.Field{
				{Label: "ID", Value: p.ID},
				{Label: "Name", Value: p.Name},
				{Label: "Tax ID", Value: fmt.Sprintf("%s %s", p.TaxIDType, p.TaxID)},
				{Label: "Type", Value: string(p.PartyType)},
				{Label: "Regimen", Value: string(domain.Deref(p.Regimen))},
				{Label: "Email", Value: domain.Deref(p.Email)},
				{Label: "Address", Value: domain.Deref(p.Address)},
				{Label: "Category", Value: domain.Deref(p.Category)},
			}
			out := styles.RenderFields("Party", fields)
			if len(accounts) > 0 {
				out += "\n" + bankAccountsTable(accounts).Text(noColor)
			}
			return strings.TrimRight(out, "\n")
		},
	}
}

func bankAccountsTable(accounts []domain.BankAccount) ux.Table {
	t := ux.Table{
		Headers: []string{"ID", "BANK", "ACCOUNT", "PRIMARY"},
		Source:  accounts,
	}
	for _, a := range accounts {
		t.Rows = append(t.Rows, []string{a.ID, domain.Deref(a.BankName), domain.Deref(a.AccountNumber), yesNo(a.IsPrimary)})
	}
	return t
}

func invoicesTable(page invoice.ListSnapshot) ux.Table {
	t := ux.Table{
		Headers: []string{"ID", "NUMBER", "DATE", "TOTAL", "STATUS", "STATE"},
		Source: struct {
			Items      []invoice.Invoice  `json:"items" yaml:"items"`
			Pagination invoice.Pagination `json:"pagination" yaml:"pagination"`
		}{page.Invoices, page.Pagination},
	}
	for _, inv := range page.Invoices {
		t.Rows = append(t.Rows, []string{
			inv.ID,
			strconv.FormatInt(inv.Number, 10),
			inv.Date,
			formatAmount(inv.Total),
			string(inv.Status),
			string(inv.InvoiceState),
		})
	}
	return t
}

func invoiceView(inv *invoice.Invoice, styles tui.Styles) ux.View {
	return ux.View{
		Value: inv,
		Render: func(noColor bool) string {
			fields := []tui.Field{
				{Label: "ID", Value: inv.ID},
				{Label: "Number", Value: strconv.FormatInt(inv.Number, 10)},
				{Label: "Type", Value: inv.InvoiceType},
				{Label: "Date", Value: inv.Date},
				{Label: "Subtotal", Value: formatAmount(inv.Subtotal)},
				{Label: "Tax", Value: formatAmount(inv.Tax)},
				{Label: "Total", Value: formatAmount(inv.Total)},
				{Label: "Status", Value: string(inv.Status)},
				{Label: "State", Value: string(inv.InvoiceState)},
			}
			if inv.DueDate != "" {
				fields = append(fields, tui.Field{Label: "Due", Value: inv.DueDate})
			}
			if inv.RejectReason != "" {
				fields = append(fields, tui.Field{Label: "Rejected", Value: styles.Error.Render(inv.RejectReason)})
			}
			out := styles.RenderFields(fmt.Sprintf("Invoice %d", inv.Number), fields)
			if len(inv.Items) > 0 {
				items := ux.Table{Headers: []string{"DESCRIPTION", "QTY", "UNIT", "SUBTOTAL"}}
				for _, it := range inv.Items {
					items.Rows = append(items.Rows, []string{
						it.Description,
						strconv.FormatFloat(it.Quantity, 'f', -1, 64),
						formatAmount(it.UnitPrice),
						formatAmount(it.Subtotal),
					})
				}
				out += "\n" + items.Text(noColor)
			}
			return strings.TrimRight(out, "\n")
		},
	}
}

func extractedView(data *invoice.ExtractedData, styles tui.Styles) string {
	fields := []tui.Field{
		{Label: "Type", Value: data.InvoiceType},
		{Label: "Date", Value: data.Date},
	}
	if data.Number != nil {
		fields = append(fields, tui.Field{Label: "Number", Value: strconv.FormatInt(*data.Number, 10)})
	}
	if data.Customer != nil {
		fields = append(fields, tui.Field{Label: "Customer", Value: data.Customer.Name})
	}
	if data.Totals != nil && data.Totals.Total != nil {
		fields = append(fields, tui.Field{Label: "Total", Value: formatAmount(*data.Totals.Total)})
	}
	return strings.TrimRight(styles.RenderFields("Extracted data", fields), "\n")
}

func commentsTable(comments []invoice.Comment) ux.Table {
	t := ux.Table{
		Headers: []string{"ID", "AUTHOR", "DATE", "MESSAGE", "FILES"},
		Source:  comments,
	}
	for _, c := range comments {
		msg := c.Message
		if c.IsDeleted {
			msg = c.DeletedMessage
		}
		t.Rows = append(t.Rows, []string{c.ID, c.Author.Name, c.CreatedAt, msg, strconv.Itoa(len(c.Attachments))})
	}
	return t
}

func tagsTable(list []tags.Tag) ux.Table {
	t := ux.Table{
		Headers: []string{"ID", "NAME", "TYPE", "COLOR"},
		Source:  list,
	}
	for _, tag := range list {
		color := ""
		if tag.Color != nil {
			color = *tag.Color
		}
		t.Rows = append(t.Rows, []string{tag.ID, tag.Name, string(tag.Type), color})
	}
	return t
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
