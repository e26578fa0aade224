package invoice

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/invopilot/invopilot/internal/models"
)

// textRenderer is the default Renderer: a plain-text statement suitable for
// an email body. Richer document generation (PDF, HTML templates) plugs in
// behind the Renderer interface.
type textRenderer struct {
	tmpl *template.Template
}

const invoiceTemplate = `{{if .Branding.CompanyName}}{{.Branding.CompanyName}}
{{end}}Invoice {{.Invoice.InvoiceNumber}}

Billed to: {{.Client.Name}}{{if .Client.Company}} ({{.Client.Company}}){{end}}
Issue date: {{.Invoice.IssueDate.Format "2006-01-02"}}{{if .Invoice.DueDate}}
Due date: {{.Invoice.DueDate.Format "2006-01-02"}}{{end}}

{{range .Invoice.LineItems}}  {{.Description}}  {{printf "%.2f" .Quantity}} x {{printf "%.2f" .UnitPrice}} = {{printf "%.2f" .Total}}
{{end}}
Total: {{printf "%.2f" .Invoice.Amount}} {{.Invoice.Currency}}
{{if .Invoice.Notes}}
{{.Invoice.Notes}}
{{end}}{{if .Branding.FooterNote}}
{{.Branding.FooterNote}}
{{end}}`

// NewTextRenderer creates the plain-text invoice renderer.
func NewTextRenderer() (Renderer, error) {
	tmpl, err := template.New("invoice").Parse(invoiceTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse invoice template: %w", err)
	}
	return &textRenderer{tmpl: tmpl}, nil
}

// Render produces the invoice body.
func (r *textRenderer) Render(inv *models.Invoice, client *models.Client, branding *models.Branding) (string, error) {
	if branding == nil {
		branding = &models.Branding{}
	}

	var buf bytes.Buffer
	err := r.tmpl.Execute(&buf, map[string]any{
		"Invoice":  inv,
		"Client":   client,
		"Branding": branding,
	})
	if err != nil {
		return "", fmt.Errorf("failed to render invoice: %w", err)
	}
	return buf.String(), nil
}
