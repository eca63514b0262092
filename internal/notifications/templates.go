package notifications

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	texttemplate "text/template"

	"github.com/angelmondragon/threadhouse-backend/pkg/enums"
	"github.com/angelmondragon/threadhouse-backend/pkg/mailer"
)

type emailTemplate struct {
	subject *texttemplate.Template
	body    *template.Template
}

const orderLinesPartial = `{{define "lines"}}<table>
<tr><th>Item</th><th>Size</th><th>Color</th><th>Qty</th><th>Total</th></tr>
{{range .Lines}}<tr><td>{{.Name}}{{if .GiftWrapping}} (gift wrapped){{end}}</td><td>{{.Size}}</td><td>{{.Color}}</td><td>{{.Quantity}}</td><td>{{.LineTotal}}</td></tr>
{{end}}</table>{{end}}`

var templates = map[enums.EmailKind]emailTemplate{
	enums.EmailKindOrderPlaced: mustTemplate(
		`Order {{index .Vars "order_id"}} confirmed`,
		`<p>Hi {{index .Vars "customer_name"}},</p>
<p>Thanks for shopping with Threadhouse. Your order was placed on {{index .Vars "placed_at"}}.</p>
{{template "lines" .}}
<p>Subtotal: {{index .Vars "subtotal"}}<br>Discount: {{index .Vars "discount"}}<br>Shipping: {{index .Vars "shipping"}}<br>Taxes: {{index .Vars "taxes"}}<br><strong>Total: {{index .Vars "total"}}</strong></p>
<p>Payment method: {{index .Vars "payment_method"}}</p>`,
	),
	enums.EmailKindOrderStatus: mustTemplate(
		`Order {{index .Vars "order_id"}} is now {{index .Vars "status"}}`,
		`<p>Hi {{index .Vars "customer_name"}},</p>
<p>Your order {{index .Vars "order_id"}} is now <strong>{{index .Vars "status"}}</strong>.</p>
{{template "lines" .}}
<p>Total: {{index .Vars "total"}}</p>`,
	),
	enums.EmailKindOrderPaid: mustTemplate(
		`Payment received for order {{index .Vars "order_id"}}`,
		`<p>Hi {{index .Vars "customer_name"}},</p>
<p>We received your payment of {{index .Vars "total"}} for order {{index .Vars "order_id"}}.</p>`,
	),
	enums.EmailKindPasswordReset: mustTemplate(
		`Your temporary Threadhouse password`,
		`<p>Hi {{index .Vars "first_name"}},</p>
<p>Your temporary password is <code>{{index .Vars "temp_password"}}</code>. Sign in and change it from your profile.</p>`,
	),
	enums.EmailKindCustomStyle: mustTemplate(
		`We received your custom {{index .Vars "product_name"}} design`,
		`<p>Hi {{index .Vars "first_name"}},</p>
<p>Your design request {{index .Vars "request_id"}} for {{index .Vars "product_name"}} is in our queue. We will email you when it moves forward.</p>`,
	),
}

func mustTemplate(subject, body string) emailTemplate {
	return emailTemplate{
		subject: texttemplate.Must(texttemplate.New("subject").Option("missingkey=zero").Parse(subject)),
		body:    template.Must(template.Must(template.New("body").Parse(orderLinesPartial)).Parse(body)),
	}
}

// Render turns a job into a deliverable message.
func Render(job Job) (mailer.Message, error) {
	tmpl, ok := templates[job.Kind]
	if !ok {
		return mailer.Message{}, fmt.Errorf("no template for email kind %q", job.Kind)
	}

	var subject bytes.Buffer
	if err := tmpl.subject.Execute(&subject, job); err != nil {
		return mailer.Message{}, fmt.Errorf("render subject: %w", err)
	}
	var body bytes.Buffer
	if err := tmpl.body.Execute(&body, job); err != nil {
		return mailer.Message{}, fmt.Errorf("render body: %w", err)
	}
	return mailer.Message{
		To:       job.To,
		Subject:  strings.TrimSpace(subject.String()),
		HTMLBody: body.String(),
	}, nil
}
