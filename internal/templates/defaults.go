package templates

import "github.com/kursadbilgin/inquiry-dispatch/internal/domain"

// Default returns the built-in template of a dispatch channel. Documents have
// no default.
func Default(channel domain.Channel) (domain.Template, bool) {
	switch channel {
	case domain.ChannelAdmin:
		return domain.Template{Channel: channel, Scope: domain.ScopeGlobal, Subject: adminSubject, Body: adminBody, Active: true}, true
	case domain.ChannelCustomer:
		return domain.Template{Channel: channel, Scope: domain.ScopeGlobal, Subject: customerSubject, Body: customerBody, Active: true}, true
	}
	return domain.Template{}, false
}

const adminSubject = `New {{type}} inquiry from {{name}}`

const adminBody = `<mjml>
  <mj-head>
    <mj-title>New inquiry</mj-title>
    <mj-preview>{{name}} sent a {{type}} inquiry</mj-preview>
  </mj-head>
  <mj-body background-color="#f4f4f4">
    <mj-section background-color="#ffffff">
      <mj-column>
        <mj-text font-size="18px" font-weight="bold">New {{type}} inquiry</mj-text>
        <mj-table>
          <tr><td><strong>Name</strong></td><td>{{name}}</td></tr>
          <tr><td><strong>Email</strong></td><td><a href="mailto:{{email}}">{{email}}</a></td></tr>
          {{#IF_HAS_PHONE}}<tr><td><strong>Phone</strong></td><td>{{phone}}</td></tr>{{/IF_HAS_PHONE}}
          {{#IF_HAS_COMPANY}}<tr><td><strong>Company</strong></td><td>{{company}}</td></tr>{{/IF_HAS_COMPANY}}
          <tr><td><strong>Received</strong></td><td>{{date}}</td></tr>
          <tr><td><strong>Reference</strong></td><td>{{id}}</td></tr>
        </mj-table>
        {{#IF_HAS_MESSAGE}}<mj-divider border-color="#dddddd" border-width="1px" />
        <mj-text>{{message}}</mj-text>{{/IF_HAS_MESSAGE}}
      </mj-column>
    </mj-section>
  </mj-body>
</mjml>`

const customerSubject = `Thanks for contacting {{siteName}}`

const customerBody = `<mjml>
  <mj-head>
    <mj-title>Thanks for your message</mj-title>
    <mj-preview>We received your inquiry</mj-preview>
  </mj-head>
  <mj-body background-color="#f4f4f4">
    <mj-section background-color="#ffffff">
      <mj-column>
        <mj-text font-size="16px">Hello {{name}},</mj-text>
        <mj-text>Thank you for reaching out to {{siteName}}. We received your inquiry and will get back to you shortly.</mj-text>
        {{#IF_HAS_MESSAGE}}<mj-text color="#555555"><em>{{message}}</em></mj-text>{{/IF_HAS_MESSAGE}}
        <mj-text font-size="12px" color="#888888">Reference: {{id}}</mj-text>
      </mj-column>
    </mj-section>
  </mj-body>
</mjml>`
