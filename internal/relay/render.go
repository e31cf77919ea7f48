package relay

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"
)

var bodyTemplate = htmltemplate.Must(htmltemplate.New("submission").Parse(`
<h2>New Submission</h2>
<p><b>Tracking ID:</b> {{with .TrackingID}}{{.}}{{else}}-{{end}}</p>
<p><b>First Name:</b> {{.Form.FirstName}}</p>
<p><b>Last Name:</b> {{.Form.LastName}}</p>
<p><b>Email:</b> {{.Form.Email}}</p>
<p><b>Phone:</b> {{.Form.Phone}}</p>
<p><b>City:</b> {{.Form.City}}</p>
<p><b>Agreed:</b> {{if .Form.Agree}}Yes{{else}}No{{end}}</p>
<hr />
<p><b>Page URL:</b> {{.Meta.URL}}</p>
<p><b>User Agent:</b> {{.Meta.UserAgent}}</p>
<p><b>Time:</b> {{.Meta.Timestamp}}</p>
`))

// textTemplate mirrors bodyTemplate line for line.
var textTemplate = texttemplate.Must(texttemplate.New("submission").Parse(`New Submission

Tracking ID: {{with .TrackingID}}{{.}}{{else}}-{{end}}
First Name: {{.Form.FirstName}}
Last Name: {{.Form.LastName}}
Email: {{.Form.Email}}
Phone: {{.Form.Phone}}
City: {{.Form.City}}
Agreed: {{if .Form.Agree}}Yes{{else}}No{{end}}
----
Page URL: {{.Meta.URL}}
User Agent: {{.Meta.UserAgent}}
Time: {{.Meta.Timestamp}}
`))

// RenderHTML builds the HTML email body for a submission.
func RenderHTML(sub *Submission) (string, error) {
	var buf bytes.Buffer
	if err := bodyTemplate.Execute(&buf, sub); err != nil {
		return "", fmt.Errorf("failed to render email body: %w", err)
	}
	return buf.String(), nil
}

// RenderText builds the plain-text alternative sent next to the HTML body.
func RenderText(sub *Submission) (string, error) {
	var buf bytes.Buffer
	if err := textTemplate.Execute(&buf, sub); err != nil {
		return "", fmt.Errorf("failed to render text body: %w", err)
	}
	return buf.String(), nil
}
