package mailer

import (
	"html/template"
	"strings"
	"time"

	"voiceagent/internal/model"
)

var emailTemplate = template.Must(template.New("summary").Parse(`<!DOCTYPE html>
<html>
<head>
  <style>
    body { font-family: 'Segoe UI', Tahoma, Geneva, Verdana, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; background-color: #f4f4f4; }
    .container { background-color: #ffffff; border-radius: 10px; padding: 30px; box-shadow: 0 2px 10px rgba(0,0,0,0.1); }
    .header { background: linear-gradient(135deg, #667eea 0%, #764ba2 100%); color: white; padding: 20px; border-radius: 8px 8px 0 0; margin: -30px -30px 30px -30px; }
    .header h1 { margin: 0; font-size: 24px; }
    .section { margin: 25px 0; }
    .section-title { color: #667eea; font-size: 18px; font-weight: 600; margin-bottom: 15px; border-bottom: 2px solid #667eea; padding-bottom: 5px; }
    .bullets { list-style: none; padding: 0; }
    .bullets li { padding: 10px 0 10px 30px; position: relative; }
    .bullets li:before { content: "\2713"; position: absolute; left: 0; color: #667eea; font-weight: bold; font-size: 18px; }
    .next-step { background-color: #f0f4ff; border-left: 4px solid #667eea; padding: 15px 20px; margin: 20px 0; border-radius: 4px; font-weight: 500; }
    .transcript-section { background-color: #f9f9f9; padding: 15px; border-radius: 5px; margin: 20px 0; font-size: 14px; color: #666; max-height: 200px; overflow-y: auto; }
    .footer { margin-top: 30px; padding-top: 20px; border-top: 1px solid #eee; text-align: center; color: #999; font-size: 12px; }
  </style>
</head>
<body>
  <div class="container">
    <div class="header">
      <h1>Voice Conversation Summary</h1>
    </div>
    <div class="section">
      <div class="section-title">Key Points</div>
      <ul class="bullets">
{{- range .Bullets}}
        <li>{{.}}</li>
{{- end}}
      </ul>
    </div>
    <div class="section">
      <div class="section-title">Next Step</div>
      <div class="next-step">{{.NextStep}}</div>
    </div>
    <div class="section">
      <div class="section-title">Full Transcript</div>
      <div class="transcript-section">{{.Transcript}}</div>
    </div>
    <div class="footer">
      <p>Generated on {{.GeneratedAt}}</p>
      <p>Voice Agent System</p>
    </div>
  </div>
</body>
</html>
`))

type templateData struct {
	Bullets     []string
	NextStep    string
	Transcript  string
	GeneratedAt string
}

// RenderEmail produces the HTML notification document for one summary.
// Summary and transcript text is HTML-escaped by the template engine.
func RenderEmail(summary model.Summary, transcript string, now time.Time) (string, error) {
	var sb strings.Builder
	err := emailTemplate.Execute(&sb, templateData{
		Bullets:     summary.Bullets,
		NextStep:    summary.NextStep,
		Transcript:  transcript,
		GeneratedAt: now.Format("Monday, January 2, 2006 at 3:04 PM"),
	})
	if err != nil {
		return "", err
	}
	return sb.String(), nil
}
