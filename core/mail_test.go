package core_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/educonnect/assets"
	"github.com/trezcool/educonnect/core"
)

func TestEmailMessage_Render(t *testing.T) {
	tmpls, err := core.ParseEmailTemplates(assets.FS, assets.EmailTemplates, "http://edu.test", true /* strict */)
	require.NoError(t, err)

	tests := []struct {
		name     string
		msg      core.EmailMessage
		wantText []string
		wantHTML []string
		wantErr  bool
	}{
		{
			name:     "plain body",
			msg:      core.EmailMessage{BodyStr: "hello"},
			wantText: []string{"hello"},
		},
		{
			name: "password reset",
			msg: core.EmailMessage{
				TemplateName: "password_reset",
				TemplateData: map[string]interface{}{"Name": "Ana", "UID": "dWlk", "Token": "tok-en"},
			},
			wantText: []string{"Hi Ana,", "http://edu.test/password-reset/dWlk/tok-en", "The EduConnect team"},
			wantHTML: []string{"<p>Hi Ana,</p>", `href="http://edu.test/password-reset/dWlk/tok-en"`},
		},
		{
			name: "document ready",
			msg: core.EmailMessage{
				TemplateName: "document_ready",
				TemplateData: map[string]interface{}{"Name": "Ana", "Type": "Declaração de Matrícula"},
			},
			wantText: []string{`"Declaração de Matrícula" is ready`},
			wantHTML: []string{"<strong>Declaração de Matrícula</strong>"},
		},
		{
			name:    "missing data",
			msg:     core.EmailMessage{TemplateName: "document_ready", TemplateData: map[string]interface{}{"Name": "Ana"}},
			wantErr: true,
		},
		{
			name: "unknown template",
			msg:  core.EmailMessage{TemplateName: "lol"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.msg
			err := msg.Render(tmpls)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			for _, s := range tt.wantText {
				assert.Contains(t, msg.TextContent, s)
			}
			for _, s := range tt.wantHTML {
				assert.Contains(t, msg.HTMLContent, s)
			}
			assert.False(t, strings.HasPrefix(msg.TextContent, "\n"))
		})
	}
}

func TestEmailMessage_RenderWithoutTemplates(t *testing.T) {
	msg := core.EmailMessage{TemplateName: "password_reset"}
	assert.Error(t, msg.Render(nil))

	msg = core.EmailMessage{BodyStr: "hi"}
	require.NoError(t, msg.Render(nil))
	assert.Equal(t, "hi", msg.TextContent)
}

func TestEmailMessage_Attach(t *testing.T) {
	var msg core.EmailMessage
	require.NoError(t, msg.Attach(strings.NewReader("hello"), "hello.txt"))
	require.Len(t, msg.Attachments, 1)

	at := msg.Attachments[0]
	assert.Equal(t, "hello.txt", at.Filename)
	assert.Equal(t, "aGVsbG8=", at.Content.String())
	assert.Contains(t, at.ContentType, "text/plain")
	assert.True(t, msg.HasAttachments())
}
