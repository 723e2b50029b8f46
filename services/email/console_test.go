package emailsvc

import (
	"net/mail"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classbook/classbook/assets"
	"github.com/classbook/classbook/core"
	"github.com/classbook/classbook/testutil"
)

func TestConsoleServiceMock(t *testing.T) {
	conf := testutil.NewConfig()
	core.ParseEmailTemplates(assets.FS, assets.EmailTemplatesDir, conf, core.NewNopLogger())
	svc := NewConsoleServiceMock(conf)

	to := []mail.Address{{Name: "Amy", Address: "amy@school.test"}}
	svc.SendMessages(
		&core.EmailMessage{
			To:           to,
			Subject:      "New homework: Essay",
			TemplateName: "homework_assigned",
			TemplateData: map[string]string{
				"StudentName": "Amy",
				"Subject":     "History",
				"Class":       "9A",
				"Title":       "Essay",
				"Description": "",
				"DueDate":     "2026-03-10",
			},
		},
		&core.EmailMessage{To: to, Subject: "plain", BodyStr: "hello"},
		&core.EmailMessage{Subject: "no recipients", BodyStr: "lost"},
		&core.EmailMessage{To: to, Subject: "no content"},
	)

	sent := svc.Messages()
	require.Len(t, sent, 2)
	assert.True(t, strings.Contains(sent[0].TextContent, `New History homework for 9A: "Essay", due 2026-03-10.`))
	assert.NotEmpty(t, sent[0].HTMLContent)
	assert.Equal(t, "hello", sent[1].TextContent)
	assert.Empty(t, sent[1].HTMLContent)

	svc.Reset()
	assert.Empty(t, svc.Messages())
}

func TestNewService(t *testing.T) {
	conf := testutil.NewConfig()
	logger := core.NewNopLogger()

	conf.SendgridApiKey = ""
	assert.IsType(t, &consoleService{}, NewService(conf, logger))

	conf.SendgridApiKey = "SG.key"
	assert.IsType(t, &sendgridService{}, NewService(conf, logger))

	conf.Debug = true
	assert.IsType(t, &consoleService{}, NewService(conf, logger))
}

func TestSendgridPrepare(t *testing.T) {
	conf := testutil.NewConfig()
	svc := NewSendgridService(conf, core.NewNopLogger()).(*sendgridService)

	m := svc.prepare(core.EmailMessage{
		To:          []mail.Address{{Name: "Amy", Address: "amy@school.test"}},
		Bcc:         []mail.Address{{Address: "audit@school.test"}},
		Subject:     "Hi",
		TextContent: "hello",
	})
	require.Len(t, m.Personalizations, 1)
	assert.Equal(t, "["+conf.AppName+"] Hi", m.Personalizations[0].Subject)
	assert.Equal(t, "amy@school.test", m.Personalizations[0].To[0].Address)
	assert.Equal(t, "audit@school.test", m.Personalizations[0].BCC[0].Address)
	require.Len(t, m.Content, 1)
	assert.Equal(t, "text/plain", m.Content[0].Type)
}
