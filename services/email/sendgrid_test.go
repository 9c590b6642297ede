package emailsvc

import (
	"net/mail"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/academia/core"
)

func TestSendgridService_prepare(t *testing.T) {
	conf := &core.Config{AppName: "Academia"}
	svc := NewSendgridService(conf, nil).(*sendgridService)

	m := svc.prepare(core.EmailMessage{
		To:          []mail.Address{{Name: "Amani", Address: "amani@academia.test"}},
		Bcc:         []mail.Address{{Address: "admissions@academia.test"}},
		Subject:     "Your admission application",
		Category:    "admissions",
		Tags:        map[string]string{"reference": "ADM-2026-0001", "program_id": "p1"},
		TextContent: "text",
		HTMLContent: "<p>html</p>",
	})

	require.Len(t, m.Personalizations, 1)
	p := m.Personalizations[0]
	assert.Equal(t, "[Academia] Your admission application", p.Subject)
	require.Len(t, p.To, 1)
	assert.Equal(t, "amani@academia.test", p.To[0].Address)
	require.Len(t, p.BCC, 1)
	assert.Equal(t, map[string]string{"reference": "ADM-2026-0001", "program_id": "p1"}, p.CustomArgs)

	assert.Equal(t, []string{"admissions"}, m.Categories)
	require.Len(t, m.Content, 2)
	assert.Equal(t, "text/plain", m.Content[0].Type)
	assert.Equal(t, "<p>html</p>", m.Content[1].Value)
}

func TestSendgridService_prepare_noCategory(t *testing.T) {
	svc := NewSendgridService(&core.Config{}, nil).(*sendgridService)
	m := svc.prepare(core.EmailMessage{To: []mail.Address{{Address: "a@academia.test"}}, TextContent: "text"})
	assert.Empty(t, m.Categories)
	assert.Empty(t, m.Personalizations[0].CustomArgs)
}

func Test_extras(t *testing.T) {
	got := extras(core.EmailMessage{TemplateName: "admission_confirmation", Tags: map[string]string{"reference": "ADM-1"}})
	assert.Equal(t, map[string]interface{}{"template": "admission_confirmation", "reference": "ADM-1"}, got)
}

type recordingLogger struct {
	mu     sync.Mutex
	errors []string
	extras []map[string]interface{}
}

func (l *recordingLogger) Debug(string, ...interface{}) {}
func (l *recordingLogger) Info(string, ...interface{})  {}
func (l *recordingLogger) Warn(string, ...interface{})  {}
func (l *recordingLogger) Fatal(string, ...interface{}) {}

func (l *recordingLogger) Error(msg string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, msg)
	for _, arg := range args {
		if extra, ok := arg.(map[string]interface{}); ok {
			l.extras = append(l.extras, extra)
		}
	}
}

func (l *recordingLogger) logged() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.errors)
}

func TestSendgridService_SendMessages_unknownTemplate(t *testing.T) {
	logger := &recordingLogger{}
	svc := NewSendgridService(&core.Config{}, logger)

	svc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Address: "a@academia.test"}},
		TemplateName: "no_such_template",
		Tags:         map[string]string{"reference": "ADM-2"},
	})

	require.Eventually(t, func() bool { return logger.logged() == 1 }, time.Second, 5*time.Millisecond)
	logger.mu.Lock()
	defer logger.mu.Unlock()
	assert.Contains(t, logger.errors[0], `rendering email "no_such_template"`)
	require.Len(t, logger.extras, 1)
	assert.Equal(t, map[string]interface{}{"template": "no_such_template", "reference": "ADM-2"}, logger.extras[0])
}
