package logsvc

import (
	"bytes"
	"log"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/session"
	"github.com/trezcool/academia/core/user"
)

func TestPrepare(t *testing.T) {
	cause := errors.New("boom")
	teacher := user.User{ID: "u1", Username: "ilunga"}
	admin := user.User{ID: "u2", Username: "tshala"}

	person, rest := prepare("failed", []interface{}{cause, teacher, admin})
	assert.Equal(t, &teacher, person, "only the first person is kept")
	assert.Equal(t, []interface{}{"failed", cause}, rest)

	sess := &session.Session{AccessToken: "tok", Profile: admin}
	person, rest = prepare("failed", []interface{}{sess})
	assert.Equal(t, "u2", person.ID)
	assert.Equal(t, []interface{}{"failed"}, rest)

	person, _ = prepare("anonymous", []interface{}{&session.Session{}})
	assert.Nil(t, person)
}

func TestRollbarLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewRollbarLogger(log.New(&buf, "", 0), &core.Config{Env: "TEST"})
	logger.Enable(false)

	logger.Warn("backend slow", map[string]interface{}{"endpoint": "/students"})
	assert.Equal(t, "[WARNING] backend slow\n\tmap[endpoint:/students]\n", buf.String())
}
