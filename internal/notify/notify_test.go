package notify

import (
	"bytes"
	"os/exec"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMulti(t *testing.T) {
	var got []string
	rec := Func(func(n Notification) { got = append(got, n.Title) })

	Multi{rec, nil, rec}.Notify(Notification{Title: "Connected!"})
	assert.Equal(t, []string{"Connected!", "Connected!"}, got)
}

func TestChannelDropsOldest(t *testing.T) {
	c := NewChannel(2)
	c.Notify(Notification{Title: "one"})
	c.Notify(Notification{Title: "two"})
	c.Notify(Notification{Title: "three"})

	require.Len(t, c.C(), 2)
	assert.Equal(t, "two", (<-c.C()).Title)
	assert.Equal(t, "three", (<-c.C()).Title)
}

func TestLogNotifier(t *testing.T) {
	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&buf)
	logger.SetFormatter(&logrus.JSONFormatter{})

	NewLogNotifier(logrus.NewEntry(logger)).Notify(Notification{
		Title:       "Session Expired",
		Description: "Please reconnect your Google Calendar",
		Variant:     VariantDestructive,
	})

	out := buf.String()
	assert.Contains(t, out, `"level":"warning"`)
	assert.Contains(t, out, `"title":"Session Expired"`)
	assert.Contains(t, out, "Please reconnect your Google Calendar")
}

func TestDesktopArgs(t *testing.T) {
	var gotArgs []string
	d := NewDesktop(true)
	d.command = func(name string, args ...string) *exec.Cmd {
		gotArgs = append([]string{name}, args...)
		return exec.Command("true")
	}

	require.NoError(t, d.send(Notification{Title: "Authentication Failed", Description: "Bad Request", Variant: VariantDestructive}))
	assert.Equal(t, []string{"notify-send", "--app-name=crmcal", "--urgency=critical", "Authentication Failed", "Bad Request"}, gotArgs)
}

func TestDesktopDisabled(t *testing.T) {
	d := NewDesktop(false)
	d.command = func(name string, args ...string) *exec.Cmd {
		t.Fatal("disabled notifier must not run commands")
		return nil
	}
	d.Notify(Notification{Title: "x"})
}

func TestNotificationString(t *testing.T) {
	assert.Equal(t, "Disconnected", Notification{Title: "Disconnected"}.String())
	assert.Equal(t, "Connected!: Signed in", Notification{Title: "Connected!", Description: "Signed in"}.String())
}
