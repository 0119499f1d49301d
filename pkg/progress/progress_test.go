package progress

import (
	"bytes"
	"encoding/json"
	"errors"
	"log"
	"strings"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mirp/pkg/report"
)

type fakeToken struct{ err error }

func (t *fakeToken) Wait() bool                     { return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (t *fakeToken) Error() error { return t.err }

type message struct {
	topic   string
	payload []byte
}

type fakeClient struct {
	mu        sync.Mutex
	connected bool
	err       error
	messages  []message
}

func (c *fakeClient) IsConnected() bool { return c.connected }

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return &fakeToken{err: c.err}
	}
	c.messages = append(c.messages, message{topic: topic, payload: payload.([]byte)})
	return &fakeToken{}
}

// recorder counts events, for checking fan-out
type recorder struct {
	started, done, messages, finished int
}

func (r *recorder) PassStarted(string, int)       { r.started++ }
func (r *recorder) FilamentDone(string, int, int) { r.done++ }
func (r *recorder) Message(string)                { r.messages++ }
func (r *recorder) PassFinished(report.Summary)   { r.finished++ }

func TestLogObserverThrottlesFilamentLines(t *testing.T) {
	var logBuf, runOut bytes.Buffer
	o := NewLogObserver(log.New(&logBuf, "", 0), &runOut)

	o.PassStarted("rot", 100)
	for i := 1; i <= 100; i++ {
		o.FilamentDone("rot", i, 100)
	}
	o.PassFinished(report.Summary{Pass: "rot", FilamentsIn: 100, FilamentsOut: 98, Outputs: []string{"job/rotCorrected_data.star"}})

	lines := strings.Split(strings.TrimSpace(runOut.String()), "\n")
	// start, one line per 10% bucket, summary, output
	assert.Len(t, lines, 1+10+2)
	assert.Equal(t, "rot: correcting 100 filaments", lines[0])
	assert.Equal(t, "rot: 10/100 filaments (10%)", lines[1])
	assert.Equal(t, "Wrote job/rotCorrected_data.star", lines[len(lines)-1])
	assert.Equal(t, runOut.String(), logBuf.String())
}

func TestLogObserverWithoutRunLog(t *testing.T) {
	var logBuf bytes.Buffer
	o := NewLogObserver(log.New(&logBuf, "", 0), nil)
	o.Message("hello")
	o.FilamentDone("xy", 1, 0)
	assert.Equal(t, "hello\n", logBuf.String())
}

func TestMulti(t *testing.T) {
	a, b := &recorder{}, &recorder{}
	m := Multi{a, b, Nop{}}
	m.PassStarted("seam", 2)
	m.FilamentDone("seam", 1, 2)
	m.Message("x")
	m.PassFinished(report.Summary{})
	for _, r := range []*recorder{a, b} {
		assert.Equal(t, recorder{1, 1, 1, 1}, *r)
	}
}

func TestMQTTObserverPublishesJSON(t *testing.T) {
	client := &fakeClient{connected: true}
	o := NewMQTTObserver(client, "lab")

	o.PassStarted("pf-sort", 3)
	o.FilamentDone("pf-sort", 1, 3)
	o.Message("note")
	o.PassFinished(report.Summary{Pass: "pf-sort", Removed: 2})

	require.Len(t, client.messages, 4)
	assert.Equal(t, "lab/pf-sort/progress", client.messages[0].topic)
	assert.Equal(t, "lab/messages", client.messages[2].topic)

	var ev Event
	require.NoError(t, json.Unmarshal(client.messages[1].payload, &ev))
	assert.Equal(t, "filament", ev.Kind)
	assert.Equal(t, 1, ev.Done)
	assert.Equal(t, 3, ev.Total)
	assert.NotZero(t, ev.Timestamp)

	require.NoError(t, json.Unmarshal(client.messages[3].payload, &ev))
	assert.Equal(t, "finished", ev.Kind)
	assert.EqualValues(t, 2, ev.Summary["removed"])
}

func TestMQTTObserverSkipsWhenDisconnected(t *testing.T) {
	client := &fakeClient{connected: false}
	o := NewMQTTObserver(client, "")
	o.Message("dropped")
	assert.Empty(t, client.messages)
	assert.Equal(t, "mirp/rot/progress", o.topic("rot"))
}

func TestMQTTObserverSurvivesPublishErrors(t *testing.T) {
	client := &fakeClient{connected: true, err: errors.New("broker gone")}
	o := NewMQTTObserver(client, "")
	assert.NotPanics(t, func() { o.PassStarted("rot", 1) })
}

func TestDialMQTTRequiresBroker(t *testing.T) {
	_, _, err := DialMQTT(MQTTOptions{})
	assert.Error(t, err)
}
